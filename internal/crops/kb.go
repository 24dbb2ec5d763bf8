// Package crops holds the static crop knowledge base and growing-plan builder.
package crops

import (
	_ "embed"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/crop-advisor/internal/model"
)

//go:embed crops.yaml
var embeddedCrops []byte

// Stage is one step of a crop's growing calendar.
type Stage struct {
	Name         string `yaml:"name" json:"stage"`
	DurationDays int    `yaml:"duration_days" json:"duration_days"`
	Description  string `yaml:"description" json:"description"`
}

// Profile is the static reference data for a single crop.
type Profile struct {
	Name             string             `yaml:"-" json:"name"`
	DisplayName      string             `yaml:"display_name" json:"display_name"`
	Category         string             `yaml:"category" json:"category"`
	CostClass        string             `yaml:"cost_class" json:"cost_class"`
	Description      string             `yaml:"description" json:"description"`
	SoilSuitability  string             `yaml:"soil_suitability" json:"soil_suitability"`
	GrowingDays      int                `yaml:"growing_days" json:"growing_period_days"`
	PlantingMonths   []int              `yaml:"planting_months" json:"planting_months"`
	HarvestMonths    []int              `yaml:"-" json:"harvesting_months"`
	WaterRequirement string             `yaml:"water_requirement" json:"water_requirement"`
	Fertilizer       string             `yaml:"fertilizer" json:"fertilizer"`
	PHRange          string             `yaml:"ph_range" json:"soil_ph_range"`
	TemperatureRange string             `yaml:"temperature_range" json:"temperature_range"`
	PricePerQuintal  float64            `yaml:"price_per_quintal" json:"base_price_per_quintal"`
	YieldPerAcre     float64            `yaml:"yield_per_acre" json:"base_yield_per_acre"`
	Seasons          []model.Season     `yaml:"seasons" json:"seasons,omitempty"`
	Regions          []model.Region     `yaml:"regions" json:"regions,omitempty"`
	HarvestWindow    model.Season       `yaml:"harvest_window" json:"harvest_window,omitempty"`
	IncomeSeasons    []model.Season     `yaml:"income_seasons" json:"income_seasons,omitempty"`
	SoilFactors      map[string]float64 `yaml:"soil_factors" json:"soil_factors,omitempty"`
	Stages           []Stage            `yaml:"stages" json:"stages"`
	Tips             []string           `yaml:"tips" json:"tips"`
	Known            bool               `yaml:"-" json:"-"`
}

// InSeason reports whether the crop belongs to the given season's crop set.
func (p Profile) InSeason(s model.Season) bool {
	return slices.Contains(p.Seasons, s)
}

// InRegion reports whether the crop is preferred in the given region.
func (p Profile) InRegion(r model.Region) bool {
	return r != model.RegionNone && slices.Contains(p.Regions, r)
}

// Defaults for crops the knowledge base does not list.
const (
	DefaultPricePerQuintal = 3000
	DefaultYieldPerAcre    = 20
	defaultGrowingDays     = 120
)

// genericProfile is returned for labels the knowledge base does not know.
func genericProfile(name string) Profile {
	return Profile{
		Name:             name,
		DisplayName:      cases.Title(language.English).String(name),
		Category:         "Other",
		CostClass:        "other",
		Description:      "No reference data available for this crop.",
		SoilSuitability:  "Well-drained soil with moderate fertility",
		GrowingDays:      defaultGrowingDays,
		WaterRequirement: "Moderate",
		PricePerQuintal:  DefaultPricePerQuintal,
		YieldPerAcre:     DefaultYieldPerAcre,
	}
}

type document struct {
	Crops map[string]Profile `yaml:"crops"`
}

// KnowledgeBase is the read-only set of crop profiles, keyed by classifier label.
type KnowledgeBase struct {
	profiles map[string]Profile
	names    []string
}

// Load parses the embedded crop reference data.
func Load() (*KnowledgeBase, error) {
	return Parse(embeddedCrops)
}

// Parse builds a KnowledgeBase from YAML.
func Parse(data []byte) (*KnowledgeBase, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "crops: parse reference data")
	}
	if len(doc.Crops) == 0 {
		return nil, eris.New("crops: reference data has no crops")
	}

	kb := &KnowledgeBase{profiles: make(map[string]Profile, len(doc.Crops))}
	for name, p := range doc.Crops {
		key := normalize(name)
		if p.GrowingDays <= 0 {
			return nil, eris.Errorf("crops: %s: growing_days must be positive", key)
		}
		for _, m := range p.PlantingMonths {
			if m < 1 || m > 12 {
				return nil, eris.Errorf("crops: %s: invalid planting month %d", key, m)
			}
		}
		p.Name = key
		p.Known = true
		p.HarvestMonths = harvestMonths(p.PlantingMonths, p.GrowingDays)
		kb.profiles[key] = p
		kb.names = append(kb.names, key)
	}
	sort.Strings(kb.names)
	return kb, nil
}

// Lookup returns the profile for a crop label.
func (kb *KnowledgeBase) Lookup(name string) (Profile, bool) {
	p, ok := kb.profiles[normalize(name)]
	return p, ok
}

// Profile returns the profile for a crop label, or a generic profile if unknown.
func (kb *KnowledgeBase) Profile(name string) Profile {
	if p, ok := kb.Lookup(name); ok {
		return p
	}
	return genericProfile(normalize(name))
}

// Names returns all known crop labels in sorted order.
func (kb *KnowledgeBase) Names() []string {
	return slices.Clone(kb.names)
}

// Len returns the number of known crops.
func (kb *KnowledgeBase) Len() int {
	return len(kb.names)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// harvestMonths projects each planting month forward by the growing period.
func harvestMonths(planting []int, days int) []int {
	offset := int(math.Round(float64(days) / 30.44))
	seen := make(map[int]bool, len(planting))
	var out []int
	for _, m := range planting {
		h := (m-1+offset)%12 + 1
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	sort.Ints(out)
	return out
}
