package api

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const defaultFarmSize = 1.0

var errFarmSize = badRequest("farm_size must be a non-negative number")

// FarmSize accepts a JSON number or a numeric string. Null, an empty
// string or an absent field mean the default of one acre.
type FarmSize struct {
	acres float64
	set   bool
}

// Acres returns the farm size, defaulting to one acre.
func (f FarmSize) Acres() float64 {
	if !f.set {
		return defaultFarmSize
	}
	return f.acres
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FarmSize) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = FarmSize{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errFarmSize
		}
		return f.parse(s)
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return errFarmSize
	}
	return f.set64(v)
}

// parse handles query-string and quoted JSON forms.
func (f *FarmSize) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*f = FarmSize{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errFarmSize
	}
	return f.set64(v)
}

func (f *FarmSize) set64(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return errFarmSize
	}
	*f = FarmSize{acres: v, set: true}
	return nil
}
