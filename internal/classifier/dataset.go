package classifier

import (
	"bytes"
	"context"
	_ "embed"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crop-advisor/internal/fetcher"
	"github.com/sells-group/crop-advisor/internal/model"
)

//go:embed reference.csv
var referenceCSV []byte

// Sample is one labelled training row.
type Sample struct {
	Features model.FeatureVector
	Label    string
}

var requiredColumns = append(model.FeatureNames[:], "label")

// ReadSamples parses N,P,K,temperature,humidity,ph,rainfall,label rows.
// Extra columns are ignored.
func ReadSamples(ctx context.Context, r io.Reader) ([]Sample, error) {
	rows, errs := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{Required: requiredColumns})

	var samples []Sample
	var parseErr error
	for row := range rows {
		if parseErr != nil {
			continue // drain so the reader goroutine can exit
		}
		s, err := parseSample(row)
		if err != nil {
			parseErr = err
			continue
		}
		samples = append(samples, s)
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrap(err, "classifier: read samples")
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return samples, nil
}

func parseSample(row fetcher.Row) (Sample, error) {
	var s Sample
	for i, name := range model.FeatureNames {
		v, err := strconv.ParseFloat(row.Get(name), 64)
		if err != nil {
			return s, eris.Wrapf(err, "classifier: line %d column %s", row.Line, name)
		}
		s.Features[i] = v
	}
	s.Label = strings.ToLower(row.Get("label"))
	if s.Label == "" {
		return s, eris.Errorf("classifier: line %d has no label", row.Line)
	}
	return s, nil
}

// ReferenceSamples returns the bundled reference dataset.
func ReferenceSamples(ctx context.Context) ([]Sample, error) {
	return ReadSamples(ctx, bytes.NewReader(referenceCSV))
}

// LoadSamples reads training data from a local path or http(s) URL. An
// empty src selects the reference dataset.
func LoadSamples(ctx context.Context, f *fetcher.HTTPFetcher, src string) ([]Sample, error) {
	if src == "" {
		return ReferenceSamples(ctx)
	}
	rc, err := fetcher.Open(ctx, f, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck
	return ReadSamples(ctx, rc)
}
