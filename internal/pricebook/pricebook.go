// Package pricebook loads observed mandi prices into the store.
package pricebook

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crop-advisor/internal/fetcher"
	"github.com/sells-group/crop-advisor/internal/model"
)

var columns = []string{"Date", "Market", "Crop", "Price_per_qtl"}

// Accepted date formats, tried in order.
var dateLayouts = []string{time.DateOnly, "02-01-2006", "02/01/2006", "2006/01/02"}

// Importer persists a batch of prices.
type Importer interface {
	ImportPrices(ctx context.Context, prices []model.MarketPrice, replace bool) (int64, error)
}

// Read parses Date,Market,Crop,Price_per_qtl rows. Repeated
// (date, market, crop) keys keep the last value.
func Read(ctx context.Context, r io.Reader) ([]model.MarketPrice, error) {
	rows, errs := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{Required: columns})

	type key struct {
		day          time.Time
		market, crop string
	}
	seen := make(map[key]int)
	var out []model.MarketPrice
	var parseErr error
	for row := range rows {
		if parseErr != nil {
			continue
		}
		p, err := parseRow(row)
		if err != nil {
			parseErr = err
			continue
		}
		k := key{p.ObservedOn, strings.ToLower(p.Market), p.Crop}
		if i, dup := seen[k]; dup {
			out[i] = p
			continue
		}
		seen[k] = len(out)
		out = append(out, p)
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrap(err, "pricebook: read")
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

func parseRow(row fetcher.Row) (model.MarketPrice, error) {
	day, err := parseDate(row.Get("Date"))
	if err != nil {
		return model.MarketPrice{}, eris.Wrapf(err, "pricebook: line %d", row.Line)
	}
	price, err := strconv.ParseFloat(row.Get("Price_per_qtl"), 64)
	if err != nil || price <= 0 {
		return model.MarketPrice{}, eris.Errorf("pricebook: line %d: invalid price %q", row.Line, row.Get("Price_per_qtl"))
	}
	p := model.MarketPrice{
		ObservedOn:      day,
		Market:          row.Get("Market"),
		Crop:            strings.ToLower(row.Get("Crop")),
		PricePerQuintal: price,
	}
	if p.Market == "" || p.Crop == "" {
		return p, eris.Errorf("pricebook: line %d: market and crop are required", row.Line)
	}
	return p, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("unrecognized date %q", s)
}

// Import loads prices from a local path or URL into the store. With
// replace, existing prices are dropped first.
func Import(ctx context.Context, st Importer, f *fetcher.HTTPFetcher, src string, replace bool) (int64, error) {
	rc, err := fetcher.Open(ctx, f, src)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	prices, err := Read(ctx, rc)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, eris.Errorf("pricebook: %s has no rows", src)
	}

	n, err := st.ImportPrices(ctx, prices, replace)
	if err != nil {
		return 0, eris.Wrap(err, "pricebook: import")
	}
	zap.L().Info("pricebook: prices imported",
		zap.String("source", src),
		zap.Int64("rows", n),
		zap.Bool("replace", replace),
	)
	return n, nil
}
