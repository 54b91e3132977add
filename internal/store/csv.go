package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"macdtrader/internal/domain"
)

// Compile-time interface check.
var _ SeriesSource = (*CSVFile)(nil)

// DateLayout is the ISO date format of CSV price files.
const DateLayout = "2006-01-02"

// CSVFile reads a price series from a delimited file with one header row.
// Column indices are zero-based.
type CSVFile struct {
	Path        string
	Symbol      string
	DateColumn  int
	PriceColumn int
	Comma       rune
}

// NewCSVFile returns a comma-separated CSVFile reading dates from dateColumn
// and prices from priceColumn.
func NewCSVFile(path, symbol string, dateColumn, priceColumn int) *CSVFile {
	return &CSVFile{
		Path:        path,
		Symbol:      symbol,
		DateColumn:  dateColumn,
		PriceColumn: priceColumn,
		Comma:       ',',
	}
}

// ReadSeries parses the whole file. The header row is discarded; each data
// row must carry an ISO date and a positive decimal price.
func (c *CSVFile) ReadSeries(ctx context.Context) (domain.PriceSeries, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	defer f.Close()

	series, err := c.parse(ctx, f)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("%s: %w", c.Path, err)
	}
	return series, nil
}

func (c *CSVFile) parse(ctx context.Context, r io.Reader) (domain.PriceSeries, error) {
	if c.DateColumn < 0 || c.PriceColumn < 0 {
		return domain.PriceSeries{}, fmt.Errorf("column indices %d/%d: %w", c.DateColumn, c.PriceColumn, domain.ErrInvalidConfig)
	}

	cr := csv.NewReader(r)
	if c.Comma != 0 {
		cr.Comma = c.Comma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	series := domain.PriceSeries{Symbol: c.Symbol}

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return series, nil
		}
		return domain.PriceSeries{}, fmt.Errorf("reading header: %w", err)
	}

	for line := 2; ; line++ {
		if line%4096 == 0 && ctx.Err() != nil {
			return domain.PriceSeries{}, ctx.Err()
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.PriceSeries{}, err
		}
		if c.DateColumn >= len(rec) || c.PriceColumn >= len(rec) {
			return domain.PriceSeries{}, fmt.Errorf("line %d: %d fields, need columns %d and %d",
				line, len(rec), c.DateColumn, c.PriceColumn)
		}

		ts, err := time.Parse(DateLayout, strings.TrimSpace(rec[c.DateColumn]))
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("line %d: date: %w", line, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[c.PriceColumn]), 64)
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("line %d: price: %w", line, err)
		}
		series.Points = append(series.Points, domain.PricePoint{Timestamp: ts, Price: price})
	}

	if err := series.Validate(); err != nil {
		return domain.PriceSeries{}, err
	}
	return series, nil
}

// BarSource adapts a BarStore query into a SeriesSource.
type BarSource struct {
	Store      BarStore
	Symbol     string
	Market     string
	Start, End time.Time
	Field      domain.PriceField
}

// ReadSeries reads the bars and converts them into a price series.
func (b *BarSource) ReadSeries(ctx context.Context) (domain.PriceSeries, error) {
	bars, err := b.Store.ReadBars(ctx, b.Symbol, b.Market, b.Start, b.End)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	series := domain.SeriesFromBars(strings.ToUpper(b.Symbol), bars, b.Field)
	if err := series.Validate(); err != nil {
		return domain.PriceSeries{}, err
	}
	return series, nil
}
