// Package csvimport reads historical 311 tree requests exported as CSV.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/tree-request-service/internal/domain"
)

// Header aliases seen in exports over the years.
var (
	srNumberCols  = []string{"sr number"}
	addressCols   = []string{"address", "street address"}
	zipcodeCols   = []string{"zipcode", "zip code"}
	numTreesCols  = []string{"number of trees"}
	locationCols  = []string{"location"}
	dateCols      = []string{"request date", "requested date"}
	timeCols      = []string{"request time"}
	confirmedCols = []string{"confirmed planted"}
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 3:04:05 PM",
	"1/2/2006 3:04:05 PM",
}

// RowError describes a CSV row that could not be imported.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

// Result holds the parsed requests and the rows that were skipped.
type Result struct {
	Requests []domain.TreeRequest
	Skipped  []RowError
}

// Parse reads a CSV export with a header row. Rows without an SR number or
// address, or with an out-of-range tree count, are skipped. Rows without a
// request date are stamped with now.
func Parse(r io.Reader, now time.Time) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	if _, ok := cols.find(srNumberCols); !ok {
		return Result{}, errors.New(`missing "SR Number" column`)
	}
	if _, ok := cols.find(addressCols); !ok {
		return Result{}, errors.New(`missing "Address" column`)
	}

	var res Result
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(record) {
			continue
		}

		req, err := cols.toRequest(record, now)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: line, Err: err})
			continue
		}
		res.Requests = append(res.Requests, req)
	}
}

type columns map[string]int

func indexColumns(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return cols
}

func (c columns) find(names []string) (int, bool) {
	for _, n := range names {
		if i, ok := c[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func (c columns) value(record []string, names []string) string {
	i, ok := c.find(names)
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columns) toRequest(record []string, now time.Time) (domain.TreeRequest, error) {
	req := domain.TreeRequest{
		SRNumber:         c.value(record, srNumberCols),
		StreetAddress:    c.value(record, addressCols),
		Zipcode:          c.value(record, zipcodeCols),
		Location:         c.value(record, locationCols),
		Status:           domain.StatusCompleted,
		NumTrees:         domain.MinTrees,
		ConfirmedPlanted: strings.EqualFold(c.value(record, confirmedCols), "yes"),
		RequestedAt:      now.UTC(),
	}
	if req.SRNumber == "" {
		return req, errors.New("missing SR number")
	}
	if req.StreetAddress == "" {
		return req, errors.New("missing address")
	}
	if req.Location == "" {
		req.Location = domain.DefaultLocation
	}

	if raw := c.value(record, numTreesCols); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("number of trees %q: %w", raw, err)
		}
		if n < domain.MinTrees || n > domain.MaxTrees {
			return req, fmt.Errorf("number of trees %d out of range", n)
		}
		req.NumTrees = n
	}

	if raw := c.value(record, dateCols); raw != "" {
		if t := c.value(record, timeCols); t != "" {
			raw += " " + t
		}
		at, err := parseDate(raw)
		if err != nil {
			return req, err
		}
		req.RequestedAt = at
	}
	return req, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized request date %q", raw)
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
