// internal/app/system/rosterimport/grid.go
package rosterimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
)

// FromGrid converts a header-first grid (CSV records or sheet rows) into
// rows keyed by the header titles. Header cells are trimmed of whitespace
// and a leading UTF-8 BOM.
func FromGrid(grid [][]string) ([]Row, error) {
	if len(grid) == 0 {
		return nil, nil
	}
	header := make([]string, len(grid[0]))
	known := 0
	for i, h := range grid[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		if isKnownColumn(h) {
			known++
		}
	}
	if known == 0 {
		return nil, apierr.BadRequest(fmt.Sprintf("no recognized column headers; expected titles such as %q and %q", ColAssocCode, ColPrimaryEmail))
	}

	rows := make([]Row, 0, len(grid)-1)
	for _, rec := range grid[1:] {
		r := make(Row, len(header))
		for i, h := range header {
			if h == "" || i >= len(rec) {
				continue
			}
			r[h] = rec[i]
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func isKnownColumn(h string) bool {
	if strings.EqualFold(h, ColUniqueID) {
		return true
	}
	for _, c := range Columns {
		if strings.EqualFold(h, c) {
			return true
		}
	}
	return false
}

// ReadCSV reads a whole CSV roster. Ragged rows are allowed; the reader
// stops with a client error past MaxRows.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var grid [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apierr.BadRequest("could not parse CSV: " + err.Error())
		}
		grid = append(grid, rec)
		if len(grid) > MaxRows+1 {
			return nil, apierr.BadRequest(fmt.Sprintf("too many rows (max %d)", MaxRows))
		}
	}
	return FromGrid(grid)
}
