// Package importer ingests borrower rosters from spreadsheet exports.
//
// Files carry one borrower per row under RUT/Nombre/Curso-style headers
// (English aliases accepted). Rows already on file are skipped, invalid
// rows are reported, and the rest are registered through the borrower
// registry.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"school-library/library"
)

// Row is one borrower record parsed from an input file.
type Row struct {
	NationalID string
	Name       string
	Cohort     string
}

// Result summarises an import run.
type Result struct {
	Imported   int
	Duplicates int
	Invalid    int
	Errors     []string
}

// Header aliases, lowercased. School roster exports use the Spanish
// column names.
var headerAliases = map[string]string{
	"rut":         "national_id",
	"national_id": "national_id",
	"nombre":      "name",
	"name":        "name",
	"curso":       "cohort",
	"cohort":      "cohort",
	"class":       "cohort",
}

// mapHeader resolves the column index of each known field. national_id
// and name are required; cohort is optional.
func mapHeader(header []string) (map[string]int, error) {
	idx := make(map[string]int)
	for i, h := range header {
		if field, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			idx[field] = i
		}
	}
	if _, ok := idx["national_id"]; !ok {
		return nil, errors.New("missing national id column (RUT)")
	}
	if _, ok := idx["name"]; !ok {
		return nil, errors.New("missing name column (Nombre)")
	}
	return idx, nil
}

func cell(record []string, idx map[string]int, field string) string {
	i, ok := idx[field]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ReadCSV parses a comma-separated roster from r.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, Row{
			NationalID: cell(record, idx, "national_id"),
			Name:       cell(record, idx, "name"),
			Cohort:     cell(record, idx, "cohort"),
		})
	}
	return rows, nil
}

// ReadFile parses an .xlsx or .csv roster file.
func ReadFile(path string) ([]Row, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported roster format %q", filepath.Ext(path))
	}
}

// Import registers rows through the registry, skipping national ids
// already on file and rejecting rows that fail validation. Roster rows
// get the strict id format check; hand-entered records do not.
func Import(reg *library.Registry, rows []Row) Result {
	var res Result
	for i, row := range rows {
		if !library.ValidateNationalID(row.NationalID) {
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: malformed national id %q", i+2, row.NationalID))
			continue
		}

		if _, err := reg.FindByNationalID(row.NationalID); err == nil {
			res.Duplicates++
			continue
		} else if !errors.Is(err, library.ErrNotFound) {
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", i+2, err))
			continue
		}

		if _, err := reg.Create(row.NationalID, row.Name, row.Cohort); err != nil {
			switch {
			case errors.Is(err, library.ErrDuplicate):
				res.Duplicates++
			default:
				res.Invalid++
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", i+2, err))
			}
			continue
		}
		res.Imported++
	}
	return res
}

// ImportFile reads and imports a roster file in one step.
func ImportFile(reg *library.Registry, path string) (Result, error) {
	rows, err := ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return Import(reg, rows), nil
}
