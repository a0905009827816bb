package core

// validation.go separates usable rows from rows missing required values.
//
// Validation happens at two levels:
//  1. Header validation: every column the run depends on must exist
//  2. Row validation: every required field must be non-empty after trimming
//
// Missing row data is an expected condition and is reported through the
// partition, never as an error. Only an empty usable set is terminal.

import (
	"strings"
)

// HeaderIndex maps lowercased, trimmed column names to the header spelling.
type HeaderIndex map[string]string

// MakeHeaderIndex builds a case-insensitive lookup over header names.
// The first occurrence wins when two names differ only in case.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for _, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, exists := idx[key]; !exists {
			idx[key] = h
		}
	}
	return idx
}

// Resolve returns the header spelling of name. An exact match is preferred
// over a case-insensitive one.
func (idx HeaderIndex) Resolve(name string) (string, bool) {
	for _, h := range idx {
		if h == name {
			return h, true
		}
	}
	h, ok := idx[strings.ToLower(strings.TrimSpace(name))]
	return h, ok
}

// ValidateHeaders checks that every required column exists in header.
// Returns a *MissingColumnsError listing each absent column in the order given.
func ValidateHeaders(header []string, required []string) error {
	idx := MakeHeaderIndex(header)
	var missing []string

	for _, col := range required {
		if _, ok := idx.Resolve(col); !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// MissingFields returns the required fields that are empty in row.
func MissingFields(row Row, required []string) []string {
	var missing []string
	for _, field := range required {
		if row.Get(field) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// Partition splits rows into usable rows and problems, preserving relative
// order within each side. Every input row lands in exactly one of them.
func Partition(rows []Row, required []string) (usable []Row, unusable []RowProblem) {
	usable = make([]Row, 0, len(rows))
	for _, row := range rows {
		if missing := MissingFields(row, required); len(missing) > 0 {
			unusable = append(unusable, RowProblem{Row: row, Missing: missing})
			continue
		}
		usable = append(usable, row)
	}
	return usable, unusable
}

// ValidateRows partitions rows and returns ErrAllRowsInvalid when no row is
// usable. The partition is returned in either case so callers can show the
// problem rows.
func ValidateRows(rows []Row, required []string) ([]Row, []RowProblem, error) {
	usable, unusable := Partition(rows, required)
	if len(usable) == 0 {
		return usable, unusable, ErrAllRowsInvalid
	}
	return usable, unusable, nil
}
