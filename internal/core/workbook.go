package core

// workbook.go reads tabular files: uploaded row lists (xlsx or csv) and
// xlsx bodies returned by remote resources.
//
// In both cases the first non-empty row is the header. Blank header cells
// become "Unnamed: N" and repeated names get ".1", ".2" suffixes so every
// column can be addressed by name.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SupportedUploadExtensions lists the file types ReadDataset accepts.
var SupportedUploadExtensions = []string{".xlsx", ".xlsm", ".csv"}

// ReadDataset parses an uploaded row list. The file type is chosen by the
// extension of name.
func ReadDataset(name string, r io.Reader) (*Dataset, error) {
	var (
		grid [][]string
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		grid, err = readWorkbookGrid(r)
	case ".csv":
		grid, err = readCSVGrid(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	if err != nil {
		return nil, err
	}

	header, rows, lines := splitHeader(grid)
	if header == nil || len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}

	ds := &Dataset{
		Source: filepath.Base(name),
		Header: header,
		Rows:   make([]Row, len(rows)),
	}
	for i, cells := range rows {
		values := make(map[string]string, len(header))
		for j, col := range header {
			if j < len(cells) {
				values[col] = cells[j]
			} else {
				values[col] = ""
			}
		}
		ds.Rows[i] = Row{Index: i, Line: lines[i], Values: values}
	}

	return ds, nil
}

// DecodeWorkbook reads the first sheet of an xlsx body as a Payload.
// Numeric-looking cells become numbers so they stay numeric when re-encoded.
func DecodeWorkbook(body []byte) (*Payload, error) {
	grid, err := readWorkbookGrid(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	header, rows, _ := splitHeader(grid)
	if header == nil {
		return &Payload{}, nil
	}

	records := make([][]any, len(rows))
	for i, cells := range rows {
		rec := make([]any, len(header))
		for j := range header {
			if j < len(cells) {
				rec[j] = inferCell(cells[j])
			}
		}
		records[i] = rec
	}

	return &Payload{Columns: header, Records: records}, nil
}

func readWorkbookGrid(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("read workbook: no sheets")
	}

	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read workbook sheet %q: %w", sheets[0], err)
	}
	return grid, nil
}

func readCSVGrid(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(WrapForParsing(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	grid, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return grid, nil
}

// splitHeader finds the first non-empty row, normalizes it as the header, and
// returns the remaining non-empty rows with their 1-based sheet lines. The
// header is widened when a data row is longer than it.
func splitHeader(grid [][]string) (header []string, rows [][]string, lines []int) {
	start := -1
	for i, cells := range grid {
		if !blankRow(cells) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil, nil
	}

	raw := append([]string(nil), grid[start]...)
	for i := start + 1; i < len(grid); i++ {
		if blankRow(grid[i]) {
			continue
		}
		rows = append(rows, grid[i])
		lines = append(lines, i+1)
		for len(raw) < len(grid[i]) {
			raw = append(raw, "")
		}
	}

	return normalizeHeader(raw), rows, lines
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func normalizeHeader(raw []string) []string {
	header := make([]string, len(raw))
	counts := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n := counts[name]; n > 0 {
			counts[name] = n + 1
			name = name + "." + strconv.Itoa(n)
		} else {
			counts[name] = 1
		}
		header[i] = name
	}
	return header
}

// inferCell converts s to int64 or float64 when it is written as a plain
// number. Values with leading zeros such as "007" stay text.
func inferCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		if strconv.FormatInt(i, 10) == s {
			return i
		}
		return s
	}
	if strings.ContainsAny(s, ".eE") && !hasLeadingZero(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func hasLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}
