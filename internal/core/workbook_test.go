package core

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes rows to Sheet1 of a new workbook and returns its bytes.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

// ----------------------------------------------------------------------------
// ReadDataset Tests
// ----------------------------------------------------------------------------

func TestReadDataset_CSV(t *testing.T) {
	input := "\xEF\xBB\xBFlink_download,Penamaan_Data,PIC\n" +
		"http://a.example/1,Report,Finance\n" +
		",,\n" +
		"http://a.example/2,Other\n"

	ds, err := ReadDataset("uploads/rows.csv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadDataset() error = %v", err)
	}

	if ds.Source != "rows.csv" {
		t.Errorf("Source = %q, want rows.csv", ds.Source)
	}
	wantHeader := []string{"link_download", "Penamaan_Data", "PIC"}
	if !reflect.DeepEqual(ds.Header, wantHeader) {
		t.Errorf("Header = %v, want %v", ds.Header, wantHeader)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2 (blank row skipped)", len(ds.Rows))
	}

	first, second := ds.Rows[0], ds.Rows[1]
	if first.Index != 0 || first.Line != 2 {
		t.Errorf("first row Index/Line = %d/%d, want 0/2", first.Index, first.Line)
	}
	if second.Index != 1 || second.Line != 4 {
		t.Errorf("second row Index/Line = %d/%d, want 1/4", second.Index, second.Line)
	}
	if got := first.Get("PIC"); got != "Finance" {
		t.Errorf("first PIC = %q, want Finance", got)
	}
	if v, ok := second.Values["PIC"]; !ok || v != "" {
		t.Errorf("short row PIC = %q (present %v), want empty and present", v, ok)
	}
}

func TestReadDataset_XLSX(t *testing.T) {
	body := buildWorkbook(t, [][]any{
		{"link_download", "Penamaan_Data", "Bulan_rilis"},
		{"http://a.example/1", "Inflasi", "Januari"},
		{"http://a.example/2", "Ekspor", 2024},
	})

	ds, err := ReadDataset("Rows.XLSX", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("ReadDataset() error = %v", err)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(ds.Rows))
	}
	if got := ds.Rows[1].Get("Bulan_rilis"); got != "2024" {
		t.Errorf("Bulan_rilis = %q, want 2024", got)
	}
}

func TestReadDataset_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		input   string
		wantErr error
		errText string
	}{
		{name: "unsupported extension", file: "rows.txt", input: "a\n1\n", wantErr: ErrUnsupportedFile},
		{name: "header only", file: "rows.csv", input: "link_download,PIC\n", wantErr: ErrEmptyFile},
		{name: "blank file", file: "rows.csv", input: "", wantErr: ErrEmptyFile},
		{name: "corrupt workbook", file: "rows.xlsx", input: "not a zip", errText: "read workbook"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDataset(tt.file, strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.errText != "" && !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("error = %q, want it to contain %q", err, tt.errText)
			}
		})
	}
}

func TestReadDataset_CSVReadError(t *testing.T) {
	_, err := ReadDataset("rows.csv", iotest.ErrReader(errors.New("connection reset")))
	if err == nil || !strings.Contains(err.Error(), "invalid csv") {
		t.Errorf("error = %v, want invalid csv error", err)
	}
}

// ----------------------------------------------------------------------------
// Header Normalization Tests
// ----------------------------------------------------------------------------

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{name: "unchanged", raw: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "trimmed", raw: []string{" a ", "b"}, want: []string{"a", "b"}},
		{name: "blank cells", raw: []string{"a", "", "  "}, want: []string{"a", "Unnamed: 1", "Unnamed: 2"}},
		{name: "duplicates", raw: []string{"a", "a", "a", "b"}, want: []string{"a", "a.1", "a.2", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeHeader(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeHeader(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSplitHeader_SkipsLeadingBlankRows(t *testing.T) {
	grid := [][]string{
		{},
		{"", " "},
		{"x", "y"},
		{"1", "2", "3"},
	}

	header, rows, lines := splitHeader(grid)

	wantHeader := []string{"x", "y", "Unnamed: 2"}
	if !reflect.DeepEqual(header, wantHeader) {
		t.Errorf("header = %q, want %q", header, wantHeader)
	}
	if len(rows) != 1 || !reflect.DeepEqual(lines, []int{4}) {
		t.Errorf("rows = %v lines = %v, want one row on line 4", rows, lines)
	}
}

// ----------------------------------------------------------------------------
// Cell Inference Tests
// ----------------------------------------------------------------------------

func TestInferCell(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{in: "", want: nil},
		{in: "   ", want: nil},
		{in: "42", want: int64(42)},
		{in: "-7", want: int64(-7)},
		{in: "007", want: "007"},
		{in: "+5", want: "+5"},
		{in: "3.14", want: 3.14},
		{in: "0.5", want: 0.5},
		{in: "-0.25", want: -0.25},
		{in: "1e3", want: 1000.0},
		{in: "00.5", want: "00.5"},
		{in: "12,5", want: "12,5"},
		{in: "Januari", want: "Januari"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := inferCell(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("inferCell(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// DecodeWorkbook Tests
// ----------------------------------------------------------------------------

func TestDecodeWorkbook_EmptySheet(t *testing.T) {
	p, err := DecodeWorkbook(buildWorkbook(t, nil))
	if err != nil {
		t.Fatalf("DecodeWorkbook() error = %v", err)
	}
	if !p.Empty() {
		t.Errorf("DecodeWorkbook(empty) = %+v, want empty payload", p)
	}
}

func TestDecodeWorkbook_HeaderOnly(t *testing.T) {
	p, err := DecodeWorkbook(buildWorkbook(t, [][]any{{"a", "b"}}))
	if err != nil {
		t.Fatalf("DecodeWorkbook() error = %v", err)
	}
	if !reflect.DeepEqual(p.Columns, []string{"a", "b"}) || !p.Empty() {
		t.Errorf("DecodeWorkbook(header only) = %+v, want columns and no records", p)
	}
}
