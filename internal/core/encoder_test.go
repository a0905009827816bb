package core

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestEncodeXLSX_RoundTrip(t *testing.T) {
	in := &Payload{
		Columns: []string{"region", "value", "ratio", "note"},
		Records: [][]any{
			{"North", int64(10), 0.25, "ok"},
			{"South", int64(-3), 1.5, nil},
			{"East", nil, nil, "gap"},
		},
	}

	data, err := EncodeXLSX(in)
	if err != nil {
		t.Fatalf("EncodeXLSX() error = %v", err)
	}

	out, err := DecodeWorkbook(data)
	if err != nil {
		t.Fatalf("DecodeWorkbook() error = %v", err)
	}
	if !reflect.DeepEqual(out.Columns, in.Columns) {
		t.Errorf("Columns = %v, want %v", out.Columns, in.Columns)
	}
	if !reflect.DeepEqual(out.Records, in.Records) {
		t.Errorf("Records = %#v, want %#v", out.Records, in.Records)
	}
}

func TestEncodeXLSX_SingleSheetLayout(t *testing.T) {
	data, err := EncodeXLSX(&Payload{
		Columns: []string{"a", "b"},
		Records: [][]any{{"x", int64(1)}},
	})
	if err != nil {
		t.Fatalf("EncodeXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); !reflect.DeepEqual(sheets, []string{SheetName}) {
		t.Errorf("sheets = %v, want [%s]", sheets, SheetName)
	}

	// Header in row 1, data from row 2, no index column.
	cells := map[string]string{"A1": "a", "B1": "b", "A2": "x", "B2": "1", "C1": ""}
	for cell, want := range cells {
		got, err := f.GetCellValue(SheetName, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) error = %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestEncodeXLSX_RecordWiderThanColumns(t *testing.T) {
	_, err := EncodeXLSX(&Payload{
		Columns: []string{"a"},
		Records: [][]any{{"x", "y"}},
	})
	if err == nil {
		t.Fatal("expected error for record wider than columns")
	}
}

func TestEncodeXLSX_NilPayload(t *testing.T) {
	data, err := EncodeXLSX(nil)
	if err != nil {
		t.Fatalf("EncodeXLSX(nil) error = %v", err)
	}
	if len(data) == 0 {
		t.Error("EncodeXLSX(nil) returned no bytes")
	}
}
