package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// ----------------------------------------------------------------------------
// DecodeJSON Tests
// ----------------------------------------------------------------------------

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantColumns []string
		wantRecords [][]any
	}{
		{
			name:        "list of objects keeps first-seen key order",
			body:        `[{"b":1,"a":"x"},{"a":"y","c":true}]`,
			wantColumns: []string{"b", "a", "c"},
			wantRecords: [][]any{{int64(1), "x", nil}, {nil, "y", true}},
		},
		{
			name:        "data array is unwrapped",
			body:        `{"status":"ok","data":[{"region":"North","value":10}]}`,
			wantColumns: []string{"region", "value"},
			wantRecords: [][]any{{"North", int64(10)}},
		},
		{
			name:        "data that is not an array stays a column",
			body:        `{"data":"note","n":[1,2]}`,
			wantColumns: []string{"data", "n"},
			wantRecords: [][]any{{"note", int64(1)}, {"note", int64(2)}},
		},
		{
			name:        "list of arrays uses positional columns",
			body:        `[[1,2],[3]]`,
			wantColumns: []string{"0", "1"},
			wantRecords: [][]any{{int64(1), int64(2)}, {int64(3), nil}},
		},
		{
			name:        "list of scalars",
			body:        `[1.5,"a",null]`,
			wantColumns: []string{"0"},
			wantRecords: [][]any{{1.5}, {"a"}, {nil}},
		},
		{
			name:        "object of arrays",
			body:        `{"x":[1,2],"y":["a","b"]}`,
			wantColumns: []string{"x", "y"},
			wantRecords: [][]any{{int64(1), "a"}, {int64(2), "b"}},
		},
		{
			name:        "object of objects",
			body:        `{"a":{"r1":1,"r2":2},"b":{"r1":3}}`,
			wantColumns: []string{"a", "b"},
			wantRecords: [][]any{{int64(1), int64(3)}, {int64(2), nil}},
		},
		{
			name:        "nested values become compact json text",
			body:        `[{"id":1,"tags":["x","y"],"meta":{"z":1,"a":2}}]`,
			wantColumns: []string{"id", "tags", "meta"},
			wantRecords: [][]any{{int64(1), `["x","y"]`, `{"z":1,"a":2}`}},
		},
		{
			name:        "large integers stay exact",
			body:        `[{"id":9007199254740993}]`,
			wantColumns: []string{"id"},
			wantRecords: [][]any{{int64(9007199254740993)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodeJSON([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeJSON() error = %v", err)
			}
			if !reflect.DeepEqual(p.Columns, tt.wantColumns) {
				t.Errorf("Columns = %v, want %v", p.Columns, tt.wantColumns)
			}
			if !reflect.DeepEqual(p.Records, tt.wantRecords) {
				t.Errorf("Records = %#v, want %#v", p.Records, tt.wantRecords)
			}
		})
	}
}

func TestDecodeJSON_EmptyContainers(t *testing.T) {
	for _, body := range []string{`[]`, `{}`, `{"data":[]}`} {
		t.Run(body, func(t *testing.T) {
			p, err := DecodeJSON([]byte(body))
			if err != nil {
				t.Fatalf("DecodeJSON(%s) error = %v", body, err)
			}
			if !p.Empty() {
				t.Errorf("DecodeJSON(%s) = %+v, want empty payload", body, p)
			}
		})
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		notTabular  bool
		errContains string
	}{
		{name: "object of scalars", body: `{"a":1,"b":"x"}`, notTabular: true},
		{name: "bare scalar", body: `42`, notTabular: true},
		{name: "mixed list", body: `[{"a":1},[1]]`, notTabular: true},
		{name: "scalar then container", body: `[1,{"a":1}]`, notTabular: true},
		{name: "ragged columns", body: `{"a":[1,2],"b":[1]}`, notTabular: true},
		{name: "trailing data", body: `[1] [2]`, errContains: "unexpected data"},
		{name: "truncated", body: `[{"a":1}`, errContains: "parse json"},
		{name: "not json", body: `hello`, errContains: "parse json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.notTabular && !errors.Is(err, ErrNotTabular) {
				t.Errorf("error = %v, want ErrNotTabular", err)
			}
			if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %q, want it to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestDecodeJSON_DeepNesting(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unterminated arrays", body: strings.Repeat("[", 2_000_000)},
		{name: "unterminated objects", body: strings.Repeat(`{"a":`, 500_000)},
		{name: "closed arrays", body: strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.body))
			if !errors.Is(err, errJSONTooDeep) {
				t.Fatalf("DecodeJSON() error = %v, want errJSONTooDeep", err)
			}
			if _, err := Decode([]byte(tt.body)); err == nil {
				t.Fatal("Decode() error = nil, want failure")
			}
		})
	}
}

func TestDecodeJSON_NestingAtLimit(t *testing.T) {
	body := strings.Repeat("[", maxJSONDepth) + strings.Repeat("]", maxJSONDepth)
	_, err := DecodeJSON([]byte(body))
	if errors.Is(err, errJSONTooDeep) {
		t.Fatalf("DecodeJSON() error = %v, want depth %d accepted", err, maxJSONDepth)
	}
}

// ----------------------------------------------------------------------------
// Decode Tests
// ----------------------------------------------------------------------------

func TestDecode_FallsBackToWorkbook(t *testing.T) {
	body := buildWorkbook(t, [][]any{
		{"Name", "Count"},
		{"alpha", 3},
		{"beta", 4},
	})

	p, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	wantCols := []string{"Name", "Count"}
	wantRecs := [][]any{{"alpha", int64(3)}, {"beta", int64(4)}}
	if !reflect.DeepEqual(p.Columns, wantCols) {
		t.Errorf("Columns = %v, want %v", p.Columns, wantCols)
	}
	if !reflect.DeepEqual(p.Records, wantRecs) {
		t.Errorf("Records = %#v, want %#v", p.Records, wantRecs)
	}
}

func TestDecode_PrefersJSON(t *testing.T) {
	p, err := Decode([]byte(`{"data":[{"k":"v"}]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(p.Records) != 1 || p.Records[0][0] != "v" {
		t.Errorf("Decode() = %+v, want one record with k=v", p)
	}
}

func TestDecode_Neither(t *testing.T) {
	_, err := Decode([]byte("<html>maintenance</html>"))
	if err == nil {
		t.Fatal("expected error for non-tabular body")
	}
	if !strings.Contains(err.Error(), "not JSON") || !strings.Contains(err.Error(), "not a spreadsheet") {
		t.Errorf("error = %q, want both decoder failures described", err)
	}
}
