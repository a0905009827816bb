package core

import (
	"strings"
	"testing"
)

// ----------------------------------------------------------------------------
// Sanitize
// ----------------------------------------------------------------------------

func TestSanitize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Report", "Report"},
		{"Q1 Report", "Q1_Report"},
		{"Finance/Dept", "FinanceDept"},
		{"a:b*c?d\"e<f>g|h", "abcdefgh"},
		{"data-v1.2_final", "data-v1.2_final"},
		{"Jakarta Pusat (2024)", "Jakarta_Pusat_2024"},
		{"Ésta ñ", "sta_"},
		{"///", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"Finance/Dept_Q1 Report",
		"  leading and trailing  ",
		"tabs\tand\nnewlines",
		"ünïcödé",
		"already_clean-name.v2",
		"(1) [2] {3}",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

// ----------------------------------------------------------------------------
// ResolveName
// ----------------------------------------------------------------------------

func TestResolveName(t *testing.T) {
	tests := []struct {
		name   string
		row    Row
		fields []string
		opts   NameOptions
		want   string
	}{
		{
			name:   "slash removed and space replaced",
			row:    makeRow(0, "Dept", "Finance/Dept", "Title", "Q1 Report"),
			fields: []string{"Dept", "Title"},
			want:   "FinanceDept_Q1_Report.xlsx",
		},
		{
			name:   "absent fields skipped",
			row:    makeRow(0, "Title", "Report"),
			fields: []string{"Dept", "Title"},
			want:   "Report.xlsx",
		},
		{
			name:   "empty fields skipped",
			row:    makeRow(0, "Dept", "  ", "Title", "Report"),
			fields: []string{"Dept", "Title"},
			want:   "Report.xlsx",
		},
		{
			name:   "no contributing field uses default",
			row:    makeRow(0, "Dept", ""),
			fields: []string{"Dept"},
			want:   "untitled.xlsx",
		},
		{
			name:   "no name fields uses default",
			row:    makeRow(0),
			fields: nil,
			want:   "untitled.xlsx",
		},
		{
			name:   "only disallowed characters uses default",
			row:    makeRow(0, "Dept", "///"),
			fields: []string{"Dept"},
			want:   "untitled.xlsx",
		},
		{
			name:   "custom separator and default",
			row:    makeRow(0, "a", "x", "b", "y"),
			fields: []string{"a", "b"},
			opts:   NameOptions{Separator: "-", DefaultBase: "data"},
			want:   "x-y.xlsx",
		},
		{
			name:   "field order respected",
			row:    makeRow(0, "a", "x", "b", "y"),
			fields: []string{"b", "a"},
			want:   "y_x.xlsx",
		},
		{
			name:   "three bps fields",
			row:    makeRow(0, "Penamaan_Data", "Jumlah Penduduk", "PIC", "IPDS", "Bulan_rilis", "Januari"),
			fields: []string{"Penamaan_Data", "PIC", "Bulan_rilis"},
			want:   "Jumlah_Penduduk_IPDS_Januari.xlsx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveName(tt.row, tt.fields, tt.opts); got != tt.want {
				t.Errorf("ResolveName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveName_Truncates(t *testing.T) {
	row := makeRow(0, "name", strings.Repeat("a", 250))

	got := ResolveName(row, []string{"name"}, NameOptions{})
	want := strings.Repeat("a", DefaultMaxNameLength) + ".xlsx"
	if got != want {
		t.Errorf("ResolveName() length = %d, want %d", len(got), len(want))
	}

	got = ResolveName(row, []string{"name"}, NameOptions{MaxLength: 10})
	if got != "aaaaaaaaaa.xlsx" {
		t.Errorf("ResolveName(MaxLength=10) = %q", got)
	}
}

func TestResolveName_SanitizedBeforeTruncation(t *testing.T) {
	row := makeRow(0, "name", strings.Repeat("/", 20)+"abc")

	got := ResolveName(row, []string{"name"}, NameOptions{MaxLength: 3})
	if got != "abc.xlsx" {
		t.Errorf("ResolveName() = %q, want abc.xlsx", got)
	}
}

// ----------------------------------------------------------------------------
// NameRegistry
// ----------------------------------------------------------------------------

func TestNameRegistry_Allocate(t *testing.T) {
	reg := NewNameRegistry()

	got := []string{
		reg.Allocate("Report.xlsx"),
		reg.Allocate("Report.xlsx"),
		reg.Allocate("Report.xlsx"),
		reg.Allocate("Other.xlsx"),
		reg.Allocate("Report_(1).xlsx"),
	}
	want := []string{
		"Report.xlsx",
		"Report_(1).xlsx",
		"Report_(2).xlsx",
		"Other.xlsx",
		"Report_(1)_(1).xlsx",
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Allocate #%d = %q, want %q", i, got[i], want[i])
		}
	}
	if reg.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", reg.Len(), len(want))
	}
}

func TestNameRegistry_NoExtension(t *testing.T) {
	reg := NewNameRegistry()
	reg.Allocate("readme")

	if got := reg.Allocate("readme"); got != "readme_(1)" {
		t.Errorf("Allocate() = %q, want readme_(1)", got)
	}
}

func TestNameRegistry_Deterministic(t *testing.T) {
	names := []string{"a.xlsx", "b.xlsx", "a.xlsx", "a.xlsx", "b.xlsx", "c.xlsx"}

	run := func() []string {
		reg := NewNameRegistry()
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = reg.Allocate(n)
		}
		return out
	}

	first, second := run(), run()
	seen := make(map[string]bool)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("run differs at %d: %q vs %q", i, first[i], second[i])
		}
		if seen[first[i]] {
			t.Errorf("duplicate allocation %q", first[i])
		}
		seen[first[i]] = true
	}
}
