package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/rowfetch/internal/logging"
)

// ============================================================================
// Filename Benchmarks
// ============================================================================

// BenchmarkSanitize benchmarks filename sanitizing, which runs once per row.
func BenchmarkSanitize(b *testing.B) {
	inputs := []string{
		"Q1 Report",
		"Inflasi_Januari_2024",
		"a/b\\c:d*e?f\"g<h>i|j",
		strings.Repeat("long name ", 20),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, in := range inputs {
			_ = Sanitize(in)
		}
	}
}

// BenchmarkNameRegistry_Collisions benchmarks the suffix search when every
// row resolves to the same name.
func BenchmarkNameRegistry_Collisions(b *testing.B) {
	for i := 0; i < b.N; i++ {
		reg := NewNameRegistry()
		for j := 0; j < 200; j++ {
			_ = reg.Allocate("Report.xlsx")
		}
	}
}

// ============================================================================
// Decode / Encode Benchmarks
// ============================================================================

func benchmarkJSON(records int) []byte {
	var sb strings.Builder
	sb.WriteString(`{"data":[`)
	for i := 0; i < records; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `{"id":%d,"region":"R%d","value":%d.5,"tags":["a","b"]}`, i, i%7, i)
	}
	sb.WriteString(`]}`)
	return []byte(sb.String())
}

// BenchmarkDecodeJSON benchmarks order-preserving JSON tabulation.
func BenchmarkDecodeJSON(b *testing.B) {
	body := benchmarkJSON(1000)
	b.SetBytes(int64(len(body)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeJSON(body); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEncodeXLSX benchmarks spreadsheet encoding of a decoded payload.
func BenchmarkEncodeXLSX(b *testing.B) {
	p, err := DecodeJSON(benchmarkJSON(1000))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := EncodeXLSX(p); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Export Benchmarks
// ============================================================================

// BenchmarkExport benchmarks a full export over an in-memory fetcher with
// repeated URLs and names.
func BenchmarkExport(b *testing.B) {
	payload, err := DecodeJSON(benchmarkJSON(100))
	if err != nil {
		b.Fatal(err)
	}
	fetcher := FetcherFunc(func(context.Context, string) FetchResult {
		return FetchResult{Payload: payload}
	})

	rows := make([]Row, 50)
	for i := range rows {
		rows[i] = makeRow(i, "url", fmt.Sprintf("http://data.example/%d", i%10), "name", fmt.Sprintf("Report %d", i%5))
	}
	req := ExportRequest{Rows: rows, URLField: "url", NameFields: []string{"name"}}
	exporter := NewExporter(fetcher, WithLogger(logging.Discard()))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := exporter.Export(context.Background(), req, nil); err != nil {
			b.Fatal(err)
		}
	}
}
