package core

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single sheet written by EncodeXLSX.
const SheetName = "Sheet1"

// EncodeXLSX writes p to a single-sheet workbook: one header row from
// p.Columns followed by the records, in order, with no index column.
func EncodeXLSX(p *Payload) ([]byte, error) {
	if p == nil {
		p = &Payload{}
	}

	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}

	width := len(p.Columns)
	for _, rec := range p.Records {
		if len(rec) > width {
			return nil, fmt.Errorf("encode xlsx: record has %d values for %d columns", len(rec), width)
		}
	}

	if width > 0 {
		header := make([]any, width)
		for i, c := range p.Columns {
			header[i] = c
		}
		if err := sw.SetRow("A1", header); err != nil {
			return nil, fmt.Errorf("encode xlsx header: %w", err)
		}
	}

	for i, rec := range p.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("encode xlsx row %d: %w", i, err)
		}
		if err := sw.SetRow(cell, rec); err != nil {
			return nil, fmt.Errorf("encode xlsx row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
