package core

import (
	"errors"
	"fmt"
)

// ErrNoTemplate is returned for profiles without fixed columns.
var ErrNoTemplate = errors.New("profile has no fixed columns")

// ProfileTemplate returns a workbook containing only the profile's header
// row, ready for an operator to fill in and upload.
func ProfileTemplate(p Profile) ([]byte, error) {
	cols := p.Columns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("template for %s: %w", p.Key, ErrNoTemplate)
	}
	return EncodeXLSX(&Payload{Columns: cols})
}

// TemplateFilename is the download name for a profile template.
func TemplateFilename(p Profile) string {
	return Sanitize(p.Key+" template") + DefaultExtension
}
