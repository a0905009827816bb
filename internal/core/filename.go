package core

import (
	"fmt"
	"path"
	"strings"
)

// Filename defaults.
const (
	DefaultNameSeparator = "_"
	DefaultBaseName      = "untitled"
	DefaultMaxNameLength = 100
	DefaultExtension     = ".xlsx"
)

// NameOptions controls how filenames are built from naming fields.
// Zero values fall back to the package defaults.
type NameOptions struct {
	Separator   string
	DefaultBase string
	MaxLength   int
	Extension   string
}

func (o NameOptions) withDefaults() NameOptions {
	if o.Separator == "" {
		o.Separator = DefaultNameSeparator
	}
	if Sanitize(o.DefaultBase) == "" {
		o.DefaultBase = DefaultBaseName
	}
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxNameLength
	}
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	return o
}

// ResolveName builds the archive filename for row from nameFields.
//
// Present, non-empty field values are joined in order with the separator,
// sanitized, and truncated to MaxLength before the extension is appended.
// When nothing survives, the default base name is used.
func ResolveName(row Row, nameFields []string, opts NameOptions) string {
	opts = opts.withDefaults()

	parts := make([]string, 0, len(nameFields))
	for _, field := range nameFields {
		if v := row.Get(field); v != "" {
			parts = append(parts, v)
		}
	}

	base := Sanitize(strings.Join(parts, opts.Separator))
	if base == "" {
		base = Sanitize(opts.DefaultBase)
	}
	if len(base) > opts.MaxLength {
		base = base[:opts.MaxLength]
	}

	return base + opts.Extension
}

// Sanitize replaces spaces with underscores and drops every character that
// is not an ASCII letter, digit, dot, underscore, or hyphen. It is idempotent.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NameRegistry tracks filenames allocated within one archive.
// It is not safe for concurrent use.
type NameRegistry struct {
	used map[string]struct{}
}

// NewNameRegistry returns an empty registry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{used: make(map[string]struct{})}
}

// Allocate returns name if unused, otherwise "base_(N).ext" for the smallest
// N >= 1 that is free. The returned name is recorded as used.
func (r *NameRegistry) Allocate(name string) string {
	candidate := name
	if _, taken := r.used[candidate]; taken {
		ext := path.Ext(name)
		base := strings.TrimSuffix(name, ext)
		for n := 1; ; n++ {
			candidate = fmt.Sprintf("%s_(%d)%s", base, n, ext)
			if _, taken := r.used[candidate]; !taken {
				break
			}
		}
	}
	r.used[candidate] = struct{}{}
	return candidate
}

// Contains reports whether name has been allocated.
func (r *NameRegistry) Contains(name string) bool {
	_, ok := r.used[name]
	return ok
}

// Len returns the number of allocated names.
func (r *NameRegistry) Len() int {
	return len(r.used)
}
