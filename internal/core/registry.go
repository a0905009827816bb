package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Profile is a named naming schema: which column holds the URL and which
// columns, in order, build the filename.
type Profile struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	URLColumn   string   `json:"url_column,omitempty"`
	NameColumns []string `json:"name_columns,omitempty"`

	// RequireNames makes every naming column required for a row to be usable.
	RequireNames bool `json:"require_names"`

	// Custom profiles take the URL and naming columns from the operator
	// at upload time instead of from the profile.
	Custom bool `json:"custom"`
}

// Columns returns the URL column followed by the naming columns.
func (p Profile) Columns() []string {
	if p.Custom {
		return nil
	}
	return append([]string{p.URLColumn}, p.NameColumns...)
}

// Binding is a profile resolved against a concrete upload header.
type Binding struct {
	Profile    string   `json:"profile"`
	URLField   string   `json:"url_field"`
	NameFields []string `json:"name_fields"`
	Required   []string `json:"required"`
}

// Bind resolves the profile's columns against header. For custom profiles
// urlColumn and nameColumns supply the selection; otherwise they are ignored.
// Column names match case-insensitively and the header's spelling is kept.
func (p Profile) Bind(header []string, urlColumn string, nameColumns []string) (Binding, error) {
	wantURL, wantNames := p.URLColumn, p.NameColumns
	if p.Custom {
		wantURL, wantNames = strings.TrimSpace(urlColumn), nameColumns
		if wantURL == "" {
			return Binding{}, ErrURLColumnRequired
		}
	}

	want := append([]string{wantURL}, wantNames...)
	if err := ValidateHeaders(header, want); err != nil {
		return Binding{}, err
	}

	idx := MakeHeaderIndex(header)
	b := Binding{Profile: p.Key}
	b.URLField, _ = idx.Resolve(wantURL)
	for _, n := range wantNames {
		col, _ := idx.Resolve(n)
		b.NameFields = append(b.NameFields, col)
	}

	b.Required = []string{b.URLField}
	if p.RequireNames {
		b.Required = append(b.Required, b.NameFields...)
	}
	return b, nil
}

var (
	profiles   = make(map[string]Profile)
	profilesMu sync.RWMutex
)

// RegisterProfile adds a profile to the registry.
// Panics if a profile with the same key is already registered.
func RegisterProfile(p Profile) {
	profilesMu.Lock()
	defer profilesMu.Unlock()

	if _, exists := profiles[p.Key]; exists {
		panic(fmt.Sprintf("profile already registered: %s", p.Key))
	}
	if !p.Custom && p.URLColumn == "" {
		panic(fmt.Sprintf("profile %s has no URL column", p.Key))
	}

	profiles[p.Key] = p
}

// GetProfile returns a profile by key.
func GetProfile(key string) (Profile, bool) {
	profilesMu.RLock()
	defer profilesMu.RUnlock()

	p, ok := profiles[key]
	return p, ok
}

// LookupProfile is GetProfile returning ErrUnknownProfile for a missing key.
func LookupProfile(key string) (Profile, error) {
	p, ok := GetProfile(key)
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, key)
	}
	return p, nil
}

// Profiles returns every registered profile. Fixed schemas come first,
// then custom ones, each sorted by key.
func Profiles() []Profile {
	profilesMu.RLock()
	defer profilesMu.RUnlock()

	result := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Custom != result[j].Custom {
			return !result[i].Custom
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// ClearProfiles removes all registered profiles.
// Primarily useful for testing.
func ClearProfiles() {
	profilesMu.Lock()
	defer profilesMu.Unlock()
	profiles = make(map[string]Profile)
}
