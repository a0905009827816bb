// Package profiles registers the naming profiles with the core registry.
// Import this package for its side effects to make every profile available.
package profiles

// Each profile file uses init() to register its profile.
