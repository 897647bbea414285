// Package entitykey parses and validates entity-type keys.
//
// An entity type names a kind of business object. Fixed types come from the
// collaborator routers ("client", "project", ...); tenant-invented types use
// the "generic:<slug>" convention. The key is validated here at the API
// boundary and stored as a plain string everywhere below, so new tenant
// types need no schema or code changes.
package entitykey

import (
	"regexp"
	"strings"

	"metakit/internal/core/apperror"
)

// Kind distinguishes fixed collaborator types from tenant-invented ones.
type Kind int

const (
	// KindFixed is a statically known collaborator type, e.g. "client".
	KindFixed Kind = iota

	// KindGeneric is a tenant-invented type, e.g. "generic:vendors".
	KindGeneric
)

// GenericPrefix marks tenant-invented entity types.
const GenericPrefix = "generic:"

var (
	fixedRE = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	slugRE  = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// Key is a validated entity-type key.
type Key struct {
	// Raw is the string form as stored ("client", "generic:vendors").
	Raw string

	// Kind tells whether this is a fixed or generic type.
	Kind Kind

	// Slug is the part after "generic:" for generic keys, empty otherwise.
	Slug string
}

// String returns the storage form.
func (k Key) String() string { return k.Raw }

// IsGeneric reports whether the key names a tenant-invented type.
func (k Key) IsGeneric() bool { return k.Kind == KindGeneric }

// Parse validates s and returns its Key.
// Fixed keys must match [a-z][a-z0-9_]*; generic keys must be
// "generic:" followed by a non-empty lowercase slug.
func Parse(s string) (Key, error) {
	if s == "" {
		return Key{}, apperror.NewInvalidInput("entity type is required").
			WithDetail("field", "entityType")
	}

	if strings.HasPrefix(s, GenericPrefix) {
		slug := strings.TrimPrefix(s, GenericPrefix)
		if !slugRE.MatchString(slug) {
			return Key{}, apperror.NewInvalidInput("invalid generic entity type slug").
				WithDetail("field", "entityType").
				WithDetail("value", s)
		}
		return Key{Raw: s, Kind: KindGeneric, Slug: slug}, nil
	}

	if !fixedRE.MatchString(s) {
		return Key{}, apperror.NewInvalidInput("invalid entity type").
			WithDetail("field", "entityType").
			WithDetail("value", s)
	}
	return Key{Raw: s, Kind: KindFixed}, nil
}

// MustParse parses s, panicking on error. Use only for constants and tests.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic("entitykey: " + err.Error())
	}
	return k
}
