// Package render holds the request-scoped rendering primitives: the
// explicit evaluation context, the output document shape, condition
// evaluation and placeholder interpolation. Nothing here reads ambient
// state; everything a dynamic step needs arrives as a parameter.
package render

import (
	"time"

	"github.com/google/uuid"
)

// Context carries the live state dynamic evaluation runs against: who is
// asking, when, and in which language. It is threaded explicitly into every
// condition and interpolation call.
type Context struct {
	UserID        uuid.UUID
	Roles         []string
	Authenticated bool
	Now           time.Time
	Language      string

	// Attributes are caller-supplied scalar facts (e.g. query params,
	// profile fields) that stored conditions may reference by name.
	Attributes map[string]string
}

// HasRole reports whether the context carries the given role.
func (c Context) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Attribute resolves a named fact, falling back to the built-in fields.
func (c Context) Attribute(name string) (string, bool) {
	switch name {
	case "user_id":
		if c.UserID == uuid.Nil {
			return "", false
		}
		return c.UserID.String(), true
	case "language":
		return c.Language, true
	}
	v, ok := c.Attributes[name]
	return v, ok
}
