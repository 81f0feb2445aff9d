// Package subject defines the identity key that scopes verification records
// and booking tokens: the (email, brand, position) triple a candidate applied
// under.
package subject

import (
	"fmt"
	"strings"
)

// Key identifies the candidate/brand/position triple a record is bound to.
type Key struct {
	Email    string `json:"email"`
	Brand    string `json:"brand"`
	Position string `json:"position"`
}

// New builds a normalized Key. Email comparison is case-insensitive.
func New(email, brand, position string) Key {
	return Key{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Brand:    strings.TrimSpace(brand),
		Position: strings.TrimSpace(position),
	}
}

// Canonical returns the stable string form of the key. It is the MAC input for
// signed links and the secondary lookup key in storage, so its format must not
// change without rotating every outstanding link.
func (k Key) Canonical() string {
	return fmt.Sprintf("%s|%s|%s", strings.ToLower(k.Email), k.Brand, k.Position)
}

func (k Key) IsZero() bool {
	return k.Email == "" && k.Brand == "" && k.Position == ""
}
