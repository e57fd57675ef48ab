package market

import "strings"

// GuestID is the canonical id for callers without a usable identity.
const GuestID = "me_dummy"

// Identity maps raw user ids onto the canonical ids used as storage keys.
type Identity struct {
	GuestID string
	// ForeignPrefixes mark ids issued by an external provider. Those cannot
	// be reconciled with local records yet and collapse to GuestID.
	ForeignPrefixes []string
}

// DefaultIdentity recognizes the firebase: namespace.
func DefaultIdentity() Identity {
	return Identity{GuestID: GuestID, ForeignPrefixes: []string{"firebase:"}}
}

// Normalize returns the canonical form of id.
func (i Identity) Normalize(id string) string {
	guest := i.GuestID
	if guest == "" {
		guest = GuestID
	}
	id = strings.TrimSpace(id)
	if id == "" || id == "undefined" {
		return guest
	}
	for _, p := range i.ForeignPrefixes {
		if p != "" && strings.HasPrefix(id, p) {
			return guest
		}
	}
	return id
}
