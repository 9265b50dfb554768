package domain

// ProductIdentity is the canonical cross-site identifier for one real-world
// product concept. Created exactly once on first sighting; identities are
// never merged or deleted afterwards. Aliases only grow.
// Corresponds to product_identities table.
type ProductIdentity struct {
	ID            string   // PRIMARY KEY, deterministic hash
	Query         string   // search term the identity was first seen under
	CanonicalName string   // normalized title at creation time
	Aliases       []string // normalized titles matched to this identity
	CreatedAt     int64    // Unix timestamp in milliseconds
	UpdatedAt     int64    // bumped on every match, tie-break signal
}

// HasAlias reports whether the normalized title is already recorded.
func (p *ProductIdentity) HasAlias(normalizedTitle string) bool {
	for _, a := range p.Aliases {
		if a == normalizedTitle {
			return true
		}
	}
	return false
}
