package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeProductID computes a deterministic product identity id using SHA256.
// Formula: SHA256(query|normalized_title)
// Returns hex-encoded hash (64 characters).
//
// The id depends only on what the resolver saw at creation time, so two
// processes creating the identity for the same first sighting converge on
// the same id instead of forking the catalog.
func ComputeProductID(query, normalizedTitle string) string {
	data := fmt.Sprintf("%s|%s", query, normalizedTitle)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
