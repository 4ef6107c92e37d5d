package snapshot

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a cheap structural hash over the canonical form, used for
// O(1) draft-vs-published drift checks without full diffing. Equal
// fingerprints mean structurally equal snapshots.
func Fingerprint(s *Snapshot) (string, error) {
	b, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("marshal canonical snapshot: %w", err)
	}
	return fmt.Sprintf("xxh64:%016x", xxhash.Sum64(b)), nil
}
