// Package diff computes structural differences between two page snapshots.
// All computation happens over the canonical normalized form, so cosmetic
// differences (whitespace, key order, section order drift) never show up as
// changes.
package diff

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"

	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

// Format selects the diff output shape.
type Format string

const (
	// FormatJSONPatch is an RFC 6902 operation sequence: applying it to the
	// normalized A reproduces the normalized B exactly.
	FormatJSONPatch Format = "json_patch"
	// FormatJSONMergePatch is a single RFC 7386 overlay document. It cannot
	// express array reordering precisely and is meant for coarse summaries.
	FormatJSONMergePatch Format = "json_merge_patch"
	FormatUnified        Format = "unified"
	FormatSideBySide     Format = "side_by_side"
	FormatSummary        Format = "summary"
)

// ParseFormat rejects unknown formats before any computation happens.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	switch f {
	case FormatJSONPatch, FormatJSONMergePatch, FormatUnified, FormatSideBySide, FormatSummary:
		return f, nil
	}
	return "", fmt.Errorf("unknown diff format %q", s)
}

// Result is the outcome of one comparison; exactly one of Patch, Text,
// Summary is populated depending on Format.
type Result struct {
	Format  Format          `json:"format"`
	Patch   json.RawMessage `json:"patch,omitempty"`
	Text    string          `json:"text,omitempty"`
	Summary *Summary        `json:"summary,omitempty"`
}

// Diff compares two snapshots in the requested format. It never fails for
// structurally valid input; the only error paths are an unknown format and
// marshaling breakage.
func Diff(a, b *snapshot.Snapshot, format Format) (*Result, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	na, nb := snapshot.Normalize(a), snapshot.Normalize(b)

	switch format {
	case FormatJSONPatch:
		patch, err := jsondiff.Compare(na, nb)
		if err != nil {
			return nil, fmt.Errorf("compute json patch: %w", err)
		}
		raw, err := json.Marshal(patch)
		if err != nil {
			return nil, fmt.Errorf("marshal json patch: %w", err)
		}
		return &Result{Format: format, Patch: raw}, nil

	case FormatJSONMergePatch:
		ab, err := json.Marshal(na)
		if err != nil {
			return nil, fmt.Errorf("marshal snapshot a: %w", err)
		}
		bb, err := json.Marshal(nb)
		if err != nil {
			return nil, fmt.Errorf("marshal snapshot b: %w", err)
		}
		merge, err := jsonpatch.CreateMergePatch(ab, bb)
		if err != nil {
			return nil, fmt.Errorf("compute merge patch: %w", err)
		}
		return &Result{Format: format, Patch: merge}, nil

	case FormatUnified, FormatSideBySide:
		text, err := textDiff(na, nb, format)
		if err != nil {
			return nil, err
		}
		return &Result{Format: format, Text: text}, nil

	case FormatSummary:
		return &Result{Format: format, Summary: summarize(na, nb)}, nil
	}
	return nil, fmt.Errorf("unknown diff format %q", format)
}
