package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

const sideBySideWidth = 60

func textDiff(a, b *snapshot.Snapshot, format Format) (string, error) {
	ab, err := snapshot.MarshalPretty(a)
	if err != nil {
		return "", fmt.Errorf("pretty-print snapshot a: %w", err)
	}
	bb, err := snapshot.MarshalPretty(b)
	if err != nil {
		return "", fmt.Errorf("pretty-print snapshot b: %w", err)
	}
	left := difflib.SplitLines(string(ab))
	right := difflib.SplitLines(string(bb))

	if format == FormatUnified {
		return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        left,
			B:        right,
			FromFile: "version_a",
			ToFile:   "version_b",
			Context:  3,
		})
	}
	return sideBySide(left, right), nil
}

// sideBySide renders two columns from the matcher's opcodes: equal lines
// aligned, replacements paired row by row, inserts and deletes against a
// blank opposite column.
func sideBySide(left, right []string) string {
	var sb strings.Builder
	m := difflib.NewMatcher(left, right)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for i := op.I1; i < op.I2; i++ {
				writeRow(&sb, chomp(left[i]), ' ', chomp(right[op.J1+i-op.I1]))
			}
		case 'r':
			n := op.I2 - op.I1
			if op.J2-op.J1 > n {
				n = op.J2 - op.J1
			}
			for i := 0; i < n; i++ {
				var l, r string
				if op.I1+i < op.I2 {
					l = chomp(left[op.I1+i])
				}
				if op.J1+i < op.J2 {
					r = chomp(right[op.J1+i])
				}
				writeRow(&sb, l, '|', r)
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				writeRow(&sb, chomp(left[i]), '<', "")
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				writeRow(&sb, "", '>', chomp(right[j]))
			}
		}
	}
	return sb.String()
}

func writeRow(sb *strings.Builder, left string, marker byte, right string) {
	fmt.Fprintf(sb, "%-*s %c %s\n", sideBySideWidth, truncate(left), marker, truncate(right))
}

func truncate(s string) string {
	if len(s) <= sideBySideWidth {
		return s
	}
	// Cut on runes so a multi-byte character never splits at the column edge.
	r := []rune(s)
	if len(r) <= sideBySideWidth {
		return s
	}
	return string(r[:sideBySideWidth-1]) + "…"
}

func chomp(s string) string {
	return strings.TrimRight(s, "\n")
}
