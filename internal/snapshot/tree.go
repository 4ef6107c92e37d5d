package snapshot

import (
	"fmt"
	"sort"
)

// Node is one arena slot. Children hold arena indexes, never pointers, so
// the built tree cannot alias or cycle.
type Node struct {
	Section  *Section
	Parent   int // arena index, -1 for roots
	Children []int
}

// Tree is the arena form of a snapshot's section hierarchy.
type Tree struct {
	Nodes []Node
	Roots []int
}

// BuildTree materializes the section tree in two passes: pass one allocates
// an arena node per section and records each node's parent key, pass two
// appends child indexes to their parents. Duplicate keys, unresolvable
// parent paths and inconsistent ancestor chains are rejected.
func BuildTree(s *Snapshot) (*Tree, error) {
	t := &Tree{Nodes: make([]Node, 0, len(s.Sections))}
	byKey := make(map[string]int, len(s.Sections))

	for i := range s.Sections {
		sec := &s.Sections[i]
		if _, dup := byKey[sec.Key]; dup {
			return nil, fmt.Errorf("duplicate section key %q", sec.Key)
		}
		for _, anc := range sec.ParentPath {
			if anc == sec.Key {
				return nil, fmt.Errorf("section %q lists itself as an ancestor", sec.Key)
			}
		}
		byKey[sec.Key] = len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{Section: sec, Parent: -1})
	}

	for i := range t.Nodes {
		sec := t.Nodes[i].Section
		if len(sec.ParentPath) == 0 {
			t.Roots = append(t.Roots, i)
			continue
		}
		for _, anc := range sec.ParentPath {
			if _, ok := byKey[anc]; !ok {
				return nil, fmt.Errorf("section %q references missing ancestor %q", sec.Key, anc)
			}
		}
		parentKey := sec.ParentPath[len(sec.ParentPath)-1]
		pi := byKey[parentKey]
		parent := t.Nodes[pi].Section
		// A node's path must be its parent's path plus the parent itself,
		// which rules out mutually-parented pairs.
		if len(sec.ParentPath) != len(parent.ParentPath)+1 {
			return nil, fmt.Errorf("section %q has inconsistent parent path via %q", sec.Key, parentKey)
		}
		for j, anc := range parent.ParentPath {
			if sec.ParentPath[j] != anc {
				return nil, fmt.Errorf("section %q has inconsistent parent path via %q", sec.Key, parentKey)
			}
		}
		t.Nodes[i].Parent = pi
		t.Nodes[pi].Children = append(t.Nodes[pi].Children, i)
	}

	sortSiblings := func(idx []int) {
		sort.SliceStable(idx, func(a, b int) bool {
			sa, sb := t.Nodes[idx[a]].Section, t.Nodes[idx[b]].Section
			if sa.Position != sb.Position {
				return sa.Position < sb.Position
			}
			return sa.Key < sb.Key
		})
	}
	sortSiblings(t.Roots)
	for i := range t.Nodes {
		sortSiblings(t.Nodes[i].Children)
	}
	return t, nil
}
