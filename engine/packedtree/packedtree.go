// Copyright 2025 The Routecore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package packedtree implements a breadth-first-packed trie over path
// segments, walked recursively with constraint-check hooks.
//
// Grounded on radix.go's node/edge shape (per-segment children scanned
// linearly, no map hashing in the hot path) — the builder here keeps that
// same node-and-edge tree while constructing, then flattens it
// breadth-first into an index-linked PackedEntry array, with packed
// array indices replacing pointers.
//
// Complex (mixed literal+parameter) segments cannot be represented as a
// single packed-tree node key, so the builder rejects them at build time
// (ErrComplexSegmentUnsupported). The DFA matcher (engine/dfa) is the
// one engine that does support them.
package packedtree

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/routecore/routecore/constraint"
	"github.com/routecore/routecore/endpoint"
	"github.com/routecore/routecore/match"
	"github.com/routecore/routecore/template"
	"github.com/routecore/routecore/values"
)

// ErrComplexSegmentUnsupported is returned at build time for any template
// containing a segment that mixes literal and parameter parts.
var ErrComplexSegmentUnsupported = errors.New("packedtree: complex segments are not supported")

// absent is the packed-array sentinel for "no child" / "no next sibling".
const absent = int32(-1)

// Kind identifies the branch key of a PackedEntry.
type Kind uint8

const (
	Root Kind = iota
	Literal
	Parameter
	Catchall
)

// matchEntry is a terminal binding at a packed tree node.
type matchEntry struct {
	matcher *match.TemplateMatcher
	entry   *endpoint.InboundRouteEntry
}

// PackedEntry is one node in the flattened packed array.
type PackedEntry struct {
	Kind        Kind
	Value       string // literal text, lowercased; empty otherwise
	FirstChild  int32
	NextSibling int32
	Matches     []matchEntry
}

// Matcher is the built, immutable packed tree.
type Matcher struct {
	packed []PackedEntry
}

// builderNode is the intermediate, pointer-based tree used only during
// Build; never exposed once flattened.
type builderNode struct {
	kind     Kind
	value    string
	children []*builderNode
	matches  []matchEntry
}

func (n *builderNode) findChild(kind Kind, value string) *builderNode {
	for _, c := range n.children {
		if c.kind == kind && c.value == value {
			return c
		}
	}
	return nil
}

// findOrCreateChild inserts (or reuses) a child, keeping siblings ordered
// Literal < Parameter < Catchall so that tree-walk sibling order mirrors
// inbound precedence: literal branches are always tried before parameter
// branches, which are tried before the catch-all fallback.
func (n *builderNode) findOrCreateChild(kind Kind, value string) *builderNode {
	if c := n.findChild(kind, value); c != nil {
		return c
	}
	child := &builderNode{kind: kind, value: value}

	insertPos := len(n.children)
	switch kind {
	case Literal:
		insertPos = 0
		for insertPos < len(n.children) && n.children[insertPos].kind == Literal {
			insertPos++
		}
	case Parameter:
		insertPos = 0
		for insertPos < len(n.children) && n.children[insertPos].kind != Catchall {
			insertPos++
		}
	case Catchall:
		insertPos = len(n.children)
	}

	n.children = append(n.children, nil)
	copy(n.children[insertPos+1:], n.children[insertPos:])
	n.children[insertPos] = child
	return child
}

// Build compiles entries into a packed tree matcher. entries are sorted
// by precedence (most specific first) before insertion, so that match
// lists at shared terminal nodes are already priority-ordered.
func Build(entries []*endpoint.InboundRouteEntry, engine *constraint.Engine) (*Matcher, error) {
	sorted := make([]*endpoint.InboundRouteEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Precedence.Less(sorted[j].Precedence)
	})

	root := &builderNode{kind: Root}
	for _, e := range sorted {
		if err := insert(root, e, engine); err != nil {
			return nil, err
		}
	}

	return &Matcher{packed: flatten(root)}, nil
}

func insert(root *builderNode, e *endpoint.InboundRouteEntry, engine *constraint.Engine) error {
	tpl := e.Template
	required := tpl.RequiredSegmentCount()

	node := root
	for i := 0; i < len(tpl.Segments); i++ {
		seg := tpl.Segments[i]
		if !seg.IsSimple() {
			return fmt.Errorf("%w: %s", ErrComplexSegmentUnsupported, tpl.TemplateText)
		}

		part := seg.Parts[0]
		switch {
		case part.Kind == template.Literal:
			node = node.findOrCreateChild(Literal, strings.ToLower(part.Text))
		case part.Opts.IsCatchAll:
			node = node.findOrCreateChild(Catchall, "")
		default:
			node = node.findOrCreateChild(Parameter, "")
		}

		isAfterRequired := i+1 >= required
		if isAfterRequired {
			attachMatch(node, e, engine)
		}
	}

	return nil
}

func attachMatch(node *builderNode, e *endpoint.InboundRouteEntry, engine *constraint.Engine) {
	node.matches = append(node.matches, matchEntry{
		matcher: match.New(e, engine),
		entry:   e,
	})
}

// flatten performs a breadth-first walk, assigning each builder node a
// packed-array index and wiring FirstChild/NextSibling from the
// already-ordered children slices.
func flatten(root *builderNode) []PackedEntry {
	order := []*builderNode{root}
	indexOf := map[*builderNode]int32{root: 0}

	for i := 0; i < len(order); i++ {
		for _, c := range order[i].children {
			indexOf[c] = int32(len(order))
			order = append(order, c)
		}
	}

	packed := make([]PackedEntry, len(order))
	for i, n := range order {
		pe := PackedEntry{Kind: n.kind, Value: n.value, FirstChild: absent, NextSibling: absent, Matches: n.matches}
		if len(n.children) > 0 {
			pe.FirstChild = indexOf[n.children[0]]
		}
		packed[i] = pe
	}

	// wire sibling chains now that every index is known
	for _, n := range order {
		for i, c := range n.children {
			if i+1 < len(n.children) {
				packed[indexOf[c]].NextSibling = indexOf[n.children[i+1]]
			}
		}
	}

	return packed
}

func splitSegments(path string) []string {
	if path == "" || path == "/" {
		return nil
	}
	trimmed := strings.TrimPrefix(path, "/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Match dispatches path to at most one endpoint. A nil/false result is a
// clean "no match" — constraint rejections along the way never
// propagate as errors.
func (m *Matcher) Match(path string) (*endpoint.InboundRouteEntry, *values.Values, bool) {
	segs := splitSegments(path)
	out := values.New(4)

	if entry := m.matchChildren(0, segs, 0, path, out); entry != nil {
		return entry, out, true
	}
	return nil, nil, false
}

// matchChildren iterates the children of parentIdx in sibling order,
// recursing into the first one whose branch leads to a full match.
func (m *Matcher) matchChildren(parentIdx int32, segs []string, pos int, path string, out *values.Values) *endpoint.InboundRouteEntry {
	for childIdx := m.packed[parentIdx].FirstChild; childIdx != absent; childIdx = m.packed[childIdx].NextSibling {
		child := &m.packed[childIdx]

		switch child.Kind {
		case Catchall:
			if entry := m.tryMatches(child, path, out); entry != nil {
				return entry
			}
		case Literal:
			if pos >= len(segs) || !strings.EqualFold(child.Value, segs[pos]) {
				continue
			}
			if entry := m.descend(childIdx, segs, pos+1, path, out); entry != nil {
				return entry
			}
		case Parameter:
			if pos >= len(segs) {
				continue
			}
			if entry := m.descend(childIdx, segs, pos+1, path, out); entry != nil {
				return entry
			}
		}
	}
	return nil
}

// descend is invoked once the token at nodeIdx's position has already
// matched structurally; it tries the node's own match entries (when the
// path is fully consumed) and then its children (for more path, or a
// zero-residue catch-all).
func (m *Matcher) descend(nodeIdx int32, segs []string, pos int, path string, out *values.Values) *endpoint.InboundRouteEntry {
	node := &m.packed[nodeIdx]
	if pos == len(segs) && len(node.Matches) > 0 {
		if entry := m.tryMatches(node, path, out); entry != nil {
			return entry
		}
	}
	return m.matchChildren(nodeIdx, segs, pos, path, out)
}

// tryMatches attempts each candidate entry at node in priority order,
// snapshotting and restoring out around every attempt.
func (m *Matcher) tryMatches(node *PackedEntry, path string, out *values.Values) *endpoint.InboundRouteEntry {
	for _, me := range node.Matches {
		mark := out.Mark()
		if me.matcher.TryMatch(path, out) {
			return me.entry
		}
		out.Restore(mark)
	}
	return nil
}
