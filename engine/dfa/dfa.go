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

// Package dfa implements states connected by jump tables keyed on
// literal segment text, built by overlaying parameter branches onto a
// literal skeleton.
//
// Grounded on compiler/dynamic.go's buildFirstSegmentIndex (a jump table
// keyed by the first path byte, built once and consulted on every match).
// Literal keys are compared directly (case-insensitively), not hashed. The
// builder here generalizes the single-level first-byte index into a full
// multi-level state machine keyed on whole literal segments, one level per
// template segment instead of one level total.
//
// Unlike the packed tree and instruction matchers, a segment here is
// classified only as "this exact literal text" or "anything else" — a
// complex (mixed literal+parameter) segment falls into the "anything else"
// bucket alongside plain parameters, and is disambiguated only once the
// shared per-template matcher (package match) runs over the winning
// candidate. That is what lets this engine accept templates the other two
// reject at build time.
package dfa

import (
	"sort"
	"strings"

	"github.com/routecore/routecore/constraint"
	"github.com/routecore/routecore/endpoint"
	"github.com/routecore/routecore/match"
	"github.com/routecore/routecore/template"
	"github.com/routecore/routecore/values"
)

type matchEntry struct {
	matcher *match.TemplateMatcher
	entry   *endpoint.InboundRouteEntry
}

// builderNode is the intermediate, pointer-based tree used only during
// Build. literals holds exact-text branches; param is the "anything else"
// branch; catchAll is reachable only as the terminus of a trailing
// catch-all parameter and absorbs any residue, including none.
type builderNode struct {
	literals map[string]*builderNode
	param    *builderNode
	catchAll *builderNode
	matches  []matchEntry
}

// Transition is one literal jump-table entry.
type Transition struct {
	Text string
	Dest int32
}

// State is one node of the built DFA.
type State struct {
	Matches     []matchEntry
	Transitions []Transition
	Exit        int32 // destination when no literal transition matches
	CatchAll    int32 // destination absorbing any residue, including none
}

// Matcher is the built, immutable DFA.
type Matcher struct {
	states []State
}

// Build compiles entries into a DFA matcher via two passes: a literal
// skeleton pass, then a parameter-overlay pass that deep-copies each
// parameter branch's contents into every literal sibling introduced for
// the same template, so a literal branch also carries the candidates its
// sibling parameter branch would have reached.
func Build(entries []*endpoint.InboundRouteEntry, engine *constraint.Engine) (*Matcher, error) {
	sorted := make([]*endpoint.InboundRouteEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Precedence.Less(sorted[j].Precedence)
	})

	root := &builderNode{}
	buildSkeleton(root, sorted)
	overlayParameters(root, sorted, engine)

	return &Matcher{states: emitStates(root)}, nil
}

func segmentIsLiteral(seg template.Segment) bool {
	return seg.IsSimple() && seg.Parts[0].Kind == template.Literal
}

// buildSkeleton is pass 1: build the literal-and-param spine with no
// overlay merging and no matches attached yet.
func buildSkeleton(root *builderNode, sorted []*endpoint.InboundRouteEntry) {
	for _, e := range sorted {
		node := root
		for _, seg := range e.Template.Segments {
			if seg.IsCatchAll() {
				if node.catchAll == nil {
					node.catchAll = &builderNode{}
				}
				break
			}
			if segmentIsLiteral(seg) {
				lit := strings.ToLower(seg.Parts[0].Text)
				if node.literals == nil {
					node.literals = make(map[string]*builderNode)
				}
				child, ok := node.literals[lit]
				if !ok {
					child = &builderNode{}
					node.literals[lit] = child
				}
				node = child
			} else {
				if node.param == nil {
					node.param = &builderNode{}
				}
				node = node.param
			}
		}
	}
}

// overlayParameters is pass 2: re-walk every template carrying a working
// set of parent nodes, cloning each parameter branch's subtree into any
// literal sibling newly touched at the same position, and unioning
// children across the set whenever a parameter part is consumed.
func overlayParameters(root *builderNode, sorted []*endpoint.InboundRouteEntry, engine *constraint.Engine) {
	for _, e := range sorted {
		me := matchEntry{matcher: match.New(e, engine), entry: e}
		parents := []*builderNode{root}
		required := e.Template.RequiredSegmentCount()

		for i, seg := range e.Template.Segments {
			if seg.IsCatchAll() {
				for _, p := range parents {
					if p.catchAll == nil {
						p.catchAll = &builderNode{}
					}
					appendMatch(p.catchAll, me)
				}
				parents = nil
				break
			}

			if segmentIsLiteral(seg) {
				lit := strings.ToLower(seg.Parts[0].Text)
				next := make([]*builderNode, 0, len(parents))
				for _, p := range parents {
					if p.literals == nil {
						p.literals = make(map[string]*builderNode)
					}
					child, existed := p.literals[lit]
					if !existed {
						child = &builderNode{}
						p.literals[lit] = child
					}
					if p.param != nil {
						mergeInto(child, cloneSubtree(p.param))
					}
					next = append(next, child)
				}
				parents = next
			} else {
				var next []*builderNode
				for _, p := range parents {
					if p.param != nil {
						next = append(next, p.param)
					}
					for _, c := range p.literals {
						next = append(next, c)
					}
				}
				parents = next
			}

			// a path may stop after any required prefix when the rest of
			// the template is trailing optional segments
			if i+1 >= required && i+1 < len(e.Template.Segments) {
				for _, p := range parents {
					appendMatch(p, me)
				}
			}
		}

		for _, p := range parents {
			appendMatch(p, me)
		}
	}
}

func appendMatch(n *builderNode, me matchEntry) {
	for _, existing := range n.matches {
		if existing.entry == me.entry {
			return
		}
	}
	n.matches = append(n.matches, me)
}

// cloneSubtree deep-copies a builder subtree with an explicit work-stack
// rather than recursion: template depth is caller-controlled input, not a
// bounded constant, so an adversarial template set should not be able to
// exhaust the call stack during a build-time copy.
func cloneSubtree(root *builderNode) *builderNode {
	if root == nil {
		return nil
	}
	type job struct {
		src, dst *builderNode
	}
	dstRoot := &builderNode{}
	stack := []job{{root, dstRoot}}

	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		j.dst.matches = append([]matchEntry(nil), j.src.matches...)

		if j.src.literals != nil {
			j.dst.literals = make(map[string]*builderNode, len(j.src.literals))
			for k, c := range j.src.literals {
				nc := &builderNode{}
				j.dst.literals[k] = nc
				stack = append(stack, job{c, nc})
			}
		}
		if j.src.param != nil {
			nc := &builderNode{}
			j.dst.param = nc
			stack = append(stack, job{j.src.param, nc})
		}
		if j.src.catchAll != nil {
			nc := &builderNode{}
			j.dst.catchAll = nc
			stack = append(stack, job{j.src.catchAll, nc})
		}
	}
	return dstRoot
}

// mergeInto folds src (already an independent clone) into dst, preferring
// dst's own children on conflict and recursing into shared branches.
func mergeInto(dst, src *builderNode) {
	if src == nil {
		return
	}
	for _, me := range src.matches {
		appendMatch(dst, me)
	}
	for k, c := range src.literals {
		if dst.literals == nil {
			dst.literals = make(map[string]*builderNode)
		}
		if existing, ok := dst.literals[k]; ok {
			mergeInto(existing, c)
		} else {
			dst.literals[k] = c
		}
	}
	if src.param != nil {
		if dst.param == nil {
			dst.param = src.param
		} else {
			mergeInto(dst.param, src.param)
		}
	}
	if src.catchAll != nil {
		if dst.catchAll == nil {
			dst.catchAll = src.catchAll
		} else {
			mergeInto(dst.catchAll, src.catchAll)
		}
	}
}

// emitStates flattens the builder tree into the final State array via a
// breadth-first walk, assigning a trailing absorbing sink state that every
// unset Exit/CatchAll points to.
func emitStates(root *builderNode) []State {
	order := []*builderNode{root}
	indexOf := map[*builderNode]int32{root: 0}

	visit := func(n *builderNode) {
		if _, ok := indexOf[n]; !ok {
			indexOf[n] = int32(len(order))
			order = append(order, n)
		}
	}

	for i := 0; i < len(order); i++ {
		n := order[i]
		for _, k := range sortedKeys(n.literals) {
			visit(n.literals[k])
		}
		if n.param != nil {
			visit(n.param)
		}
		if n.catchAll != nil {
			visit(n.catchAll)
		}
	}

	sinkIdx := int32(len(order))
	order = append(order, &builderNode{})

	states := make([]State, len(order))
	for i, n := range order {
		s := State{Exit: sinkIdx, CatchAll: sinkIdx}
		s.Matches = sortedMatches(n.matches)
		for _, k := range sortedKeys(n.literals) {
			s.Transitions = append(s.Transitions, Transition{Text: k, Dest: indexOf[n.literals[k]]})
		}
		if n.param != nil {
			s.Exit = indexOf[n.param]
		}
		if n.catchAll != nil {
			s.CatchAll = indexOf[n.catchAll]
		}
		states[i] = s
	}
	return states
}

func sortedKeys(m map[string]*builderNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMatches(matches []matchEntry) []matchEntry {
	out := make([]matchEntry, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].entry.Precedence.Less(out[j].entry.Precedence)
	})
	return out
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

// Match dispatches path to at most one endpoint. At any given depth, a
// failed literal transition falls back to the parameter exit and finally
// to the catch-all, in that priority order — the same fallback order the
// packed tree matcher uses — since a pure single-pass walk has no way to
// recover from a constraint rejection deep inside the literal branch.
func (m *Matcher) Match(path string) (*endpoint.InboundRouteEntry, *values.Values, bool) {
	segs := splitSegments(path)
	out := values.New(4)

	if entry := m.matchFrom(0, segs, 0, path, out); entry != nil {
		return entry, out, true
	}
	return nil, nil, false
}

func (m *Matcher) matchFrom(stateIdx int32, segs []string, pos int, path string, out *values.Values) *endpoint.InboundRouteEntry {
	state := &m.states[stateIdx]

	if pos == len(segs) {
		if entry := m.tryMatches(state.Matches, path, out); entry != nil {
			return entry
		}
		if state.CatchAll != stateIdx {
			if entry := m.tryMatches(m.states[state.CatchAll].Matches, path, out); entry != nil {
				return entry
			}
		}
		return nil
	}

	token := segs[pos]
	for _, tr := range state.Transitions {
		if len(tr.Text) != len(token) || !strings.EqualFold(tr.Text, token) {
			continue
		}
		if entry := m.matchFrom(tr.Dest, segs, pos+1, path, out); entry != nil {
			return entry
		}
		break // jump-table keys are unique by construction; no other entry can match
	}

	if state.Exit != stateIdx {
		if entry := m.matchFrom(state.Exit, segs, pos+1, path, out); entry != nil {
			return entry
		}
	}

	if state.CatchAll != stateIdx {
		if entry := m.tryMatches(m.states[state.CatchAll].Matches, path, out); entry != nil {
			return entry
		}
	}

	return nil
}

func (m *Matcher) tryMatches(matches []matchEntry, path string, out *values.Values) *endpoint.InboundRouteEntry {
	for _, me := range matches {
		mark := out.Mark()
		if me.matcher.TryMatch(path, out) {
			return me.entry
		}
		out.Restore(mark)
	}
	return nil
}
