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

// Package instruction implements a flat Accept/Branch/Jump opcode stream
// interpreted against a pre-tokenised path. Functionally equivalent to the
// DFA matcher, but compiled to a linear program instead of a graph of
// states, as a baseline/benchmark counterpart.
//
// Grounded on compiler/dynamic.go's matchAndExtract, specifically its
// stack-allocated segment buffer ("16 segments should be enough for any
// reasonable route") — generalized here into a 32-slot tokeniser, with
// Go's ordinary slice growth serving as the spill path once a path
// exceeds that count, rather than rejecting it outright.
//
// Like the packed tree matcher, templates with complex (mixed
// literal+parameter) segments are rejected at build time: a Branch's
// jump table is keyed on whole-segment literal text, which cannot
// express a segment made of more than one part.
package instruction

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
var ErrComplexSegmentUnsupported = errors.New("instruction: complex segments are not supported")

// Op identifies the opcode of one Instruction.
type Op uint8

const (
	// OpAccept attempts the matches[Payload] candidate; on success it
	// records the result (if none is recorded yet) and always advances.
	OpAccept Op = iota
	// OpBranch consults tables[Payload] against the path's current depth.
	OpBranch
	// OpJump sets PC unconditionally to Payload.
	OpJump
)

// Instruction is one flat opcode. There is no runtime representation of
// the builder's transient Pop — by the time a Program is built, every
// placeholder Pop has been rewritten to an OpJump with its final target.
type Instruction struct {
	Op      Op
	Payload int
}

// Transition is one literal entry of a JumpTable.
type Transition struct {
	Text string
	Dest int
}

// JumpTable drives one OpBranch: it knows which tokenised segment to
// examine (Depth) and where to go when no literal text matches (Exit).
type JumpTable struct {
	Depth   int
	Entries []Transition
	Exit    int
}

type matchEntry struct {
	matcher *match.TemplateMatcher
	entry   *endpoint.InboundRouteEntry
}

// Program is the built, immutable instruction stream.
type Program struct {
	instructions []Instruction
	tables       []JumpTable
	matches      []matchEntry
}

// Kind identifies the branch key of a builder node.
type kind uint8

const (
	literalKind kind = iota
	parameterKind
	catchallKind
)

type builderNode struct {
	kind      kind
	value     string
	children  []*builderNode
	matchIdxs []int
}

func (n *builderNode) findChild(k kind, value string) *builderNode {
	for _, c := range n.children {
		if c.kind == k && c.value == value {
			return c
		}
	}
	return nil
}

// findOrCreateChild keeps siblings ordered literal < parameter < catchall,
// same convention as the packed tree builder, so that whichever engine is
// chosen, structural narrowing tries the same branches in the same order.
func (n *builderNode) findOrCreateChild(k kind, value string) *builderNode {
	if c := n.findChild(k, value); c != nil {
		return c
	}
	child := &builderNode{kind: k, value: value}

	insertPos := len(n.children)
	switch k {
	case literalKind:
		insertPos = 0
		for insertPos < len(n.children) && n.children[insertPos].kind == literalKind {
			insertPos++
		}
	case parameterKind:
		insertPos = 0
		for insertPos < len(n.children) && n.children[insertPos].kind != catchallKind {
			insertPos++
		}
	case catchallKind:
		insertPos = len(n.children)
	}

	n.children = append(n.children, nil)
	copy(n.children[insertPos+1:], n.children[insertPos:])
	n.children[insertPos] = child
	return child
}

// Build compiles entries into an instruction program.
func Build(entries []*endpoint.InboundRouteEntry, engine *constraint.Engine) (*Program, error) {
	sorted := make([]*endpoint.InboundRouteEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Precedence.Less(sorted[j].Precedence)
	})

	root := &builderNode{}
	var matches []matchEntry
	for _, e := range sorted {
		if err := insert(root, e, engine, &matches); err != nil {
			return nil, err
		}
	}

	lb := &lowerBuilder{}
	lb.lowerNode(root, 0)

	return &Program{instructions: lb.program, tables: lb.tables, matches: matches}, nil
}

func insert(root *builderNode, e *endpoint.InboundRouteEntry, engine *constraint.Engine, matches *[]matchEntry) error {
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
			node = node.findOrCreateChild(literalKind, strings.ToLower(part.Text))
		case part.Opts.IsCatchAll:
			node = node.findOrCreateChild(catchallKind, "")
		default:
			node = node.findOrCreateChild(parameterKind, "")
		}

		if i+1 >= required {
			idx := len(*matches)
			*matches = append(*matches, matchEntry{matcher: match.New(e, engine), entry: e})
			node.matchIdxs = append(node.matchIdxs, idx)
		}
	}
	return nil
}

// lowerBuilder accumulates the flat instruction stream and its jump
// tables during a single recursive descent of the builder tree. The
// descent itself runs once, at build time, over caller-supplied
// templates — not on the request hot path — so ordinary recursion is
// acceptable here, unlike the DFA overlay's deep copy.
type lowerBuilder struct {
	program []Instruction
	tables  []JumpTable
}

// lowerNode lowers node and everything beneath it, returning the PC at
// which its contribution begins. Children lower in order (there is no
// explicit sequencing opcode — straight-line PC advancement already
// provides it), a Branch emits a jump table plus placeholder jumps
// rewritten once the block's exit PC is known, and Accept emits one
// opcode per terminal match.
func (lb *lowerBuilder) lowerNode(node *builderNode, depth int) int {
	start := len(lb.program)
	for _, idx := range node.matchIdxs {
		lb.program = append(lb.program, Instruction{Op: OpAccept, Payload: idx})
	}

	var literalChildren []*builderNode
	var paramChild, catchallChild *builderNode
	for _, c := range node.children {
		switch c.kind {
		case literalKind:
			literalChildren = append(literalChildren, c)
		case parameterKind:
			paramChild = c
		case catchallKind:
			catchallChild = c
		}
	}
	if len(literalChildren) == 0 && paramChild == nil && catchallChild == nil {
		return start
	}

	tableIdx := len(lb.tables)
	lb.tables = append(lb.tables, JumpTable{Depth: depth})
	lb.program = append(lb.program, Instruction{Op: OpBranch, Payload: tableIdx})

	var jumpPCs []int
	for _, c := range literalChildren {
		childStart := lb.lowerNode(c, depth+1)
		lb.tables[tableIdx].Entries = append(lb.tables[tableIdx].Entries, Transition{Text: c.value, Dest: childStart})
		jumpPCs = append(jumpPCs, len(lb.program))
		lb.program = append(lb.program, Instruction{Op: OpJump, Payload: -1}) // placeholder, rewritten below
	}

	switch {
	case paramChild != nil:
		lb.tables[tableIdx].Exit = lb.lowerNode(paramChild, depth+1)
		if catchallChild != nil {
			lb.lowerNode(catchallChild, depth+1)
		}
	case catchallChild != nil:
		lb.tables[tableIdx].Exit = lb.lowerNode(catchallChild, depth+1)
	default:
		lb.tables[tableIdx].Exit = len(lb.program)
	}

	// A literal child whose own subtree runs to completion without a
	// successful Accept falls through to this node's Exit rather than
	// skipping straight past it — the same literal-then-param-then-
	// catchall fallback order the packed tree and DFA matchers use.
	exitTarget := lb.tables[tableIdx].Exit
	for _, pc := range jumpPCs {
		lb.program[pc].Payload = exitTarget
	}

	return start
}

// span is a byte offset pair into the original path string for one
// tokenised segment — no copy of the segment text is made until a Branch
// or Accept actually needs it.
type span struct {
	start, end int
}

// tokenize splits path into segment spans, skipping a single leading and
// single trailing '/'. The first 32 segments live in an on-stack array;
// beyond that, ordinary slice growth spills the remainder to the heap,
// chosen over rejecting long paths outright.
func tokenize(path string) []span {
	start, end := 0, len(path)
	if end > 0 && path[0] == '/' {
		start = 1
	}
	if end > start && path[end-1] == '/' {
		end--
	}
	if start >= end {
		return nil
	}

	var inline [32]span
	spans := inline[:0]
	segStart := start
	for i := start; i < end; i++ {
		if path[i] == '/' {
			spans = append(spans, span{segStart, i})
			segStart = i + 1
		}
	}
	return append(spans, span{segStart, end})
}

// Run executes the program against path. Accept is conditional: each
// Accept attempts its candidate's per-template matcher (which itself
// runs the constraint engine), and only the first one to succeed is
// kept. An unconditional overwrite cannot tell a constraint rejection
// from a real match, which would break the cross-engine guarantee that
// every matcher picks the same winning endpoint for a given path.
func (p *Program) Run(path string) (*endpoint.InboundRouteEntry, *values.Values, bool) {
	spans := tokenize(path)
	out := values.New(4)

	var result *endpoint.InboundRouteEntry
	pc := 0
	for pc < len(p.instructions) {
		instr := p.instructions[pc]
		switch instr.Op {
		case OpAccept:
			if result == nil {
				me := p.matches[instr.Payload]
				mark := out.Mark()
				if me.matcher.TryMatch(path, out) {
					result = me.entry
				} else {
					out.Restore(mark)
				}
			}
			pc++
		case OpBranch:
			table := &p.tables[instr.Payload]
			var token string
			if table.Depth < len(spans) {
				sp := spans[table.Depth]
				token = path[sp.start:sp.end]
			}
			dest := table.Exit
			for _, tr := range table.Entries {
				if len(tr.Text) == len(token) && strings.EqualFold(tr.Text, token) {
					dest = tr.Dest
					break
				}
			}
			pc = dest
		case OpJump:
			pc = instr.Payload
		default:
			pc++
		}

		if result != nil {
			break
		}
	}

	if result != nil {
		return result, out, true
	}
	return nil, nil, false
}
