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

// Package precedence computes the rational ordering key that makes the
// match set deterministic across all three match engines.
//
// The compiler package sorts dynamic routes by a single integer (count of
// static segments, compiler/compiler.go's sortRoutesBySpecificity). That
// is too coarse for a richer template grammar where constrained vs.
// unconstrained parameters, catch-alls, and trailing-optional segments
// all need to compare distinctly, so this package generalizes it into a
// per-segment digit-weight algorithm.
package precedence

import (
	"strings"

	"github.com/routecore/routecore/template"
)

// segment digit-weights used to build the precedence key.
const (
	weightLiteral     = 1
	weightConstrained = 3
	weightUnconstrained = 4
	weightCatchAll    = 5
)

// Key is a rational ordering key: an (integer, fractional) pair
// represented as digit strings so that comparison is purely lexicographic.
//
// Digits holds the required-segment weights as a string of single ASCII
// digit characters ('1','3','4','5'), one per required segment, read left
// to right; Fraction holds the same encoding for trailing optional
// segments. Representing each component as a digit string rather than
// packing it into a single integer matters: a plain base-10 packing
// (weight*10 + nextWeight) makes a short, low-specificity template (e.g. a
// single catch-all, weight 5) numerically smaller — and therefore
// higher-priority — than a long, fully-literal template (e.g. three
// literal segments, 1-1-1 packs to 111 > 5) it should lose to. Comparing
// digit strings lexicographically (ordinal byte compare, same as
// strings.Compare) lets the first, most-significant segment dominate the
// comparison regardless of how many segments follow, which is what a
// left-to-right ordering actually requires.
type Key struct {
	Digits   string
	Fraction string

	// Literals holds, per segment in the same left-to-right order as
	// Digits+Fraction, the lowercased literal/separator text of that
	// segment (empty for a pure parameter or catch-all segment). Two
	// templates with identical Digits, Fraction, and Literals match an
	// identical set of request paths regardless of how their parameters
	// are named: "users/{id}" and "users/{name}" carry the same Literals
	// even though their Text differs.
	Literals string

	// Text is the canonical template text, used as the final tie-break
	// when two templates otherwise compare equal.
	Text string
}

// Less reports whether k sorts before other (k is higher priority).
func (k Key) Less(other Key) bool {
	if k.Digits != other.Digits {
		return strings.Compare(k.Digits, other.Digits) < 0
	}
	if k.Fraction != other.Fraction {
		return strings.Compare(k.Fraction, other.Fraction) < 0
	}
	return strings.Compare(k.Text, other.Text) < 0
}

// Equal reports whether k and other compare equal for ordering purposes,
// used to detect two entries that would tie for the same request: same
// precedence and same canonical text.
func (k Key) Equal(other Key) bool {
	return k.Digits == other.Digits && k.Fraction == other.Fraction && k.Text == other.Text
}

// Collides reports whether k and other would match an identical set of
// request paths at identical priority: same structural shape (Digits,
// Fraction) and the same literal text at every literal position. Unlike
// Equal, Collides ignores Text entirely, so it catches the ambiguity
// Equal's text tie-break masks: two templates that differ only in a
// parameter's name ("users/{id}" vs "users/{name}") collide even though
// their canonical text differs.
func (k Key) Collides(other Key) bool {
	return k.Digits == other.Digits && k.Fraction == other.Fraction && k.Literals == other.Literals
}

// segmentWeight returns the digit-weight of one segment; a simple
// parameter segment carrying an inline constraint gets weightConstrained
// instead of weightUnconstrained.
func segmentWeight(seg template.Segment) int {
	if seg.IsCatchAll() {
		return weightCatchAll
	}
	if seg.IsSimple() && seg.Parts[0].Kind == template.Parameter {
		if len(seg.Parts[0].Opts.InlineConstraints) > 0 {
			return weightConstrained
		}
		return weightUnconstrained
	}
	// complex segments (mixed literal+parameter) and plain literals both
	// carry the literal weight: they are as specific as a literal segment
	// because the literal portion must still match verbatim.
	return weightLiteral
}

// segmentSeparator delimits one segment's literalSignature from the next
// inside Key.Literals; partSeparator delimits one part's literal text from
// the next within a single segment's signature. Both are control bytes
// that cannot occur in a parsed template's literal text, so two segments
// with differently split literal text (e.g. "ab" + "" vs "a" + "b") never
// collide into the same Literals string.
const (
	partSeparator    = '\x1f'
	segmentSeparator = '\x1e'
)

// literalSignature returns the lowercased literal/separator text of seg,
// part by part, ignoring any parameter part's name entirely. A segment
// with no literal/separator parts (a plain parameter or catch-all)
// produces the same signature regardless of that parameter's name.
func literalSignature(seg template.Segment) string {
	var b strings.Builder
	for _, part := range seg.Parts {
		switch part.Kind {
		case template.Literal, template.Separator:
			b.WriteString(strings.ToLower(part.Text))
		}
		b.WriteByte(partSeparator)
	}
	return b.String()
}

// Compute derives a Key for t. Required segments contribute to Digits,
// one decimal digit per segment read left to right; since Digits compare
// lexicographically, a more specific leading segment sorts first, and a
// template whose Digits are a prefix of another's (e.g. "{controller}"
// vs "{controller}/{action}") sorts before it. Trailing optional segments
// contribute the same per-segment digits to Fraction, which is compared
// only when Digits are equal; an empty Fraction sorts first, so a
// template without trailing optionals outranks an otherwise identical one
// that has them.
func Compute(t *template.RouteTemplate) Key {
	required := t.RequiredSegmentCount()

	digits := make([]byte, required)
	for i := 0; i < required; i++ {
		digits[i] = byte('0' + segmentWeight(t.Segments[i]))
	}

	frac := make([]byte, 0, len(t.Segments)-required)
	for i := required; i < len(t.Segments); i++ {
		frac = append(frac, byte('0'+segmentWeight(t.Segments[i])))
	}

	literals := make([]string, len(t.Segments))
	for i, seg := range t.Segments {
		literals[i] = literalSignature(seg)
	}

	return Key{
		Digits:   string(digits),
		Fraction: string(frac),
		Literals: strings.Join(literals, string(segmentSeparator)),
		Text:     t.TemplateText,
	}
}
