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

// Package match implements the per-template matcher: given one
// RouteTemplate and a request path, attempt to extract a Values map. This
// is the one mechanism every match engine ultimately delegates to for
// final parameter extraction (packed tree step 3, DFA step 4); the three
// engines differ only in how they narrow the candidate set down to the
// handful of templates worth trying.
//
// Grounded on compiler/dynamic.go's matchAndExtract: single-pass segment
// scan, inline constraint check, early exit on segment-count mismatch —
// generalized here to optional trailing segments, catch-alls, defaults,
// and complex (mixed literal+parameter) segments.
package match

import (
	"strings"

	"github.com/routecore/routecore/constraint"
	"github.com/routecore/routecore/endpoint"
	"github.com/routecore/routecore/template"
	"github.com/routecore/routecore/values"
)

// TemplateMatcher matches one InboundRouteEntry's template against a path.
type TemplateMatcher struct {
	entry  *endpoint.InboundRouteEntry
	engine *constraint.Engine
}

// New builds a TemplateMatcher for entry.
func New(entry *endpoint.InboundRouteEntry, engine *constraint.Engine) *TemplateMatcher {
	return &TemplateMatcher{entry: entry, engine: engine}
}

// Template returns the underlying template.
func (m *TemplateMatcher) Template() *template.RouteTemplate {
	return m.entry.Template
}

// splitPath splits a request path into segments. A single trailing '/'
// (on any path longer than "/") is dropped and does not produce an extra
// empty segment, so "/a/" splits the same as "/a".
func splitPath(path string) []string {
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

// TryMatch attempts to match path against m's template, writing captured
// parameters (and defaults for uncaptured parameters) into out. On
// failure, out is left exactly as it was found: TryMatch applies the
// mark + truncate snapshot protocol itself, so every caller — the packed
// tree, the DFA, the instruction matcher — gets the guarantee for free
// without re-implementing it.
func (m *TemplateMatcher) TryMatch(path string, out *values.Values) bool {
	mark := out.Mark()
	if !m.tryMatch(path, out) {
		out.Restore(mark)
		return false
	}
	return true
}

func (m *TemplateMatcher) tryMatch(path string, out *values.Values) bool {
	tpl := m.entry.Template
	segs := splitPath(path)
	required := tpl.RequiredSegmentCount()
	total := len(tpl.Segments)
	n := len(segs)

	hasCatchAll := tpl.HasCatchAll()
	if hasCatchAll {
		if n < total-1 {
			return false
		}
	} else if n < required || n > total {
		return false
	}

	idx := 0
	for segIdx := 0; segIdx < total; segIdx++ {
		seg := tpl.Segments[segIdx]
		isLastSegment := segIdx == total-1

		if idx >= n {
			if seg.IsCatchAll() {
				// a trailing catch-all also absorbs an empty residue
				if !m.matchSegment(seg, "", out) {
					return false
				}
				continue
			}
			if !seg.IsOptional() {
				return false
			}
			m.applySegmentDefault(seg, out)
			continue
		}

		var token string
		if isLastSegment && hasCatchAll {
			token = strings.Join(segs[idx:], "/")
			idx = n
		} else {
			token = segs[idx]
			idx++
		}

		if !m.matchSegment(seg, token, out) {
			return false
		}
	}

	if idx < n {
		return false
	}

	for name, def := range m.entry.Defaults {
		if !out.Has(name) {
			out.Set(name, def)
		}
	}

	return true
}

func (m *TemplateMatcher) applySegmentDefault(seg template.Segment, out *values.Values) {
	if !seg.IsSimple() || seg.Parts[0].Kind != template.Parameter {
		return
	}
	p := seg.Parts[0]
	if p.Opts.HasDefault {
		out.Set(p.Text, p.Opts.DefaultValue)
	}
}

// matchSegment matches one template segment against one path token
// (or, for a trailing catch-all, the joined residue).
func (m *TemplateMatcher) matchSegment(seg template.Segment, token string, out *values.Values) bool {
	if seg.IsSimple() {
		part := seg.Parts[0]
		switch part.Kind {
		case template.Literal, template.Separator:
			return strings.EqualFold(part.Text, token)
		case template.Parameter:
			return m.captureParam(part, token, out)
		default:
			return false
		}
	}
	return m.matchComplexSegment(seg.Parts, token, out)
}

// captureParam validates and stores a simple parameter capture.
func (m *TemplateMatcher) captureParam(part template.Part, token string, out *values.Values) bool {
	if token == "" {
		if part.Opts.HasDefault {
			out.Set(part.Text, part.Opts.DefaultValue)
			return true
		}
		if !part.Opts.IsOptional && !part.Opts.IsCatchAll {
			return false
		}
	}
	cell, ok := m.captureCell(part.Text, token)
	if !ok {
		return false
	}
	out.SetCell(part.Text, cell)
	return true
}

// captureCell validates value against paramName's constraints and, on
// success, returns the Cell to store. A parameter whose constraints
// include a TypedConstraint is stored under that constraint's coerced
// representation (e.g. Int for "id:int") rather than as a plain String;
// the first TypedConstraint in declaration order wins when more than one
// is present.
func (m *TemplateMatcher) captureCell(paramName, value string) (values.Cell, bool) {
	cs := m.entry.ConstraintsFor(strings.ToLower(paramName))
	if len(cs) == 0 {
		return values.Cell{Kind: values.String, Str: value}, true
	}
	if !m.engine.Evaluate(cs, value, constraint.EvalContext{ParamName: paramName}, constraint.Inbound) {
		return values.Cell{}, false
	}
	for _, c := range cs {
		if tc, ok := c.(constraint.TypedConstraint); ok {
			return tc.Coerce(value), true
		}
	}
	return values.Cell{Kind: values.String, Str: value}, true
}

// matchComplexSegment matches a segment mixing literal and parameter
// parts against one token, by anchoring each literal part at its
// expected position and letting each parameter part consume up to the
// first occurrence of the next literal (or, for the final part, the rest
// of the token).
// This is not a general regex engine — it is the minimal left-to-right
// scan the grammar's literal/parameter mixing actually requires.
func (m *TemplateMatcher) matchComplexSegment(parts []template.Part, token string, out *values.Values) bool {
	lowerToken := strings.ToLower(token)
	pos := 0

	for i, part := range parts {
		switch part.Kind {
		case template.Literal, template.Separator:
			lit := strings.ToLower(part.Text)
			if !strings.HasPrefix(lowerToken[pos:], lit) {
				return false
			}
			pos += len(lit)
		case template.Parameter:
			isLast := i == len(parts)-1
			var captured string
			if part.Opts.IsCatchAll {
				captured = token[pos:]
				pos = len(token)
			} else if isLast {
				captured = token[pos:]
				pos = len(token)
			} else {
				next := parts[i+1]
				if next.Kind != template.Literal && next.Kind != template.Separator {
					// two adjacent parameter parts with no literal anchor
					// between them is ambiguous; reject at match time.
					return false
				}
				idx := strings.Index(lowerToken[pos:], strings.ToLower(next.Text))
				if idx < 0 {
					return false
				}
				captured = token[pos : pos+idx]
				pos += idx
			}
			cell, ok := m.captureCell(part.Text, captured)
			if !ok {
				return false
			}
			out.SetCell(part.Text, cell)
		}
	}

	return pos == len(token)
}
