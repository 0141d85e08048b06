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

// Package template implements the route template model and parser: the
// leaves-first first step of the routing subsystem. A RouteTemplate is an
// ordered sequence of Segments built once at registration time and never
// mutated afterward; every match engine and the link generator consume it
// read-only.
package template

import "strings"

// PartKind identifies the variant of a Part.
type PartKind uint8

const (
	// Literal is fixed text that must match case-insensitively.
	Literal PartKind = iota
	// Parameter is a named placeholder, optionally optional/catch-all/constrained.
	Parameter
	// Separator is escaped brace literal text inside a complex segment.
	Separator
)

// PartOptions carries the modifiers a Parameter part may declare.
type PartOptions struct {
	IsOptional        bool
	IsCatchAll        bool
	DefaultValue      string
	HasDefault        bool
	InlineConstraints []string // raw constraint specs, e.g. "int", "regex(...)"
}

// Part is one literal or parameter fragment within a Segment.
type Part struct {
	Kind PartKind
	Text string // literal text (Literal/Separator) or parameter name (Parameter)
	Opts PartOptions
}

// Segment is an ordered, non-empty sequence of Parts between '/' separators.
type Segment struct {
	Parts []Part
}

// IsSimple reports whether the segment has exactly one part.
func (s Segment) IsSimple() bool {
	return len(s.Parts) == 1
}

// IsOptional reports whether the segment is a single optional parameter.
// Only simple segments may be optional: optional parameters may only
// appear in trailing optional segments.
func (s Segment) IsOptional() bool {
	return s.IsSimple() && s.Parts[0].Kind == Parameter && s.Parts[0].Opts.IsOptional
}

// IsCatchAll reports whether the segment is a single catch-all parameter.
func (s Segment) IsCatchAll() bool {
	return s.IsSimple() && s.Parts[0].Kind == Parameter && s.Parts[0].Opts.IsCatchAll
}

// RouteTemplate is a fully parsed template: an ordered sequence of
// segments plus the canonicalised template text and a parameter-name
// index. Built once by ParseTemplate; immutable thereafter.
type RouteTemplate struct {
	// TemplateText is the canonicalised template: leading '/' and leading
	// '~/' stripped. Used both for display and as the precedence
	// tie-break, in its canonical form.
	TemplateText string
	Segments     []Segment

	// Parameters maps a lowercased parameter name to its segment position.
	Parameters map[string]int
}

// RequiredSegmentCount returns the number of leading segments that are not
// trailing-optional.
func (t *RouteTemplate) RequiredSegmentCount() int {
	n := len(t.Segments)
	for n > 0 && t.Segments[n-1].IsOptional() {
		n--
	}
	return n
}

// HasCatchAll reports whether the last segment's last part is a catch-all.
func (t *RouteTemplate) HasCatchAll() bool {
	if len(t.Segments) == 0 {
		return false
	}
	last := t.Segments[len(t.Segments)-1]
	if len(last.Parts) == 0 {
		return false
	}
	return last.Parts[len(last.Parts)-1].Kind == Parameter && last.Parts[len(last.Parts)-1].Opts.IsCatchAll
}

// ParamNames returns every parameter name declared by the template, in
// segment order.
func (t *RouteTemplate) ParamNames() []string {
	names := make([]string, 0, len(t.Parameters))
	for _, seg := range t.Segments {
		for _, p := range seg.Parts {
			if p.Kind == Parameter {
				names = append(names, p.Text)
			}
		}
	}
	return names
}

// canonicalize strips a leading "~/" then a leading "/".
func canonicalize(raw string) string {
	s := raw
	if strings.HasPrefix(s, "~/") {
		s = s[2:]
	}
	s = strings.TrimPrefix(s, "/")
	return s
}
