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

// Package link implements the reverse mapping from an endpoint address
// and a set of parameter values back to a request path: the inverse of
// the match engines in engine/packedtree, engine/dfa and engine/instruction.
//
// Grounded on route/route.go's ReversePattern.BuildURL (segment-at-a-time
// rendering, url.PathEscape for parameters, url.Values.Encode for the
// query string) and route/route.go's Segment{Static, Value} shape,
// generalized here to optional segments, defaults, catch-alls, and the
// ambient/supplied value precedence this package's Context carries.
package link

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/routecore/routecore/constraint"
	"github.com/routecore/routecore/endpoint"
	"github.com/routecore/routecore/template"
	"github.com/routecore/routecore/values"
)

// ErrNoMatchingEndpoint is returned by GetLink when no candidate endpoint
// for the requested address could bind the supplied/ambient values.
var ErrNoMatchingEndpoint = errors.New("link: no matching endpoint")

// Options controls emission-time formatting. Each field applies only
// when rendering the final string, never during binding.
type Options struct {
	// LowercaseURLs lowercases the rendered path (not the query string).
	LowercaseURLs bool
	// AppendTrailingSlash appends a trailing '/' to the rendered path,
	// unless the path is already "/" or already ends in '/'.
	AppendTrailingSlash bool
	// LowercaseQueryStrings lowercases rendered query keys and values.
	LowercaseQueryStrings bool
}

// EndpointFinder resolves the candidate endpoints registered under one
// address, in declaration order. A Router backs this with whichever
// internal registry it uses to hold InboundRouteEntry values; Generator
// depends only on this interface, not on any particular registry shape.
type EndpointFinder interface {
	FindEndpoints(address string) []*endpoint.InboundRouteEntry
}

// Context carries everything one link attempt needs beyond the registry
// lookup itself.
type Context struct {
	// Address identifies which registered endpoints to consider.
	Address string
	// Supplied holds values the caller explicitly provided for this
	// link, in the order they should appear in the query string when
	// left over after template binding. May hold String, Int, List, or
	// Null cells; a Null cell binds nothing but still breaks the
	// ambient-value fallback chain for that parameter.
	Supplied *values.Values
	// Ambient holds values carried over from the current request (e.g.
	// "controller" from the page currently being rendered), consulted
	// only where Supplied has nothing for a parameter.
	Ambient *values.Values
	Options Options
}

// Generator builds paths from a Context against an EndpointFinder.
type Generator struct {
	finder EndpointFinder
	engine *constraint.Engine
}

// New creates a Generator backed by finder. A nil engine runs outbound
// constraint checks with no logging.
func New(finder EndpointFinder, engine *constraint.Engine) *Generator {
	if engine == nil {
		engine = constraint.NewEngine(nil)
	}
	return &Generator{finder: finder, engine: engine}
}

// TryGetLink attempts to build a path for ctx, returning ("", false) if
// no candidate endpoint could bind.
func (g *Generator) TryGetLink(ctx Context) (string, bool) {
	for _, entry := range g.finder.FindEndpoints(ctx.Address) {
		if path, ok := g.tryCandidate(entry, ctx); ok {
			return path, true
		}
	}
	return "", false
}

// GetLink is TryGetLink but fails loudly: ErrNoMatchingEndpoint when no
// candidate could bind.
func (g *Generator) GetLink(ctx Context) (string, error) {
	if path, ok := g.TryGetLink(ctx); ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: address %q", ErrNoMatchingEndpoint, ctx.Address)
}

// getCell is a nil-safe wrapper: a nil Values map (the caller has no
// supplied or ambient values at all) behaves as an always-empty one.
func getCell(v *values.Values, name string) (values.Cell, bool) {
	if v == nil {
		return values.Cell{}, false
	}
	return v.Get(name)
}

// cellToString renders a String or Int cell's payload as the string a
// template parameter binds to; callers must not pass a List or Null cell.
func cellToString(cell values.Cell) string {
	if cell.Kind == values.Int {
		return strconv.FormatInt(cell.Int, 10)
	}
	return cell.Str
}

// binding is the resolved value (or absence) for one template parameter.
type binding struct {
	value       string
	bound       bool
	fromAmbient bool
}

func (g *Generator) tryCandidate(entry *endpoint.InboundRouteEntry, ctx Context) (string, bool) {
	tpl := entry.Template
	bindings := make(map[string]binding, len(tpl.Parameters))
	consumed := make(map[string]bool, len(tpl.Parameters))

	ambientChainOK := true
	for _, name := range tpl.ParamNames() {
		lname := strings.ToLower(name)
		if _, ok := bindings[lname]; ok {
			continue // duplicate Parameters entries never occur, defensive only
		}

		if cell, ok := getCell(ctx.Supplied, name); ok {
			switch cell.Kind {
			case values.String, values.Int:
				strVal := cellToString(cell)
				if !g.checkConstraint(entry, name, strVal) {
					return "", false
				}
				bindings[lname] = binding{value: strVal, bound: true}
				consumed[lname] = true
				ambientChainOK = false
				continue
			case values.Null:
				// an explicitly supplied absence: never bind, but still
				// break the ambient chain, same as a supplied value would.
				consumed[lname] = true
				ambientChainOK = false
			}
		}

		if ambientChainOK {
			if cell, ok := getCell(ctx.Ambient, name); ok && (cell.Kind == values.String || cell.Kind == values.Int) {
				strVal := cellToString(cell)
				if !g.checkConstraint(entry, name, strVal) {
					return "", false
				}
				bindings[lname] = binding{value: strVal, bound: true, fromAmbient: true}
				continue
			}
		}
		ambientChainOK = false

		if def, ok := lookupDefault(entry.Defaults, lname); ok {
			bindings[lname] = binding{value: def, bound: true}
			continue
		}

		part := paramPart(tpl, lname)
		if part.Opts.HasDefault {
			bindings[lname] = binding{value: part.Opts.DefaultValue, bound: true}
			continue
		}
		if part.Opts.IsOptional || part.Opts.IsCatchAll {
			bindings[lname] = binding{bound: false}
			continue
		}
		return "", false
	}

	rendered := renderSegments(tpl, bindings)
	rendered = trimTrailingDefaults(tpl, bindings, rendered)

	var buf strings.Builder
	buf.WriteByte('/')
	buf.WriteString(strings.Join(rendered, "/"))
	path := buf.String()

	if ctx.Options.AppendTrailingSlash && path != "/" && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	if ctx.Options.LowercaseURLs {
		path = strings.ToLower(path)
	}

	query := leftoverQuery(ctx.Supplied, consumed, ctx.Options.LowercaseQueryStrings)
	if len(query) > 0 {
		path += "?" + query
	}
	return path, true
}

func (g *Generator) checkConstraint(entry *endpoint.InboundRouteEntry, paramName, value string) bool {
	cs := entry.ConstraintsFor(strings.ToLower(paramName))
	if len(cs) == 0 {
		return true
	}
	return g.engine.Evaluate(cs, value, constraint.EvalContext{ParamName: paramName}, constraint.Outbound)
}

// lookupDefault finds defaults[name] case-insensitively; route-level
// Defaults maps are small and keyed by declared case, not necessarily
// lowercase, same as InboundRouteEntry.Defaults elsewhere in this module.
func lookupDefault(defaults map[string]string, lname string) (string, bool) {
	for k, v := range defaults {
		if strings.EqualFold(k, lname) {
			return v, true
		}
	}
	return "", false
}

// paramPart returns the Part declaring lname, for reading its
// optional/catch-all/default options.
func paramPart(tpl *template.RouteTemplate, lname string) template.Part {
	segIdx, ok := tpl.Parameters[lname]
	if !ok {
		return template.Part{}
	}
	for _, part := range tpl.Segments[segIdx].Parts {
		if part.Kind == template.Parameter && strings.EqualFold(part.Text, lname) {
			return part
		}
	}
	return template.Part{}
}

// renderSegments renders every template segment using bindings, in
// order. A segment whose sole parameter is unbound renders as "" —
// trimTrailingDefaults is responsible for dropping it afterward (only
// trailing segments can be unbound, by construction of the template
// grammar).
func renderSegments(tpl *template.RouteTemplate, bindings map[string]binding) []string {
	out := make([]string, len(tpl.Segments))
	for i, seg := range tpl.Segments {
		out[i] = renderSegment(seg, bindings)
	}
	return out
}

func renderSegment(seg template.Segment, bindings map[string]binding) string {
	var buf strings.Builder
	for _, part := range seg.Parts {
		switch part.Kind {
		case template.Literal, template.Separator:
			buf.WriteString(part.Text)
		case template.Parameter:
			b := bindings[strings.ToLower(part.Text)]
			if !b.bound {
				return ""
			}
			if part.Opts.IsCatchAll {
				buf.WriteString(escapeResidue(b.value))
			} else {
				buf.WriteString(url.PathEscape(b.value))
			}
		}
	}
	return buf.String()
}

// escapeResidue percent-encodes a catch-all's captured residue one
// sub-segment at a time, so the '/' separators it carries survive
// rendering instead of being escaped into "%2F" — the residue has to
// read back as multiple path segments on the next Match.
func escapeResidue(residue string) string {
	if residue == "" {
		return ""
	}
	parts := strings.Split(residue, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// trimTrailingDefaults drops rendered segments from the tail while the
// corresponding template segment is optional and its bound value either
// matches the declared default or is altogether unbound. It stops at the
// first segment that fails either test, since only a contiguous trailing
// run of optional segments may be elided.
func trimTrailingDefaults(tpl *template.RouteTemplate, bindings map[string]binding, rendered []string) []string {
	end := len(rendered)
	for end > 0 {
		seg := tpl.Segments[end-1]
		if !seg.IsOptional() {
			break
		}
		part := seg.Parts[0]
		b := bindings[strings.ToLower(part.Text)]
		if !b.bound {
			end--
			continue
		}
		if part.Opts.HasDefault && b.value == part.Opts.DefaultValue {
			end--
			continue
		}
		break
	}
	return rendered[:end]
}

// leftoverQuery renders every Supplied entry not consumed by template
// binding, in Supplied's insertion order. A List cell repeats the key
// once per element; an empty list contributes nothing.
func leftoverQuery(supplied *values.Values, consumed map[string]bool, lowercase bool) string {
	if supplied == nil {
		return ""
	}

	var buf strings.Builder
	first := true
	supplied.Each(func(key string, cell values.Cell) {
		if consumed[strings.ToLower(key)] {
			return
		}
		k := key
		if lowercase {
			k = strings.ToLower(k)
		}
		switch cell.Kind {
		case values.String:
			writeQueryPair(&buf, &first, k, cell.Str, lowercase)
		case values.Int:
			writeQueryPair(&buf, &first, k, cellToString(cell), lowercase)
		case values.List:
			for _, item := range cell.Items {
				writeQueryPair(&buf, &first, k, item, lowercase)
			}
		case values.Null:
			// explicitly absent: contributes nothing to the query string.
		}
	})
	return buf.String()
}

func writeQueryPair(buf *strings.Builder, first *bool, key, value string, lowercase bool) {
	if lowercase {
		value = strings.ToLower(value)
	}
	if !*first {
		buf.WriteByte('&')
	}
	*first = false
	buf.WriteString(percentEncodeQuery(key))
	buf.WriteByte('=')
	buf.WriteString(percentEncodeQuery(value))
}

// percentEncodeQuery percent-encodes a query key or value, escaping
// every byte outside the unreserved set in uppercase hex. url.QueryEscape
// encodes a space as '+', not '%20', which disagrees with how this
// package needs to render query strings, so this stays hand-rolled
// rather than reusing it.
func percentEncodeQuery(s string) string {
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedByte(c) {
			buf.WriteByte(c)
			continue
		}
		buf.WriteByte('%')
		buf.WriteByte(upperHexDigit(c >> 4))
		buf.WriteByte(upperHexDigit(c & 0x0f))
	}
	return buf.String()
}

func isUnreservedByte(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	default:
		return false
	}
}

func upperHexDigit(nibble byte) byte {
	if nibble < 10 {
		return '0' + nibble
	}
	return 'A' + (nibble - 10)
}
