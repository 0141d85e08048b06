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

package template

import (
	"strings"
)

// ParseTemplate parses a template string into a RouteTemplate, or returns
// a *ParseError citing a character offset and cause.
//
// Offsets are reported against the canonicalised text (after stripping a
// leading "~/" or "/"), which is also what RouteTemplate.TemplateText
// stores. Syntax errors cite the offending character; the template-level
// checks run after parsing (DuplicateName, CatchAllNotLast,
// OptionalNotTrailing) always report offset 0 and name the offending
// parameter in Detail instead.
func ParseTemplate(raw string) (*RouteTemplate, error) {
	text := canonicalize(raw)

	p := &parser{src: text}
	segments, err := p.parseSegments()
	if err != nil {
		return nil, err
	}

	rt := &RouteTemplate{
		TemplateText: text,
		Segments:     segments,
		Parameters:   make(map[string]int, len(segments)),
	}

	if err := rt.validateAndIndex(); err != nil {
		return nil, err
	}

	return rt, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) fail(kind ErrorKind, detail string) error {
	return newParseError(p.src, p.pos, kind, detail)
}

func (p *parser) parseSegments() ([]Segment, error) {
	if p.src == "" {
		return []Segment{{Parts: []Part{{Kind: Literal, Text: ""}}}}, nil
	}

	var segments []Segment
	for {
		seg, err := p.parseSegment()
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)

		if p.pos >= len(p.src) {
			break
		}
		if p.src[p.pos] != '/' {
			return nil, p.fail(UnbalancedBrace, "expected '/' between segments")
		}
		p.pos++ // consume '/'
	}
	return segments, nil
}

// parseSegment parses part+ up to (but not consuming) the next unescaped
// '/' or end of string.
//
// An escaped brace ("{{" or "}}") flushes whatever plain literal text has
// accumulated so far and emits its own Separator part rather than folding
// into that literal text: this keeps the escaped character visible as its
// own part to every consumer that needs to tell "literal text the grammar
// chose" apart from "a brace the grammar had to escape to get past itself".
func (p *parser) parseSegment() (Segment, error) {
	var parts []Part
	var lit strings.Builder
	flushLiteral := func() {
		if lit.Len() > 0 {
			parts = append(parts, Part{Kind: Literal, Text: lit.String()})
			lit.Reset()
		}
	}

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '/':
			flushLiteral()
			if len(parts) == 0 {
				return Segment{}, p.fail(UnbalancedBrace, "empty segment")
			}
			return Segment{Parts: mergeLiteralOnlyParts(parts)}, nil
		case c == '{':
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '{' {
				flushLiteral()
				parts = append(parts, Part{Kind: Separator, Text: "{"})
				p.pos += 2
				continue
			}
			flushLiteral()
			part, err := p.parseParamPart()
			if err != nil {
				return Segment{}, err
			}
			parts = append(parts, part)
		case c == '}':
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '}' {
				flushLiteral()
				parts = append(parts, Part{Kind: Separator, Text: "}"})
				p.pos += 2
				continue
			}
			return Segment{}, p.fail(UnbalancedBrace, "unescaped '}' outside parameter")
		default:
			lit.WriteByte(c)
			p.pos++
		}
	}

	flushLiteral()
	if len(parts) == 0 {
		return Segment{}, p.fail(UnbalancedBrace, "empty segment")
	}
	return Segment{Parts: mergeLiteralOnlyParts(parts)}, nil
}

// mergeLiteralOnlyParts collapses a segment's Literal and Separator parts
// back into a single Literal part when the segment has no Parameter part
// at all. An escaped brace only needs its own Separator part to serve as
// an anchor for matchComplexSegment when it shares a segment with a
// parameter; a segment that is nothing but literal text and escaped
// braces ("literal-{{with-braces}}") stays simple, exactly as it did
// before the grammar could tell a Separator from a Literal.
func mergeLiteralOnlyParts(parts []Part) []Part {
	for _, part := range parts {
		if part.Kind == Parameter {
			return parts
		}
	}
	if len(parts) <= 1 {
		return parts
	}
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.Text)
	}
	return []Part{{Kind: Literal, Text: b.String()}}
}

// parseParamPart parses "{" param "}" starting at the opening brace.
func (p *parser) parseParamPart() (Part, error) {
	start := p.pos
	p.pos++ // consume '{'

	opts := PartOptions{}
	if p.pos < len(p.src) && p.src[p.pos] == '*' {
		opts.IsCatchAll = true
		p.pos++
	}

	nameStart := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("=?:}/", rune(p.src[p.pos])) {
		p.pos++
	}
	name := p.src[nameStart:p.pos]
	if name == "" {
		p.pos = start
		return Part{}, p.fail(EmptyName, "parameter name is empty")
	}

	for p.pos < len(p.src) && p.src[p.pos] != '}' {
		switch p.src[p.pos] {
		case '=':
			p.pos++
			defStart := p.pos
			for p.pos < len(p.src) && !strings.ContainsRune("?:}", rune(p.src[p.pos])) {
				p.pos++
			}
			opts.DefaultValue = p.src[defStart:p.pos]
			opts.HasDefault = true
		case '?':
			opts.IsOptional = true
			p.pos++
		case ':':
			p.pos++
			cStart := p.pos
			for p.pos < len(p.src) && !strings.ContainsRune(":}", rune(p.src[p.pos])) {
				p.pos++
			}
			spec := p.src[cStart:p.pos]
			// a '?' right before the closing brace marks the parameter
			// optional ("{id:int?}") rather than belonging to the constraint.
			if p.pos < len(p.src) && p.src[p.pos] == '}' && strings.HasSuffix(spec, "?") {
				spec = spec[:len(spec)-1]
				opts.IsOptional = true
			}
			opts.InlineConstraints = append(opts.InlineConstraints, spec)
		default:
			p.pos = start
			return Part{}, p.fail(UnbalancedBrace, "unexpected character in parameter")
		}
	}

	if p.pos >= len(p.src) || p.src[p.pos] != '}' {
		p.pos = start
		return Part{}, p.fail(UnbalancedBrace, "missing closing '}'")
	}
	p.pos++ // consume '}'

	if opts.IsCatchAll && (opts.IsOptional || opts.HasDefault) {
		return Part{}, newParseError(p.src, start, DefaultOnCatchAll, "catch-all cannot be optional or carry a default")
	}

	return Part{Kind: Parameter, Text: name, Opts: opts}, nil
}

// validateAndIndex enforces the template-level invariants (unique
// parameter names, catch-all only as the final part of the final
// segment, optional segments only trailing) and builds the
// parameter-name index.
func (t *RouteTemplate) validateAndIndex() error {
	seenNames := make(map[string]bool)

	for segIdx, seg := range t.Segments {
		for _, part := range seg.Parts {
			if part.Kind != Parameter {
				continue
			}
			lname := strings.ToLower(part.Text)
			if seenNames[lname] {
				return newParseError(t.TemplateText, 0, DuplicateName, part.Text)
			}
			seenNames[lname] = true
			t.Parameters[lname] = segIdx

			if part.Opts.IsCatchAll {
				isLastSegment := segIdx == len(t.Segments)-1
				isLastPart := isLastPartOf(seg, part)
				if !isLastSegment || !isLastPart {
					return newParseError(t.TemplateText, 0, CatchAllNotLast, part.Text)
				}
			}
		}

		if seg.IsOptional() {
			// every subsequent segment must also be a trailing optional
			// segment.
			for j := segIdx + 1; j < len(t.Segments); j++ {
				if !t.Segments[j].IsOptional() {
					return newParseError(t.TemplateText, 0, OptionalNotTrailing, seg.Parts[0].Text)
				}
			}
		}
	}

	return nil
}

func isLastPartOf(seg Segment, part Part) bool {
	last := seg.Parts[len(seg.Parts)-1]
	return last.Kind == part.Kind && last.Text == part.Text
}
