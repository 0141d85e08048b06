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

package constraint

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/routecore/routecore/values"
)

// Builtin constraint kinds, grounded on route/constraint.go's
// ConstraintKind enumeration (Int, Float, UUID, Regex, Enum, Date,
// DateTime) plus Length/Range/Alpha, covering the bounds and size checks
// route parameters commonly need (id ranges, slug length) beyond the
// original set of typed constraints.

var (
	uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})$`)
	alphaPattern = regexp.MustCompile(`^[A-Za-z]+$`)
)

// IntConstraint accepts values parseable as a (possibly signed) integer.
type IntConstraint struct{}

func (IntConstraint) Name() string { return "int" }
func (IntConstraint) Match(value string, _ EvalContext, _ Direction) bool {
	if value == "" {
		return false
	}
	_, err := strconv.ParseInt(value, 10, 64)
	return err == nil
}

// Coerce converts value, already accepted by Match, into an Int cell.
func (IntConstraint) Coerce(value string) values.Cell {
	n, _ := strconv.ParseInt(value, 10, 64)
	return values.Cell{Kind: values.Int, Int: n}
}

// FloatConstraint accepts values parseable as a floating-point number.
type FloatConstraint struct{}

func (FloatConstraint) Name() string { return "float" }
func (FloatConstraint) Match(value string, _ EvalContext, _ Direction) bool {
	if value == "" {
		return false
	}
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

// UUIDConstraint accepts RFC 4122 UUID strings.
type UUIDConstraint struct{}

func (UUIDConstraint) Name() string { return "uuid" }
func (UUIDConstraint) Match(value string, _ EvalContext, _ Direction) bool {
	return uuidPattern.MatchString(value)
}

// DateConstraint accepts an RFC3339 full-date (YYYY-MM-DD).
type DateConstraint struct{}

func (DateConstraint) Name() string { return "date" }
func (DateConstraint) Match(value string, _ EvalContext, _ Direction) bool {
	return datePattern.MatchString(value)
}

// DateTimeConstraint accepts an RFC3339 date-time.
type DateTimeConstraint struct{}

func (DateTimeConstraint) Name() string { return "datetime" }
func (DateTimeConstraint) Match(value string, _ EvalContext, _ Direction) bool {
	return dateTimePattern.MatchString(value)
}

// AlphaConstraint accepts values consisting only of ASCII letters.
type AlphaConstraint struct{}

func (AlphaConstraint) Name() string { return "alpha" }
func (AlphaConstraint) Match(value string, _ EvalContext, _ Direction) bool {
	return alphaPattern.MatchString(value)
}

// RegexConstraint accepts values matching an arbitrary anchored pattern.
// This is the one inline escape hatch the grammar's ":constraint" form
// exposes, same as route/constraint.go's ConstraintRegex.
type RegexConstraint struct {
	Pattern string
	re      *regexp.Regexp
}

// NewRegexConstraint compiles pattern (anchored) or returns an error, the
// same fail-fast-at-startup policy route/route.go's Route.Where uses.
func NewRegexConstraint(pattern string) (*RegexConstraint, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, err
	}
	return &RegexConstraint{Pattern: pattern, re: re}, nil
}

func (r *RegexConstraint) Name() string { return "regex:" + r.Pattern }
func (r *RegexConstraint) Match(value string, _ EvalContext, _ Direction) bool {
	return r.re.MatchString(value)
}

// EnumConstraint accepts only a fixed set of values, compared
// case-sensitively. route/constraint.go's ToRegexConstraint quotes each
// value into a regex alternation; comparing directly here is equivalent
// but avoids a regex compile for a closed set.
type EnumConstraint struct {
	Values []string
}

func (e EnumConstraint) Name() string { return "enum" }
func (e EnumConstraint) Match(value string, _ EvalContext, _ Direction) bool {
	for _, v := range e.Values {
		if v == value {
			return true
		}
	}
	return false
}

// LengthConstraint bounds the byte length of value. Max <= 0 means
// unbounded.
type LengthConstraint struct {
	Min, Max int
}

func (l LengthConstraint) Name() string { return "length" }
func (l LengthConstraint) Match(value string, _ EvalContext, _ Direction) bool {
	n := len(value)
	if n < l.Min {
		return false
	}
	if l.Max > 0 && n > l.Max {
		return false
	}
	return true
}

// RangeConstraint bounds a value parsed as an integer.
type RangeConstraint struct {
	Min, Max int64
}

func (r RangeConstraint) Name() string { return "range" }
func (r RangeConstraint) Match(value string, _ EvalContext, _ Direction) bool {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false
	}
	return n >= r.Min && n <= r.Max
}

// Coerce converts value, already accepted by Match, into an Int cell.
func (r RangeConstraint) Coerce(value string) values.Cell {
	n, _ := strconv.ParseInt(value, 10, 64)
	return values.Cell{Kind: values.Int, Int: n}
}

// FromInlineSpec parses one ":constraint" grammar token (a parameter's
// trailing `(":" constraint)*` suffix) into a Constraint. Recognised
// forms: "int", "float", "uuid", "date", "datetime", "alpha",
// "regex(PATTERN)", "enum(a|b|c)", "length(min,max)", "range(min,max)".
// Unknown tokens become a RegexConstraint over the literal token,
// mirroring how Where(param, pattern) treats any string as a raw
// pattern.
func FromInlineSpec(spec string) (Constraint, error) {
	switch {
	case spec == "int":
		return IntConstraint{}, nil
	case spec == "float":
		return FloatConstraint{}, nil
	case spec == "uuid":
		return UUIDConstraint{}, nil
	case spec == "date":
		return DateConstraint{}, nil
	case spec == "datetime":
		return DateTimeConstraint{}, nil
	case spec == "alpha":
		return AlphaConstraint{}, nil
	case strings.HasPrefix(spec, "regex(") && strings.HasSuffix(spec, ")"):
		return NewRegexConstraint(spec[len("regex(") : len(spec)-1])
	case strings.HasPrefix(spec, "enum(") && strings.HasSuffix(spec, ")"):
		values := strings.Split(spec[len("enum(") : len(spec)-1], "|")
		return EnumConstraint{Values: values}, nil
	case strings.HasPrefix(spec, "length(") && strings.HasSuffix(spec, ")"):
		return parseTwoInts(spec, "length(", func(min, max int) Constraint {
			return LengthConstraint{Min: min, Max: max}
		})
	case strings.HasPrefix(spec, "range(") && strings.HasSuffix(spec, ")"):
		return parseTwoInts(spec, "range(", func(min, max int) Constraint {
			return RangeConstraint{Min: int64(min), Max: int64(max)}
		})
	default:
		return NewRegexConstraint(spec)
	}
}

func parseTwoInts(spec, prefix string, build func(min, max int) Constraint) (Constraint, error) {
	inner := spec[len(prefix) : len(spec)-1]
	parts := strings.SplitN(inner, ",", 2)
	min, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, err
	}
	max := 0
	if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
		max, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}
	}
	return build(min, max), nil
}
