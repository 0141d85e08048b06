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

package routecore

import (
	"fmt"
	"strings"

	"github.com/routecore/routecore/constraint"
	"github.com/routecore/routecore/endpoint"
)

// RouteBuilder is the fluent registration handle Register returns: one
// call per registered template, chained with Where*/Default/Address
// calls before Build compiles the whole route set.
type RouteBuilder struct {
	router *Router
	entry  *endpoint.InboundRouteEntry
}

func (b *RouteBuilder) addConstraint(param string, c constraint.Constraint) *RouteBuilder {
	lname := strings.ToLower(param)
	if b.entry.Constraints == nil {
		b.entry.Constraints = make(map[string][]constraint.Constraint, 2)
	}
	b.entry.Constraints[lname] = append(b.entry.Constraints[lname], c)
	return b
}

// Where adds an arbitrary anchored regex constraint to param.
//
// Where panics if pattern fails to compile. This is intentional: an
// invalid pattern is a programmer error caught at startup, the same
// fail-fast policy route/route.go's Route.Where uses for its own regex
// constraints.
func (b *RouteBuilder) Where(param, pattern string) *RouteBuilder {
	c, err := constraint.NewRegexConstraint(pattern)
	if err != nil {
		panic(fmt.Sprintf("routecore: invalid pattern for %q: %v", param, err))
	}
	return b.addConstraint(param, c)
}

// WhereInt constrains param to values parseable as a signed integer.
func (b *RouteBuilder) WhereInt(param string) *RouteBuilder {
	return b.addConstraint(param, constraint.IntConstraint{})
}

// WhereFloat constrains param to values parseable as a float.
func (b *RouteBuilder) WhereFloat(param string) *RouteBuilder {
	return b.addConstraint(param, constraint.FloatConstraint{})
}

// WhereUUID constrains param to RFC 4122 UUID strings.
func (b *RouteBuilder) WhereUUID(param string) *RouteBuilder {
	return b.addConstraint(param, constraint.UUIDConstraint{})
}

// WhereDate constrains param to an RFC3339 full-date.
func (b *RouteBuilder) WhereDate(param string) *RouteBuilder {
	return b.addConstraint(param, constraint.DateConstraint{})
}

// WhereDateTime constrains param to an RFC3339 date-time.
func (b *RouteBuilder) WhereDateTime(param string) *RouteBuilder {
	return b.addConstraint(param, constraint.DateTimeConstraint{})
}

// WhereAlpha constrains param to ASCII letters only.
func (b *RouteBuilder) WhereAlpha(param string) *RouteBuilder {
	return b.addConstraint(param, constraint.AlphaConstraint{})
}

// WhereEnum constrains param to one of values, compared case-sensitively.
func (b *RouteBuilder) WhereEnum(param string, values ...string) *RouteBuilder {
	return b.addConstraint(param, constraint.EnumConstraint{Values: values})
}

// WhereLength bounds param's byte length. max <= 0 means unbounded.
func (b *RouteBuilder) WhereLength(param string, min, max int) *RouteBuilder {
	return b.addConstraint(param, constraint.LengthConstraint{Min: min, Max: max})
}

// WhereRange bounds param, parsed as an integer, to [min, max].
func (b *RouteBuilder) WhereRange(param string, min, max int64) *RouteBuilder {
	return b.addConstraint(param, constraint.RangeConstraint{Min: min, Max: max})
}

// Address sets the endpoint address link.Generator resolves candidates
// by. Required for any route TryGetLink/GetLink should be able to target.
func (b *RouteBuilder) Address(address string) *RouteBuilder {
	b.entry.Endpoint.Address = address
	return b
}

// Default sets a fallback value applied when the named parameter's
// segment is absent from the matched path (an unsupplied trailing
// optional) or, symmetrically, consulted by the link generator when no
// supplied or ambient value exists for it.
func (b *RouteBuilder) Default(name, value string) *RouteBuilder {
	if b.entry.Defaults == nil {
		b.entry.Defaults = make(map[string]string, 2)
	}
	b.entry.Defaults[name] = value
	return b
}

// Metadata attaches an opaque key/value pair to the endpoint.
func (b *RouteBuilder) Metadata(key string, value any) *RouteBuilder {
	if b.entry.Endpoint.Metadata == nil {
		b.entry.Endpoint.Metadata = make(map[string]any, 2)
	}
	b.entry.Endpoint.Metadata[key] = value
	return b
}

// APIVersion sets the endpoint's uninterpreted version tag.
func (b *RouteBuilder) APIVersion(version string) *RouteBuilder {
	b.entry.Endpoint.APIVersion = version
	return b
}

// Entry returns the InboundRouteEntry this builder is assembling. Mainly
// useful for tests that need to inspect registration state before Build.
func (b *RouteBuilder) Entry() *endpoint.InboundRouteEntry {
	return b.entry
}
