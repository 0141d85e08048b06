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

// Package endpoint defines the data shared by every match engine and the
// link generator: the opaque Endpoint handle and the InboundRouteEntry
// that binds a template to it for registration.
package endpoint

import (
	"github.com/routecore/routecore/constraint"
	"github.com/routecore/routecore/precedence"
	"github.com/routecore/routecore/template"
)

// Handler is intentionally opaque: the host pipeline's request/handler
// invocation model is out of scope for this subsystem. Engines only
// ever move a Handler value around; they never call it.
type Handler any

// Endpoint is the terminus of a match: opaque to the routing core beyond
// the fields it needs to match, extract, and link. Carries at minimum
// template text, defaults, address, metadata, and a handler.
type Endpoint struct {
	TemplateText string
	Defaults     map[string]string
	Address      string
	Metadata     map[string]any
	Handler      Handler

	// APIVersion is an uninterpreted caller-supplied tag. routecore never
	// orders or compares by it; no semver library is wired in here since
	// nothing in this package needs version ordering.
	APIVersion string
}

// InboundRouteEntry binds a parsed template, its defaults, its per-
// parameter constraints, and its endpoint, plus the precomputed
// precedence key and declaration order.
type InboundRouteEntry struct {
	Template    *template.RouteTemplate
	Defaults    map[string]string
	Constraints map[string][]constraint.Constraint // param name (lowercased) -> ordered constraints
	Endpoint    *Endpoint
	Precedence  precedence.Key
	Order       int
}

// ConstraintsFor returns the constraint list for name, or nil.
func (e *InboundRouteEntry) ConstraintsFor(name string) []constraint.Constraint {
	if e.Constraints == nil {
		return nil
	}
	return e.Constraints[name]
}
