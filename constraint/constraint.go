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

// Package constraint implements the per-parameter constraint engine:
// inline type/format predicates, evaluated conjunctively, in both the
// inbound (matching) and outbound (link generation) directions.
package constraint

import (
	"log/slog"

	"github.com/routecore/routecore/values"
)

// Direction distinguishes inbound (request matching) from outbound (link
// generation) evaluation.
type Direction uint8

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}
	return "inbound"
}

// EvalContext carries the information a Constraint may need beyond the
// candidate value itself: the parameter name (for diagnostics) and the
// values map built so far, for constraints that compare across
// parameters. No builtin constraint in this package uses the values map,
// but the interface leaves room for it behind a generic
// "Match(value, context, direction)" signature.
type EvalContext struct {
	ParamName string
	Values    *values.Values
}

// Constraint is a single per-parameter predicate.
type Constraint interface {
	// Name identifies the constraint kind for diagnostics.
	Name() string
	// Match reports whether value satisfies the constraint in the given
	// direction. An empty value never satisfies a constraint other than
	// one explicitly designed to allow it.
	Match(value string, ctx EvalContext, dir Direction) bool
}

// TypedConstraint is a Constraint that also knows how to coerce an
// already-validated value into its typed Cell representation, rather than
// leaving it as a plain string. A capture validated by at least one
// TypedConstraint is stored under that representation instead of String;
// when more than one constraint on the same parameter implements
// TypedConstraint, the first one in declaration order wins.
type TypedConstraint interface {
	Constraint
	// Coerce converts value, which Match has already accepted, into its
	// typed Cell form.
	Coerce(value string) values.Cell
}

// Engine evaluates an ordered, conjunctive list of Constraints for one
// parameter. Constraints are checked in declaration order; the engine
// stops at (and logs) the first rejection.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a constraint engine. A nil logger disables debug
// logging of rejections.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Evaluate runs every constraint in order against value, short-circuiting
// on the first failure. Constraint failures are logged at debug level and
// never returned as an error — a rejection here only ever surfaces as a
// failed match or failed link candidate, never as a propagated error.
func (e *Engine) Evaluate(constraints []Constraint, value string, ctx EvalContext, dir Direction) bool {
	for _, c := range constraints {
		if !c.Match(value, ctx, dir) {
			if e.logger != nil {
				e.logger.Debug("constraint rejected",
					"constraint", c.Name(),
					"param", ctx.ParamName,
					"value", value,
					"direction", dir.String(),
				)
			}
			return false
		}
	}
	return true
}
