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
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/routecore/routecore/link"
)

// Kind selects which match engine Build compiles the registered routes
// into. All three produce identical match results; they differ only in
// build strategy and the shape of complex-segment support.
type Kind uint8

const (
	// PackedTree selects the packed breadth-first tree matcher (default).
	PackedTree Kind = iota
	// DFA selects the state-machine matcher; the only engine that
	// accepts templates with complex (mixed literal+parameter) segments.
	DFA
	// Instruction selects the flat opcode-stream matcher.
	Instruction
)

func (k Kind) String() string {
	switch k {
	case DFA:
		return "dfa"
	case Instruction:
		return "instruction"
	default:
		return "packedtree"
	}
}

const (
	defaultBloomFilterSize    = 1000
	defaultBloomHashFunctions = 3
)

// Option configures a Router at construction time.
type Option func(*Router)

// WithLogger attaches a structured logger. Build logs the route count at
// Debug and high-param-count diagnostics at Warn (duplicate routes are
// returned as an error, not logged); a nil logger is ignored, leaving the
// default no-op logger in place.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEngine selects which of the three match engines Build compiles
// into. The default is PackedTree.
func WithEngine(kind Kind) Option {
	return func(r *Router) {
		r.engineKind = kind
	}
}

// WithBloomFilter enables the first-path-segment bloom filter pre-match
// check, sized to size bits with numHashFuncs hash functions. Build
// rejects a zero size or non-positive hash function count.
func WithBloomFilter(size uint64, numHashFuncs int) Option {
	return func(r *Router) {
		r.bloomEnabled = true
		r.bloomSize = size
		r.bloomHashFuncs = numHashFuncs
	}
}

// WithOptions sets the link generator's emission-time formatting options
// (lowercasing, trailing-slash appending).
func WithOptions(opts link.Options) Option {
	return func(r *Router) {
		r.linkOptions = opts
	}
}

// WithTracer attaches an OpenTelemetry tracer. When set, Match wraps each
// call in a "routecore.match" span carrying http.route and
// routecore.engine attributes.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Router) {
		r.tracer = tracer
	}
}
