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

// Package routecore is the facade that wires template registration,
// precedence, the three match engines, and the link generator into one
// build/match lifecycle, following the functional-options style of
// router.go's Option func(*Router) pattern, its noopLogger, and its
// construct-then-freeze lifecycle, minus anything that belongs to the
// HTTP-serving layer.
package routecore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/routecore/routecore/constraint"
	"github.com/routecore/routecore/endpoint"
	"github.com/routecore/routecore/engine/dfa"
	"github.com/routecore/routecore/engine/instruction"
	"github.com/routecore/routecore/engine/packedtree"
	"github.com/routecore/routecore/link"
	"github.com/routecore/routecore/precedence"
	"github.com/routecore/routecore/template"
	"github.com/routecore/routecore/values"
)

// noopLogger discards everything, the same construction router.go uses
// for its own NoopLogger.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// maxInlineParams is the threshold route/registrar.go's DiagHighParamCount
// diagnostic uses, the same size as radix.go's Context.paramKeys array.
const maxInlineParams = 8

// matchRunner is the shape every compiled engine exposes. dfa.Matcher and
// packedtree.Matcher already satisfy it directly via Match;
// instruction.Program is adapted to it below since it names the same
// method Run.
type matchRunner interface {
	Match(path string) (*endpoint.InboundRouteEntry, *values.Values, bool)
}

type instructionRunner struct{ program *instruction.Program }

func (r instructionRunner) Match(path string) (*endpoint.InboundRouteEntry, *values.Values, bool) {
	return r.program.Run(path)
}

// Router holds registered routes, compiles them into one of the three
// match engines on Build, and serves both Match and link generation
// afterward. The zero value is not usable; construct with New.
type Router struct {
	logger           *slog.Logger
	engineKind       Kind
	bloomEnabled     bool
	bloomSize        uint64
	bloomHashFuncs   int
	linkOptions      link.Options
	tracer           trace.Tracer
	constraintEngine *constraint.Engine

	entries []*endpoint.InboundRouteEntry

	built     bool
	matcher   matchRunner
	bloom     *bloomFilter
	bloomSafe bool
	linkGen   *link.Generator
}

// New creates a Router with opts applied. The router is usable for
// Register immediately; Build must run before Match or link generation.
func New(opts ...Option) *Router {
	r := &Router{
		logger:         noopLogger,
		engineKind:     PackedTree,
		bloomSize:      defaultBloomFilterSize,
		bloomHashFuncs: defaultBloomHashFunctions,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.constraintEngine = constraint.NewEngine(r.logger)
	return r
}

// Register parses templateText and returns a RouteBuilder for attaching
// constraints, defaults, and an address before Build.
//
// Register panics on a malformed template, the same startup-time
// fail-fast policy route/route.go's Where uses for an invalid regex: a
// bad template is a programmer error caught at registration, not a
// runtime condition callers should need to branch on.
func (r *Router) Register(templateText string, handler endpoint.Handler) *RouteBuilder {
	b, err := r.TryRegister(templateText, handler)
	if err != nil {
		panic(fmt.Sprintf("routecore: %v", err))
	}
	return b
}

// TryRegister is Register without the panic, for callers parsing
// templates from untrusted input.
func (r *Router) TryRegister(templateText string, handler endpoint.Handler) (*RouteBuilder, error) {
	if r.built {
		return nil, ErrAlreadyBuilt
	}
	tpl, err := template.ParseTemplate(templateText)
	if err != nil {
		return nil, err
	}
	entry := &endpoint.InboundRouteEntry{
		Template:   tpl,
		Endpoint:   &endpoint.Endpoint{TemplateText: tpl.TemplateText, Handler: handler},
		Precedence: precedence.Compute(tpl),
		Order:      len(r.entries),
	}
	r.entries = append(r.entries, entry)
	return &RouteBuilder{router: r, entry: entry}, nil
}

// Build resolves every template's inline constraints, checks for
// duplicate routes and unusually high parameter counts, compiles the
// chosen match engine, and (if enabled) the first-segment bloom filter.
// Build must run exactly once, after every Register call and before any
// Match or link-generation call.
func (r *Router) Build() error {
	if r.built {
		return ErrAlreadyBuilt
	}
	if len(r.entries) == 0 {
		return ErrNoRoutes
	}
	if r.bloomEnabled {
		if r.bloomSize == 0 {
			return ErrBloomFilterSizeZero
		}
		if r.bloomHashFuncs <= 0 {
			return ErrBloomHashFunctionsInvalid
		}
	}

	if err := resolveInlineConstraints(r.entries); err != nil {
		return err
	}
	if err := checkDuplicates(r.entries); err != nil {
		return err
	}
	r.warnHighParamCount()

	r.logger.Debug("routecore: building", "routes", len(r.entries), "engine", r.engineKind.String())

	matcher, err := r.buildEngine()
	if err != nil {
		return err
	}
	r.matcher = matcher

	if r.bloomEnabled {
		r.buildBloom()
	}

	finder := newRegistryFinder(r.entries)
	r.linkGen = link.New(finder, r.constraintEngine)

	r.built = true
	return nil
}

func (r *Router) buildEngine() (matchRunner, error) {
	switch r.engineKind {
	case DFA:
		return dfa.Build(r.entries, r.constraintEngine)
	case Instruction:
		program, err := instruction.Build(r.entries, r.constraintEngine)
		if err != nil {
			return nil, err
		}
		return instructionRunner{program: program}, nil
	default:
		return packedtree.Build(r.entries, r.constraintEngine)
	}
}

// buildBloom indexes every entry whose leading segment is a fixed
// literal. Any entry whose leading segment is a parameter or catch-all
// makes the filter unsafe to consult (it could reject a path that a
// genuinely-matching parameterized route would have accepted), so Build
// leaves bloomSafe false and Match skips the pre-check entirely in that
// case rather than risk a false rejection.
func (r *Router) buildBloom() {
	r.bloom = newBloomFilter(r.bloomSize, r.bloomHashFuncs)
	r.bloomSafe = true
	for _, e := range r.entries {
		if len(e.Template.Segments) == 0 {
			r.bloomSafe = false
			continue
		}
		first := e.Template.Segments[0]
		if !first.IsSimple() || first.Parts[0].Kind != template.Literal {
			r.bloomSafe = false
			continue
		}
		r.bloom.add([]byte(strings.ToLower(first.Parts[0].Text)))
	}
	if !r.bloomSafe {
		r.logger.Debug("routecore: bloom filter disabled, a registered template has a non-literal leading segment")
	}
}

func (r *Router) warnHighParamCount() {
	for _, e := range r.entries {
		if len(e.Template.Parameters) > maxInlineParams {
			r.logger.Warn("routecore: route has unusually high parameter count",
				"template", e.Template.TemplateText, "params", len(e.Template.Parameters))
		}
	}
}

// resolveInlineConstraints converts each parameter's grammar-level
// InlineConstraints (e.g. the ":int" in "{id:int}") into Constraint
// values and prepends them to that parameter's constraint list, ahead of
// any constraint attached through RouteBuilder.Where*. Declaring a
// constraint in the template itself reads as the more fundamental rule;
// a fluent Where* call narrows further.
func resolveInlineConstraints(entries []*endpoint.InboundRouteEntry) error {
	for _, e := range entries {
		for _, seg := range e.Template.Segments {
			for _, part := range seg.Parts {
				if part.Kind != template.Parameter || len(part.Opts.InlineConstraints) == 0 {
					continue
				}
				lname := strings.ToLower(part.Text)
				var resolved []constraint.Constraint
				for _, spec := range part.Opts.InlineConstraints {
					c, err := constraint.FromInlineSpec(spec)
					if err != nil {
						return fmt.Errorf("routecore: template %q, parameter %q: %w", e.Template.TemplateText, part.Text, err)
					}
					resolved = append(resolved, c)
				}
				if e.Constraints == nil {
					e.Constraints = make(map[string][]constraint.Constraint, 2)
				}
				e.Constraints[lname] = append(resolved, e.Constraints[lname]...)
			}
		}
	}
	return nil
}

// checkDuplicates reports the first entry that collides with one already
// seen: same precedence shape and the same literal text at every literal
// position, so the two would match an identical set of request paths. A
// parameter's name never enters this comparison, so "users/{id}" and
// "users/{name}" collide just as surely as two textually identical
// templates would. checkDuplicates compares every entry against every
// prior entry directly via Precedence.Collides rather than sorting and
// comparing neighbors, since two colliding entries with differently-cased
// literal text would not necessarily sort adjacently under
// Precedence.Less's case-sensitive Text tie-break. Route tables are
// compiled once at Build time, not on the match hot path, so the
// quadratic comparison is not a concern.
func checkDuplicates(entries []*endpoint.InboundRouteEntry) error {
	for i, e := range entries {
		for _, prior := range entries[:i] {
			if !prior.Precedence.Collides(e.Precedence) {
				continue
			}
			return &DuplicateRouteError{
				TemplateText: e.Template.TemplateText,
				FirstOrder:   prior.Order,
				SecondOrder:  e.Order,
			}
		}
	}
	return nil
}

// Match attempts to match path against the compiled route set. Match
// panics with ErrNotBuilt if called before Build, the same "programmer
// error" panic policy Register's template-parse panic follows.
func (r *Router) Match(ctx context.Context, path string) (*endpoint.InboundRouteEntry, *values.Values, bool) {
	if !r.built {
		panic(ErrNotBuilt)
	}

	if r.tracer != nil {
		_, span := r.tracer.Start(ctx, "routecore.match",
			trace.WithAttributes(attribute.String("routecore.engine", r.engineKind.String())))
		defer span.End()
		entry, vals, ok := r.matchNoTrace(path)
		if ok {
			span.SetAttributes(attribute.String("http.route", entry.Template.TemplateText))
		}
		return entry, vals, ok
	}

	return r.matchNoTrace(path)
}

func (r *Router) matchNoTrace(path string) (*endpoint.InboundRouteEntry, *values.Values, bool) {
	if r.bloomEnabled && r.bloomSafe && !r.bloom.test(firstSegmentKey(path)) {
		return nil, nil, false
	}
	return r.matcher.Match(path)
}

// TryGetLink builds a path for ctx against the registered routes. Panics
// with ErrNotBuilt if called before Build.
func (r *Router) TryGetLink(ctx link.Context) (string, bool) {
	if !r.built {
		panic(ErrNotBuilt)
	}
	ctx.Options = mergeLinkOptions(r.linkOptions, ctx.Options)
	return r.linkGen.TryGetLink(ctx)
}

// GetLink is TryGetLink but fails loudly.
func (r *Router) GetLink(ctx link.Context) (string, error) {
	if !r.built {
		panic(ErrNotBuilt)
	}
	ctx.Options = mergeLinkOptions(r.linkOptions, ctx.Options)
	return r.linkGen.GetLink(ctx)
}

// mergeLinkOptions lets a per-call ctx.Options opt into the router-wide
// defaults set by WithOptions without silently overriding a caller that
// explicitly set a field: any field already true on the call-site
// Options stays true.
func mergeLinkOptions(defaults, override link.Options) link.Options {
	return link.Options{
		LowercaseURLs:         defaults.LowercaseURLs || override.LowercaseURLs,
		AppendTrailingSlash:   defaults.AppendTrailingSlash || override.AppendTrailingSlash,
		LowercaseQueryStrings: defaults.LowercaseQueryStrings || override.LowercaseQueryStrings,
	}
}

// registryFinder backs link.Generator with the entries Router collected
// at Register time, grouped by address and kept in declaration order, as
// link.EndpointFinder requires.
type registryFinder struct {
	byAddress map[string][]*endpoint.InboundRouteEntry
}

func newRegistryFinder(entries []*endpoint.InboundRouteEntry) *registryFinder {
	f := &registryFinder{byAddress: make(map[string][]*endpoint.InboundRouteEntry)}
	for _, e := range entries {
		if e.Endpoint.Address == "" {
			continue
		}
		f.byAddress[e.Endpoint.Address] = append(f.byAddress[e.Endpoint.Address], e)
	}
	for _, list := range f.byAddress {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Order < list[j].Order
		})
	}
	return f
}

func (f *registryFinder) FindEndpoints(address string) []*endpoint.InboundRouteEntry {
	return f.byAddress[address]
}
