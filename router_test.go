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
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/routecore/routecore/link"
	"github.com/routecore/routecore/values"
)

func TestRouter_MatchesSimpleAndParameterRoutes(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("users", "list-users").Address("users.list")
	r.Register("users/{id}", "get-user").WhereInt("id").Address("users.get")
	require.NoError(t, r.Build())

	entry, vals, ok := r.Match(context.Background(), "/users/42")
	require.True(t, ok)
	assert.Equal(t, "users/{id}", entry.Template.TemplateText)
	id, _ := vals.GetInt("id")
	assert.Equal(t, int64(42), id)

	entry, _, ok = r.Match(context.Background(), "/users")
	require.True(t, ok)
	assert.Equal(t, "users", entry.Template.TemplateText)
}

func TestRouter_ConstraintRejectsNonMatchingValue(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("users/{id}", nil).WhereInt("id")
	require.NoError(t, r.Build())

	_, _, ok := r.Match(context.Background(), "/users/not-a-number")
	assert.False(t, ok)
}

func TestRouter_InlineConstraintFromTemplateGrammar(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("users/{id:int}", nil)
	require.NoError(t, r.Build())

	_, _, ok := r.Match(context.Background(), "/users/abc")
	assert.False(t, ok)

	_, vals, ok := r.Match(context.Background(), "/users/7")
	require.True(t, ok)
	id, _ := vals.GetInt("id")
	assert.Equal(t, int64(7), id)
}

func TestRouter_DuplicateRouteRejectedAtBuild(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("users/{id}", nil)
	r.Register("users/{name}", nil)
	err := r.Build()
	require.Error(t, err)
	var dup *DuplicateRouteError
	require.ErrorAs(t, err, &dup)
}

func TestRouter_BuildFailsWithNoRoutes(t *testing.T) {
	t.Parallel()

	r := New()
	assert.ErrorIs(t, r.Build(), ErrNoRoutes)
}

func TestRouter_RegisterAfterBuildFails(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("home", nil)
	require.NoError(t, r.Build())

	_, err := r.TryRegister("about", nil)
	assert.ErrorIs(t, err, ErrAlreadyBuilt)
}

func TestRouter_MatchPanicsBeforeBuild(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("home", nil)
	assert.Panics(t, func() {
		r.Match(context.Background(), "/home")
	})
}

func TestRouter_EnginesAgreeOnWinningCandidate(t *testing.T) {
	t.Parallel()

	for _, kind := range []Kind{PackedTree, DFA, Instruction} {
		r := New(WithEngine(kind))
		r.Register("articles", "list")
		r.Register("articles/{id}", "get").WhereInt("id")
		r.Register("articles/{*slug}", "catchall")
		require.NoError(t, r.Build(), kind)

		entry, _, ok := r.Match(context.Background(), "/articles/99")
		require.True(t, ok, kind)
		assert.Equal(t, "articles/{id}", entry.Template.TemplateText, kind)

		entry, _, ok = r.Match(context.Background(), "/articles/a/b/c")
		require.True(t, ok, kind)
		assert.Equal(t, "articles/{*slug}", entry.Template.TemplateText, kind)
	}
}

func TestRouter_BloomFilterRejectsUnknownLeadingSegment(t *testing.T) {
	t.Parallel()

	r := New(WithBloomFilter(1024, 3))
	r.Register("users/{id}", nil)
	require.NoError(t, r.Build())

	_, _, ok := r.Match(context.Background(), "/widgets/1")
	assert.False(t, ok)

	_, _, ok = r.Match(context.Background(), "/users/1")
	assert.True(t, ok)
}

func TestRouter_BloomFilterDisabledWhenLeadingSegmentIsParameter(t *testing.T) {
	t.Parallel()

	r := New(WithBloomFilter(1024, 3))
	r.Register("{controller}/{action}", nil)
	require.NoError(t, r.Build())

	_, _, ok := r.Match(context.Background(), "/home/index")
	assert.True(t, ok, "bloom filter must not reject a path a parameterized leading segment would have matched")
}

func TestRouter_BuildRejectsBadBloomConfig(t *testing.T) {
	t.Parallel()

	r := New(WithBloomFilter(0, 3))
	r.Register("home", nil)
	assert.ErrorIs(t, r.Build(), ErrBloomFilterSizeZero)

	r2 := New(WithBloomFilter(100, 0))
	r2.Register("home", nil)
	assert.ErrorIs(t, r2.Build(), ErrBloomHashFunctionsInvalid)
}

func TestRouter_LinkGeneration(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("{controller}/{action}/{id?}", nil).Address("home")
	require.NoError(t, r.Build())

	supplied := values.New(3)
	supplied.Set("controller", "Home")
	supplied.Set("action", "Index")
	supplied.Set("id", "10")

	path, ok := r.TryGetLink(link.Context{Address: "home", Supplied: supplied})
	require.True(t, ok)
	assert.Equal(t, "/Home/Index/10", path)
}

func TestRouter_LinkGenerationFailsWithoutBuild(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("home", nil)
	assert.Panics(t, func() {
		r.TryGetLink(link.Context{Address: "home"})
	})
}

func TestRouter_HighParamCountLogsWarning(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := New(WithLogger(logger))
	r.Register("a/{p1}/{p2}/{p3}/{p4}/{p5}/{p6}/{p7}/{p8}/{p9}", nil)
	require.NoError(t, r.Build())

	assert.Contains(t, buf.String(), "unusually high parameter count")
}

func TestRouter_TracerWrapsMatchWithSpan(t *testing.T) {
	t.Parallel()

	tp := noop.NewTracerProvider()
	r := New(WithTracer(tp.Tracer("routecore-test")))
	r.Register("home", nil)
	require.NoError(t, r.Build())

	_, _, ok := r.Match(context.Background(), "/home")
	assert.True(t, ok)
}
