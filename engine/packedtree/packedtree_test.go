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

package packedtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecore/routecore/constraint"
	"github.com/routecore/routecore/endpoint"
	"github.com/routecore/routecore/precedence"
	"github.com/routecore/routecore/template"
)

func mustEntry(t *testing.T, tpl string) *endpoint.InboundRouteEntry {
	t.Helper()
	rt, err := template.ParseTemplate(tpl)
	require.NoError(t, err)
	return &endpoint.InboundRouteEntry{
		Template:   rt,
		Endpoint:   &endpoint.Endpoint{TemplateText: rt.TemplateText},
		Precedence: precedence.Compute(rt),
	}
}

func buildMatcher(t *testing.T, templates ...string) *Matcher {
	t.Helper()
	entries := make([]*endpoint.InboundRouteEntry, len(templates))
	for i, tpl := range templates {
		entries[i] = mustEntry(t, tpl)
	}
	m, err := Build(entries, constraint.NewEngine(nil))
	require.NoError(t, err)
	return m
}

func TestPackedTree_LiteralBeatsParameter(t *testing.T) {
	t.Parallel()

	m := buildMatcher(t, "{controller}/edit", "{controller}/{action}")

	entry, vals, ok := m.Match("/products/edit")
	require.True(t, ok)
	assert.Equal(t, "{controller}/edit", entry.Template.TemplateText)
	controller, _ := vals.GetString("controller")
	assert.Equal(t, "products", controller)
}

func TestPackedTree_OptionalTrailingSegment(t *testing.T) {
	t.Parallel()

	m := buildMatcher(t, "{controller}/{action}/{id?}")

	entry, vals, ok := m.Match("/Home/Index")
	require.True(t, ok)
	assert.Equal(t, "{controller}/{action}/{id?}", entry.Template.TemplateText)
	_, hasID := vals.Get("id")
	assert.False(t, hasID)

	_, vals2, ok2 := m.Match("/Home/Index/10")
	require.True(t, ok2)
	id, _ := vals2.GetString("id")
	assert.Equal(t, "10", id)
}

func TestPackedTree_CatchAllFallback(t *testing.T) {
	t.Parallel()

	m := buildMatcher(t, "files/{name}", "files/{*path}")

	entry, vals, ok := m.Match("/files/a/b/c")
	require.True(t, ok)
	assert.Equal(t, "files/{*path}", entry.Template.TemplateText)
	path, _ := vals.GetString("path")
	assert.Equal(t, "a/b/c", path)

	entry2, vals2, ok2 := m.Match("/files/report.txt")
	require.True(t, ok2)
	assert.Equal(t, "files/{name}", entry2.Template.TemplateText)
	name, _ := vals2.GetString("name")
	assert.Equal(t, "report.txt", name)
}

func TestPackedTree_CatchAllZeroResidue(t *testing.T) {
	t.Parallel()

	m := buildMatcher(t, "files/{*path}")

	_, vals, ok := m.Match("/files")
	require.True(t, ok)
	path, _ := vals.GetString("path")
	assert.Equal(t, "", path)
}

func TestPackedTree_NoMatch(t *testing.T) {
	t.Parallel()

	m := buildMatcher(t, "{controller}/{action}")

	_, _, ok := m.Match("/Home/Index/Extra")
	assert.False(t, ok)
}

func TestPackedTree_RejectsComplexSegment(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, "file-{name}.txt")
	_, err := Build([]*endpoint.InboundRouteEntry{entry}, constraint.NewEngine(nil))
	assert.ErrorIs(t, err, ErrComplexSegmentUnsupported)
}

func TestPackedTree_LiteralsAreCaseInsensitive(t *testing.T) {
	t.Parallel()

	m := buildMatcher(t, "Home/Index")

	_, _, ok := m.Match("/home/INDEX")
	assert.True(t, ok)
}
