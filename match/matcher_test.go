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

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecore/routecore/constraint"
	"github.com/routecore/routecore/endpoint"
	"github.com/routecore/routecore/precedence"
	"github.com/routecore/routecore/template"
	"github.com/routecore/routecore/values"
)

func newMatcher(t *testing.T, tpl string, defaults map[string]string, constraints map[string][]constraint.Constraint) *TemplateMatcher {
	t.Helper()
	rt, err := template.ParseTemplate(tpl)
	require.NoError(t, err)
	entry := &endpoint.InboundRouteEntry{
		Template:    rt,
		Defaults:    defaults,
		Constraints: constraints,
		Precedence:  precedence.Compute(rt),
	}
	return New(entry, constraint.NewEngine(nil))
}

func TestTryMatch_Scenario1_SingleParameter(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "{controller}", nil, nil)
	out := values.New(4)
	require.True(t, m.TryMatch("/Home", out))

	v, ok := out.GetString("controller")
	require.True(t, ok)
	assert.Equal(t, "Home", v)
}

func TestTryMatch_Scenario2_OptionalTrailing(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "{controller}/{action}/{id?}", nil, nil)
	out := values.New(4)
	require.True(t, m.TryMatch("/Home/Index", out))

	_, hasID := out.Get("id")
	assert.False(t, hasID)

	action, _ := out.GetString("action")
	assert.Equal(t, "Index", action)
}

func TestTryMatch_CaseInsensitiveLiterals(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "simple", nil, nil)
	out := values.New(1)

	assert.True(t, m.TryMatch("/Simple", out))
	assert.True(t, m.TryMatch("/SIMPLE", out))
	assert.True(t, m.TryMatch("/simple/", out))
	assert.False(t, m.TryMatch("/siple", out))
	assert.False(t, m.TryMatch("/simple1", out))
}

func TestTryMatch_CatchAll(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "files/{*path}", nil, nil)
	out := values.New(2)
	require.True(t, m.TryMatch("/files/a/b/c", out))

	v, _ := out.GetString("path")
	assert.Equal(t, "a/b/c", v)
}

func TestTryMatch_ConstraintFailureRestoresValues(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "{id}", nil, map[string][]constraint.Constraint{
		"id": {constraint.IntConstraint{}},
	})
	out := values.New(2)
	out.Set("preexisting", "value")
	mark := out.Mark()

	assert.False(t, m.TryMatch("/not-an-int", out))
	assert.Equal(t, mark, out.Mark(), "failed match must not mutate the values map")

	v, _ := out.GetString("preexisting")
	assert.Equal(t, "value", v)
}

func TestTryMatch_IntConstraintCoercesToIntCell(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "{id}", nil, map[string][]constraint.Constraint{
		"id": {constraint.IntConstraint{}},
	})
	out := values.New(1)
	require.True(t, m.TryMatch("/42", out))

	cell, ok := out.Get("id")
	require.True(t, ok)
	assert.Equal(t, values.Int, cell.Kind)
	assert.Equal(t, int64(42), cell.Int)

	n, ok := out.GetInt("id")
	require.True(t, ok)
	assert.Equal(t, int64(42), n)
}

func TestTryMatch_CapturedValueOverridesDefault(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "{controller}/{action}", map[string]string{"action": "Index"}, nil)
	out := values.New(2)
	// the template requires both segments, so action is always captured
	// here and the captured value must win over the declared default.
	require.True(t, m.TryMatch("/Home/List", out))
	action, _ := out.GetString("action")
	assert.Equal(t, "List", action)
}

func TestTryMatch_ComplexSegment(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "file-{name}.txt", nil, nil)
	out := values.New(1)
	require.True(t, m.TryMatch("/file-report.txt", out))

	v, _ := out.GetString("name")
	assert.Equal(t, "report", v)

	assert.False(t, m.TryMatch("/file-report.csv", out))
}

func TestTryMatch_ComplexSegmentWithEscapedBrace(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "{name}{{v1}}", nil, nil)
	out := values.New(1)
	require.True(t, m.TryMatch("/report{v1}", out))

	v, _ := out.GetString("name")
	assert.Equal(t, "report", v)

	assert.False(t, m.TryMatch("/report{v2}", out))
}

func TestTryMatch_SegmentCountMismatch(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "{controller}/{action}", nil, nil)
	out := values.New(2)
	assert.False(t, m.TryMatch("/Home", out))
	assert.False(t, m.TryMatch("/Home/Index/Extra", out))
}
