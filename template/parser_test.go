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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate_SimpleParameters(t *testing.T) {
	t.Parallel()

	rt, err := ParseTemplate("{controller}/{action}/{id?}")
	require.NoError(t, err)
	assert.Len(t, rt.Segments, 3)
	assert.True(t, rt.Segments[2].IsOptional())
	assert.Equal(t, 2, rt.RequiredSegmentCount())
	assert.False(t, rt.HasCatchAll())
}

func TestParseTemplate_LeadingSlashesStripped(t *testing.T) {
	t.Parallel()

	rt1, err := ParseTemplate("/{controller}")
	require.NoError(t, err)
	rt2, err := ParseTemplate("~/{controller}")
	require.NoError(t, err)
	rt3, err := ParseTemplate("{controller}")
	require.NoError(t, err)

	assert.Equal(t, rt1.TemplateText, rt2.TemplateText)
	assert.Equal(t, rt1.TemplateText, rt3.TemplateText)
}

func TestParseTemplate_CatchAll(t *testing.T) {
	t.Parallel()

	rt, err := ParseTemplate("files/{*path}")
	require.NoError(t, err)
	assert.True(t, rt.HasCatchAll())
	assert.True(t, rt.Segments[1].IsCatchAll())
}

func TestParseTemplate_CatchAllNotLast(t *testing.T) {
	t.Parallel()

	_, err := ParseTemplate("{*path}/edit")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, CatchAllNotLast, perr.Kind)
}

func TestParseTemplate_OptionalNotTrailing(t *testing.T) {
	t.Parallel()

	_, err := ParseTemplate("{controller?}/{action}")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, OptionalNotTrailing, perr.Kind)
}

func TestParseTemplate_DuplicateName(t *testing.T) {
	t.Parallel()

	_, err := ParseTemplate("{id}/{ID}")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, DuplicateName, perr.Kind)
}

func TestParseTemplate_EmptyName(t *testing.T) {
	t.Parallel()

	_, err := ParseTemplate("{}/index")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, EmptyName, perr.Kind)
}

func TestParseTemplate_UnbalancedBrace(t *testing.T) {
	t.Parallel()

	_, err := ParseTemplate("{controller/action}")
	require.Error(t, err)

	_, err = ParseTemplate("{controller")
	require.Error(t, err)
}

func TestParseTemplate_DefaultOnCatchAll(t *testing.T) {
	t.Parallel()

	_, err := ParseTemplate("files/{*path=default}")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, DefaultOnCatchAll, perr.Kind)
}

func TestParseTemplate_EscapedBraces(t *testing.T) {
	t.Parallel()

	rt, err := ParseTemplate("literal-{{with-braces}}/{id}")
	require.NoError(t, err)
	require.Len(t, rt.Segments, 2)
	assert.Equal(t, Literal, rt.Segments[0].Parts[0].Kind)
	assert.Equal(t, "literal-{with-braces}", rt.Segments[0].Parts[0].Text)
}

func TestParseTemplate_EscapedBraceSharesSegmentWithParameter(t *testing.T) {
	t.Parallel()

	rt, err := ParseTemplate("{id}{{suffix}}")
	require.NoError(t, err)
	require.Len(t, rt.Segments, 1)

	parts := rt.Segments[0].Parts
	require.Len(t, parts, 4)
	assert.Equal(t, Parameter, parts[0].Kind)
	assert.Equal(t, "id", parts[0].Text)
	assert.Equal(t, Separator, parts[1].Kind)
	assert.Equal(t, "{", parts[1].Text)
	assert.Equal(t, Literal, parts[2].Kind)
	assert.Equal(t, "suffix", parts[2].Text)
	assert.Equal(t, Separator, parts[3].Kind)
	assert.Equal(t, "}", parts[3].Text)
	assert.False(t, rt.Segments[0].IsSimple())
}

func TestParseTemplate_DefaultAndConstraint(t *testing.T) {
	t.Parallel()

	rt, err := ParseTemplate("{controller}/{action=Index}/{id:int?}")
	require.NoError(t, err)

	action := rt.Segments[1].Parts[0]
	assert.True(t, action.Opts.HasDefault)
	assert.Equal(t, "Index", action.Opts.DefaultValue)

	id := rt.Segments[2].Parts[0]
	assert.True(t, id.Opts.IsOptional)
	assert.Equal(t, []string{"int"}, id.Opts.InlineConstraints)
}

func TestParseTemplate_ParametersIndex(t *testing.T) {
	t.Parallel()

	rt, err := ParseTemplate("{controller}/{action}/{id?}")
	require.NoError(t, err)
	assert.Equal(t, 0, rt.Parameters["controller"])
	assert.Equal(t, 1, rt.Parameters["action"])
	assert.Equal(t, 2, rt.Parameters["id"])
}
