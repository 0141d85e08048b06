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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins_Match(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		c     Constraint
		value string
		want  bool
	}{
		{"int ok", IntConstraint{}, "42", true},
		{"int bad", IntConstraint{}, "4.2", false},
		{"float ok", FloatConstraint{}, "4.2", true},
		{"uuid ok", UUIDConstraint{}, "123e4567-e89b-12d3-a456-426614174000", true},
		{"uuid bad", UUIDConstraint{}, "not-a-uuid", false},
		{"alpha ok", AlphaConstraint{}, "hello", true},
		{"alpha bad", AlphaConstraint{}, "hello1", false},
		{"enum ok", EnumConstraint{Values: []string{"a", "b"}}, "b", true},
		{"enum bad", EnumConstraint{Values: []string{"a", "b"}}, "c", false},
		{"length ok", LengthConstraint{Min: 2, Max: 5}, "abc", true},
		{"length too short", LengthConstraint{Min: 2, Max: 5}, "a", false},
		{"range ok", RangeConstraint{Min: 1, Max: 10}, "5", true},
		{"range out", RangeConstraint{Min: 1, Max: 10}, "50", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.c.Match(tc.value, EvalContext{ParamName: "x"}, Inbound)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFromInlineSpec(t *testing.T) {
	t.Parallel()

	c, err := FromInlineSpec("int")
	require.NoError(t, err)
	assert.True(t, c.Match("5", EvalContext{}, Inbound))

	c, err = FromInlineSpec("enum(a|b|c)")
	require.NoError(t, err)
	assert.True(t, c.Match("b", EvalContext{}, Inbound))
	assert.False(t, c.Match("z", EvalContext{}, Inbound))

	c, err = FromInlineSpec("range(1,10)")
	require.NoError(t, err)
	assert.True(t, c.Match("5", EvalContext{}, Inbound))
	assert.False(t, c.Match("50", EvalContext{}, Inbound))

	c, err = FromInlineSpec(`\d+`)
	require.NoError(t, err)
	assert.True(t, c.Match("123", EvalContext{}, Inbound))
	assert.False(t, c.Match("abc", EvalContext{}, Inbound))
}

func TestEngine_Evaluate_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	constraints := []Constraint{IntConstraint{}, RangeConstraint{Min: 1, Max: 10}}

	assert.True(t, e.Evaluate(constraints, "5", EvalContext{ParamName: "id"}, Inbound))
	assert.False(t, e.Evaluate(constraints, "50", EvalContext{ParamName: "id"}, Inbound))
	assert.False(t, e.Evaluate(constraints, "abc", EvalContext{ParamName: "id"}, Inbound))
}
