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
	"context"
	"fmt"
	"testing"
)

// buildBenchRouter registers the same route table under the given engine,
// shared by every benchmark below so the three engines are compared on
// identical input.
func buildBenchRouter(b *testing.B, kind Kind) *Router {
	b.Helper()
	r := New(WithEngine(kind))
	r.Register("api/users", nil)
	r.Register("api/users/{id}", nil).WhereInt("id")
	r.Register("api/users/{id}/posts", nil).WhereInt("id")
	r.Register("api/users/{id}/posts/{postID}", nil).WhereInt("id").WhereInt("postID")
	r.Register("api/orgs/{org}/repos/{repo}", nil)
	r.Register("api/orgs/{org}/repos/{repo}/issues/{issue?}", nil)
	for i := range 50 {
		r.Register(fmt.Sprintf("api/static/route%d", i), nil)
	}
	if err := r.Build(); err != nil {
		b.Fatalf("build: %v", err)
	}
	return r
}

// BenchmarkEngines_MatchStatic compares engine throughput on a fixed,
// no-parameter route, mirroring radix_test.go's static-lookup benchmarks.
func BenchmarkEngines_MatchStatic(b *testing.B) {
	for _, kind := range []Kind{PackedTree, DFA, Instruction} {
		b.Run(kind.String(), func(b *testing.B) {
			r := buildBenchRouter(b, kind)
			ctx := context.Background()
			b.ReportAllocs()
			for b.Loop() {
				_, _, _ = r.Match(ctx, "/api/users")
			}
		})
	}
}

// BenchmarkEngines_MatchParameterized compares engine throughput on a
// route with two captured parameters and both constraints satisfied.
func BenchmarkEngines_MatchParameterized(b *testing.B) {
	for _, kind := range []Kind{PackedTree, DFA, Instruction} {
		b.Run(kind.String(), func(b *testing.B) {
			r := buildBenchRouter(b, kind)
			ctx := context.Background()
			b.ReportAllocs()
			for b.Loop() {
				_, _, _ = r.Match(ctx, "/api/users/42/posts/7")
			}
		})
	}
}

// BenchmarkEngines_MatchMiss compares engine throughput on a path that
// matches nothing, exercising each engine's worst-case fallback walk.
func BenchmarkEngines_MatchMiss(b *testing.B) {
	for _, kind := range []Kind{PackedTree, DFA, Instruction} {
		b.Run(kind.String(), func(b *testing.B) {
			r := buildBenchRouter(b, kind)
			ctx := context.Background()
			b.ReportAllocs()
			for b.Loop() {
				_, _, _ = r.Match(ctx, "/api/does/not/exist")
			}
		})
	}
}
