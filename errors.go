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
	"errors"
	"fmt"
)

var (
	// ErrBloomFilterSizeZero is returned by Build when WithBloomFilter was
	// given a zero size.
	ErrBloomFilterSizeZero = errors.New("routecore: bloom filter size must be > 0")
	// ErrBloomHashFunctionsInvalid is returned by Build when WithBloomFilter
	// was given a non-positive hash function count.
	ErrBloomHashFunctionsInvalid = errors.New("routecore: bloom filter hash function count must be > 0")
	// ErrNoRoutes is returned by Build when no routes were registered.
	ErrNoRoutes = errors.New("routecore: no routes registered")
	// ErrAlreadyBuilt is returned by TryRegister and Build once the router
	// has been built; Register panics with it in that case.
	ErrAlreadyBuilt = errors.New("routecore: router is already built")
	// ErrNotBuilt is the panic value of Match and the link methods when
	// they are called before Build has run.
	ErrNotBuilt = errors.New("routecore: router has not been built")
)

// DuplicateRouteError reports two registered templates that collide: the
// same precedence shape and the same literal text at every literal
// position, whatever their parameter names, so they would match an
// identical set of request paths. TemplateText is the later template.
type DuplicateRouteError struct {
	TemplateText string
	FirstOrder   int
	SecondOrder  int
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("routecore: duplicate route %q registered at positions %d and %d",
		e.TemplateText, e.FirstOrder, e.SecondOrder)
}
