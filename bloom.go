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

import "hash/fnv"

// bloomFilter is a fixed-size probabilistic set used as an O(1) negative
// lookup in front of Router.Match: a path whose first segment is not in
// any registered template can be rejected before any engine walk starts.
//
// Hashing uses FNV-1a with a handful of XOR'd seeds rather than a family
// of independent hash functions; this is cheap and good enough for the
// small, mostly-static key sets (first path segments) this filter is
// built over.
type bloomFilter struct {
	bits  []uint64
	size  uint64
	seeds []uint64
}

// newBloomFilter creates a bloom filter sized for roughly size bits and
// configured with numHashFuncs hash functions.
func newBloomFilter(size uint64, numHashFuncs int) *bloomFilter {
	bf := &bloomFilter{
		bits:  make([]uint64, (size+63)/64),
		size:  size,
		seeds: make([]uint64, numHashFuncs),
	}
	for i := range numHashFuncs {
		bf.seeds[i] = uint64(i + 1)
	}
	return bf
}

func (bf *bloomFilter) hashWithSeed(baseHash, seed uint64) uint64 {
	return (baseHash ^ seed) % bf.size
}

// add records data as present in the filter.
func (bf *bloomFilter) add(data []byte) {
	h := fnv.New64a()
	h.Write(data)
	baseHash := h.Sum64()
	for _, seed := range bf.seeds {
		pos := bf.hashWithSeed(baseHash, seed)
		bf.bits[pos/64] |= 1 << (pos % 64)
	}
}

// test reports whether data might be present. false is a definite
// negative; true may be a false positive.
func (bf *bloomFilter) test(data []byte) bool {
	h := fnv.New64a()
	h.Write(data)
	baseHash := h.Sum64()
	for _, seed := range bf.seeds {
		pos := bf.hashWithSeed(baseHash, seed)
		if bf.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// firstSegmentKey extracts the key this filter is built over: the first
// path segment, lowercased so it lines up with how literal segments are
// matched everywhere else in this module.
func firstSegmentKey(path string) []byte {
	s := path
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			s = s[:i]
			break
		}
	}
	return []byte(toLowerASCII(s))
}

func toLowerASCII(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
