/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package escaper

import (
	"hash/fnv"
	"math/rand"
	"sort"
	"sync"
)

// PickPolicy selects one Weighted node from a candidate vector by a
// configured pick policy. Rendezvous/jump-hash are stable across reloads
// for an unchanged candidate set; random/round-robin carry state and never
// starve a nonzero-weight entry.
type PickPolicy int

const (
	PickRandom PickPolicy = iota
	PickRoundRobin
	PickRendezvous
	PickJumpHash
)

// Weighted pairs a node name with a selection weight.
type Weighted struct {
	Name   string
	Weight uint32
}

// Picker selects among a fixed candidate set using one PickPolicy.
type Picker struct {
	policy     PickPolicy
	candidates []Weighted
	totalW     uint64

	rrMu  sync.Mutex
	rrPos int
}

// NewPicker builds a Picker over candidates using policy. Candidates with
// zero weight are kept (so CheckAcyclic/DependsOn still sees them) but
// never selected by weight-based policies.
func NewPicker(policy PickPolicy, candidates []Weighted) *Picker {
	p := &Picker{policy: policy, candidates: append([]Weighted(nil), candidates...)}
	for _, c := range p.candidates {
		p.totalW += uint64(c.Weight)
	}
	return p
}

// Names returns every candidate's name, used for DependsOn.
func (p *Picker) Names() []string {
	out := make([]string, 0, len(p.candidates))
	for _, c := range p.candidates {
		out = append(out, c.Name)
	}
	return out
}

// Pick selects a candidate name. key is used by PickRendezvous/PickJumpHash
// (typically the target host); it is ignored by PickRandom/PickRoundRobin.
func (p *Picker) Pick(key string) (string, bool) {
	if len(p.candidates) == 0 {
		return "", false
	}

	switch p.policy {
	case PickRoundRobin:
		return p.pickRoundRobin()
	case PickRendezvous:
		return p.pickRendezvous(key)
	case PickJumpHash:
		return p.pickJumpHash(key)
	default:
		return p.pickRandom()
	}
}

func (p *Picker) pickRandom() (string, bool) {
	if p.totalW == 0 {
		return p.candidates[rand.Intn(len(p.candidates))].Name, true
	}
	target := uint64(rand.Int63n(int64(p.totalW)))
	var acc uint64
	for _, c := range p.candidates {
		acc += uint64(c.Weight)
		if target < acc {
			return c.Name, true
		}
	}
	return p.candidates[len(p.candidates)-1].Name, true
}

// pickRoundRobin walks the candidate list in order, skipping zero-weight
// entries, guaranteeing every nonzero-weight entry is eventually visited.
func (p *Picker) pickRoundRobin() (string, bool) {
	p.rrMu.Lock()
	defer p.rrMu.Unlock()

	n := len(p.candidates)
	for i := 0; i < n; i++ {
		idx := (p.rrPos + i) % n
		if p.candidates[idx].Weight > 0 || p.totalW == 0 {
			p.rrPos = (idx + 1) % n
			return p.candidates[idx].Name, true
		}
	}
	return p.candidates[p.rrPos%n].Name, true
}

// pickRendezvous (HRW hashing) is deterministic for a fixed candidate set:
// the same key always maps to the same winner regardless of map/slice
// iteration order, and adding/removing one candidate only reshuffles keys
// that previously hashed to it.
func (p *Picker) pickRendezvous(key string) (string, bool) {
	var best string
	var bestScore uint64
	first := true

	for _, c := range p.candidates {
		if c.Weight == 0 && p.totalW != 0 {
			continue
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(key))
		_, _ = h.Write([]byte(c.Name))
		score := h.Sum64() * uint64(c.Weight+1)
		if first || score > bestScore {
			best = c.Name
			bestScore = score
			first = false
		}
	}
	return best, !first
}

// pickJumpHash uses Google's jump consistent hash over the (sorted, for
// determinism) candidate list, ignoring weight (jump hash is inherently
// uniform over buckets).
func (p *Picker) pickJumpHash(key string) (string, bool) {
	names := make([]string, len(p.candidates))
	for i, c := range p.candidates {
		names[i] = c.Name
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "", false
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	idx := jumpHash(h.Sum64(), int32(len(names)))
	return names[idx], true
}

func jumpHash(key uint64, numBuckets int32) int32 {
	var b, j int64 = -1, 0
	for j < int64(numBuckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}
	return int32(b)
}
