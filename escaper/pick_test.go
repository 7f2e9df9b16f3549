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

package escaper_test

import (
	"testing"

	"github.com/nabbar/proxycore/escaper"
	"github.com/stretchr/testify/require"
)

func TestPickerRoundRobinNeverStarvesNonzeroWeight(t *testing.T) {
	p := escaper.NewPicker(escaper.PickRoundRobin, []escaper.Weighted{
		{Name: "a", Weight: 1},
		{Name: "b", Weight: 1},
		{Name: "c", Weight: 0},
	})

	seen := map[string]int{}
	for i := 0; i < 10; i++ {
		name, ok := p.Pick("irrelevant")
		require.True(t, ok)
		seen[name]++
	}

	require.Greater(t, seen["a"], 0)
	require.Greater(t, seen["b"], 0)
	require.Zero(t, seen["c"])
}

func TestPickerRendezvousIsDeterministic(t *testing.T) {
	candidates := []escaper.Weighted{
		{Name: "x", Weight: 1},
		{Name: "y", Weight: 1},
		{Name: "z", Weight: 1},
	}

	p1 := escaper.NewPicker(escaper.PickRendezvous, candidates)
	p2 := escaper.NewPicker(escaper.PickRendezvous, candidates)

	for _, key := range []string{"alpha", "beta", "gamma.example.com"} {
		n1, ok1 := p1.Pick(key)
		n2, ok2 := p2.Pick(key)
		require.True(t, ok1)
		require.True(t, ok2)
		require.Equal(t, n1, n2)
	}
}

func TestPickerJumpHashIsDeterministic(t *testing.T) {
	candidates := []escaper.Weighted{
		{Name: "n1", Weight: 1},
		{Name: "n2", Weight: 1},
	}

	p := escaper.NewPicker(escaper.PickJumpHash, candidates)

	first, ok := p.Pick("stable-key")
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, ok := p.Pick("stable-key")
		require.True(t, ok)
		require.Equal(t, first, again)
	}
}

func TestPickerEmptyCandidatesReturnsFalse(t *testing.T) {
	p := escaper.NewPicker(escaper.PickRandom, nil)
	_, ok := p.Pick("anything")
	require.False(t, ok)
}
