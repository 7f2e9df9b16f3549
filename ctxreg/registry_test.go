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

package ctxreg_test

import (
	"testing"

	"github.com/nabbar/proxycore/ctxreg"
	"github.com/stretchr/testify/require"
)

func TestRegistrySetGetDelete(t *testing.T) {
	r := ctxreg.New[int]()
	r.Set("a", 1)

	v, ok := r.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	r.Delete("a")
	_, ok = r.Get("a")
	require.False(t, ok)
}

func TestRegistrySwapIsAtomicView(t *testing.T) {
	r := ctxreg.New[string]()
	r.Set("x", "old")

	snap := r.Snapshot()
	r.Swap(map[string]string{"x": "new"})

	require.Equal(t, "old", snap["x"])

	v, _ := r.Get("x")
	require.Equal(t, "new", v)
}

func TestRegistryNames(t *testing.T) {
	r := ctxreg.New[int]()
	r.Set("a", 1)
	r.Set("b", 2)

	names := r.Names()
	require.Len(t, names, 2)
	require.Contains(t, names, "a")
	require.Contains(t, names, "b")
}
