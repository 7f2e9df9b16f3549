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

package ioext_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nabbar/proxycore/ioext"
	"github.com/stretchr/testify/require"
)

func TestStreamCopyConservation(t *testing.T) {
	src := strings.Repeat("hello world ", 10000)
	r := strings.NewReader(src)
	w := &bytes.Buffer{}

	sc := ioext.New(r, w, ioext.WithBufferSize(8192), ioext.WithYieldSize(256*1024))
	require.NoError(t, sc.Run(context.Background()))

	require.True(t, sc.Finished())
	require.Equal(t, sc.ReadSize(), sc.CopiedSize())
	require.Equal(t, src, w.String())
}

func TestStreamCopyIsIdleAndReset(t *testing.T) {
	r := strings.NewReader("x")
	w := &bytes.Buffer{}
	sc := ioext.New(r, w)

	// a zero threshold has always elapsed, so IsIdle(0) holds even when fresh
	require.True(t, sc.IsIdle(0))
	sc.ResetActive()
	require.False(t, sc.IsIdle(time.Second))
}
