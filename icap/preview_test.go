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

package icap

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadPreviewShorterThanBodyNotEOF(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("hello world, more data follows"))

	data, eof, err := readPreview(br, 11)
	require.NoError(t, err)
	require.False(t, eof)
	require.Equal(t, "hello world", string(data))
}

func TestReadPreviewBodyExactlyFitsPreviewSize(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("exact"))

	data, eof, err := readPreview(br, 5)
	require.NoError(t, err)
	require.True(t, eof)
	require.Equal(t, "exact", string(data))
}

func TestReadPreviewBodyShorterThanPreviewSize(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("tiny"))

	data, eof, err := readPreview(br, 64)
	require.NoError(t, err)
	require.True(t, eof)
	require.Equal(t, "tiny", string(data))
}
