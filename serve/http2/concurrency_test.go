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

package http2_test

import (
	"testing"

	"github.com/nabbar/proxycore/serve/http2"
	"github.com/stretchr/testify/require"
)

func TestH2ConcurrencyStatsTracksPeak(t *testing.T) {
	s := http2.NewH2ConcurrencyStats()

	relA := s.MarkStream()
	relB := s.MarkStream()
	require.EqualValues(t, 2, s.ActiveStreams())
	require.EqualValues(t, 2, s.PeakStreams())

	relA()
	require.EqualValues(t, 1, s.ActiveStreams())
	require.EqualValues(t, 2, s.PeakStreams())

	relB()
	require.EqualValues(t, 0, s.ActiveStreams())
	require.EqualValues(t, 2, s.PeakStreams())
}

func TestH2ConcurrencyStatsTracksPushesSeparately(t *testing.T) {
	s := http2.NewH2ConcurrencyStats()

	relStream := s.MarkStream()
	relPush := s.MarkPush()

	require.EqualValues(t, 1, s.ActiveStreams())
	require.EqualValues(t, 1, s.ActivePushes())

	relStream()
	relPush()

	require.EqualValues(t, 0, s.ActiveStreams())
	require.EqualValues(t, 0, s.ActivePushes())
}
