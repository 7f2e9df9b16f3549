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
	"testing"
	"time"

	"github.com/nabbar/proxycore/ioext"
	"github.com/stretchr/testify/require"
)

func TestDatagramLimiterScenario6(t *testing.T) {
	lim := ioext.NewDatagramLimiter(10, 1)

	sent := 0
	blocked := 0
	for i := 0; i < 20; i++ {
		action, _ := lim.TrySend()
		if action == ioext.ActionSend {
			sent++
		} else {
			blocked++
		}
	}

	require.Equal(t, 11, sent) // 10 steady-state + 1 burst in the first window
	require.Equal(t, 9, blocked)
}

func TestDatagramLimiterWindowReplenishes(t *testing.T) {
	lim := ioext.NewDatagramLimiter(10, 0)

	total := 0
	deadline := time.Now().Add(1100 * time.Millisecond)
	for time.Now().Before(deadline) {
		action, until := lim.TrySend()
		if action == ioext.ActionSend {
			total++
		} else if !until.IsZero() {
			time.Sleep(time.Until(until))
		}
	}

	require.GreaterOrEqual(t, total, 10)
}
