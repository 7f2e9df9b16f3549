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
	"net"
	"testing"
	"time"

	"github.com/nabbar/proxycore/ioext"
	"github.com/stretchr/testify/require"
)

func TestLimitedUDPConnSendsWithinBudget(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer server.Close()

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer client.Close()

	limiter := ioext.NewDatagramLimiter(100, 0)
	limited := ioext.NewLimitedUDPConn(client, limiter)

	n, err := limited.WriteTo([]byte("ping"), server.LocalAddr())
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestLimitedUDPConnBlocksPastBudget(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer server.Close()

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer client.Close()

	limiter := ioext.NewDatagramLimiter(1, 0)
	limited := ioext.NewLimitedUDPConn(client, limiter)

	start := time.Now()
	_, err = limited.WriteTo([]byte("a"), server.LocalAddr())
	require.NoError(t, err)
	_, err = limited.WriteTo([]byte("b"), server.LocalAddr())
	require.NoError(t, err)
	require.True(t, time.Since(start) > 0)
}
