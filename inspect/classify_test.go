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

package inspect_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/nabbar/proxycore/inspect"
	"github.com/stretchr/testify/require"
)

func TestClassifyRecognizesHTTP1(t *testing.T) {
	r := bytes.NewReader([]byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	d, err := inspect.Classify(context.Background(), r, []inspect.Protocol{inspect.ProtocolTLSClientHello, inspect.ProtocolHTTP1}, 4096)
	require.NoError(t, err)
	require.Equal(t, inspect.ProtocolHTTP1, d.Protocol)
}

func TestClassifyRecognizesTLSClientHello(t *testing.T) {
	record := []byte{0x16, 0x03, 0x01, 0x02, 0x00}
	r := bytes.NewReader(append(record, make([]byte, 512)...))
	d, err := inspect.Classify(context.Background(), r, []inspect.Protocol{inspect.ProtocolTLSClientHello}, 4096)
	require.NoError(t, err)
	require.Equal(t, inspect.ProtocolTLSClientHello, d.Protocol)
}

func TestClassifyRecognizesHTTP2PriorKnowledge(t *testing.T) {
	r := bytes.NewReader([]byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\nrest-of-frame"))
	d, err := inspect.Classify(context.Background(), r, []inspect.Protocol{inspect.ProtocolHTTP2PriorKnowledge}, 4096)
	require.NoError(t, err)
	require.Equal(t, inspect.ProtocolHTTP2PriorKnowledge, d.Protocol)
}

func TestClassifyReturnsErrorWhenCapExceededWithoutMatch(t *testing.T) {
	r := bytes.NewReader(bytes.Repeat([]byte("x"), 1024))
	_, err := inspect.Classify(context.Background(), r, []inspect.Protocol{inspect.ProtocolTLSClientHello}, 16)
	require.Error(t, err)
}

func TestPortmapFallsBackToDefaultOrder(t *testing.T) {
	m := inspect.NewPortmap()
	c := m.CandidatesFor(8443)
	require.NotEmpty(t, c)
	require.Equal(t, inspect.ProtocolTLSClientHello, c[0])
}

func TestPortmapExplicitOverrideWins(t *testing.T) {
	m := inspect.NewPortmap()
	m.SetPort(25, []inspect.Protocol{inspect.ProtocolSMTPBanner})
	c := m.CandidatesFor(25)
	require.Equal(t, []inspect.Protocol{inspect.ProtocolSMTPBanner}, c)
}
