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

func TestParseEncapsulated(t *testing.T) {
	parts, err := parseEncapsulated("req-hdr=0, req-body=296")
	require.NoError(t, err)
	require.Equal(t, []encapsulatedPart{
		{Name: "req-hdr", Offset: 0},
		{Name: "req-body", Offset: 296},
	}, parts)
}

func TestParseEncapsulatedNullBody(t *testing.T) {
	parts, err := parseEncapsulated("req-hdr=0, null-body=231")
	require.NoError(t, err)
	require.Equal(t, "null-body", parts[1].Name)
	require.Equal(t, 231, parts[1].Offset)
}

func TestParseEncapsulatedEmpty(t *testing.T) {
	parts, err := parseEncapsulated("")
	require.NoError(t, err)
	require.Nil(t, parts)
}

func TestParseEncapsulatedMalformed(t *testing.T) {
	_, err := parseEncapsulated("req-hdr")
	require.Error(t, err)
}

func TestReadResponseStatusAndHeaders(t *testing.T) {
	raw := "ICAP/1.0 200 OK\r\n" +
		"Encapsulated: res-hdr=0, res-body=137\r\n" +
		"Connection: keep-alive\r\n" +
		"\r\n"
	br := bufio.NewReader(strings.NewReader(raw))

	resp, err := readResponse(br)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "OK", resp.Reason)
	require.Equal(t, "keep-alive", resp.Header.Get("Connection"))

	p, ok := resp.part("res-body")
	require.True(t, ok)
	require.Equal(t, 137, p.Offset)
	require.True(t, resp.hasBody())
}

func TestReadResponse204HasNoBody(t *testing.T) {
	raw := "ICAP/1.0 204 No Content\r\n" +
		"Connection: close\r\n" +
		"\r\n"
	br := bufio.NewReader(strings.NewReader(raw))

	resp, err := readResponse(br)
	require.NoError(t, err)
	require.Equal(t, 204, resp.StatusCode)
	require.False(t, resp.hasBody())
}
