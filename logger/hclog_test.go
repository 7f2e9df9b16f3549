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

package logger_test

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/nabbar/proxycore/logger"
	"github.com/stretchr/testify/require"
)

func TestHCLogAdapterSatisfiesHCLogLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.New()
	base.SetOutput(&buf)

	var sink hclog.Logger = logger.NewHCLogAdapter(base)
	sink.Info("plugin handshake complete", "plugin", "cert-agent")
	sink.Warn("retrying after transient failure", "attempt", 2)

	require.Contains(t, buf.String(), "plugin handshake complete")
	require.Contains(t, buf.String(), "retrying after transient failure")
}

func TestHCLogAdapterNamedAccumulatesImpliedArgs(t *testing.T) {
	var buf bytes.Buffer
	base := logger.New()
	base.SetOutput(&buf)

	root := logger.NewHCLogAdapter(base)
	child := root.Named("escaper-plugin").With("tenant", "acme")
	child.Error("upstream dial failed", "error", "connection refused")

	require.Equal(t, "escaper-plugin", child.Name())
	require.Contains(t, buf.String(), "upstream dial failed")
	require.Contains(t, buf.String(), "acme")
}
