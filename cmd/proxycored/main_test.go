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

package main

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/nabbar/proxycore/config"
	"github.com/nabbar/proxycore/logger"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsUsageErrorWithoutConfigFlag(t *testing.T) {
	require.Equal(t, exitUsageError, run(nil))
}

func TestRunReturnsConfigErrorForMissingFile(t *testing.T) {
	code := run([]string{"--config", filepath.Join(t.TempDir(), "does-not-exist.yaml")})
	require.Equal(t, exitConfigError, code)
}

func TestRunPrintsVersionAndSucceeds(t *testing.T) {
	require.Equal(t, exitSuccess, run([]string{"--version"}))
}

func TestControlChannelReportsStatus(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "proxycore.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
escapers:
  - name: direct-out
    kind: direct
servers:
  - name: front
    listen: 0.0.0.0:3128
    protocol: http1
    escaper: direct-out
`), 0o600))

	store, err := config.NewStore(cfgPath)
	require.NoError(t, err)

	sockPath := filepath.Join(dir, "ctl.sock")
	ctl, err := newControlChannel(sockPath, store, logger.New())
	require.NoError(t, err)
	defer ctl.Close()
	go ctl.serve()

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("status\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, "servers=1")
	require.Contains(t, line, "escapers=1")
}
