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

// Package ftpconnect provides the escaper-routed counterpart to an FTP
// control connection: rather than letting jlaffaye/ftp open its own TCP
// socket, it supplies the connection via an escaper so routing, TLS
// interception and audit policy apply to FTP control traffic exactly as
// they do to every other protocol this core forwards.
package ftpconnect

import (
	"context"

	"github.com/jlaffaye/ftp"
	"github.com/nabbar/proxycore/audit"
	"github.com/nabbar/proxycore/escaper"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/stat"
)

// Context is a per-task object analogous to escaper.ForwardContext but
// for FTP: it pins the escaper and audit.Context a caller is forwarding
// under so every control connection it opens is routed, intercepted and
// audited consistently across a client session's command sequence.
type Context struct {
	esc escaper.Escaper
	ac  *audit.Context
	st  *stat.EscaperStats
}

// New builds a Context for a single client's FTP session. The escaper
// itself is the same object tcp_setup_connection would resolve for any
// other protocol -- there is no FTP-specific escaper variant.
func New(esc escaper.Escaper, st *stat.EscaperStats, ac *audit.Context) *Context {
	return &Context{esc: esc, ac: ac, st: st}
}

// Dial opens an FTP control connection to target through the Context's
// escaper and performs USER/PASS login (anonymous login if user is
// empty), returning a ready *ftp.ServerConn.
func (c *Context) Dial(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, user, pass string) (*ftp.ServerConn, error) {
	raw, err := c.esc.TCPSetupConnection(ctx, target, notes, c.st, c.ac)
	if err != nil {
		return nil, ErrDialFailed.Error(err)
	}

	conn, err := ftp.Dial(target.String(), ftp.DialWithNetConn(raw), ftp.DialWithContext(ctx))
	if err != nil {
		_ = raw.Close()
		return nil, ErrDialFailed.Error(err)
	}

	if user == "" {
		user, pass = "anonymous", "anonymous@"
	}
	if err = conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, ErrLoginFailed.Error(err)
	}
	return conn, nil
}
