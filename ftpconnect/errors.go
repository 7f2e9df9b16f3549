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

package ftpconnect

import "github.com/nabbar/proxycore/errs"

const (
	ErrDialFailed errs.CodeError = errs.MinFTPConnect + iota
	ErrLoginFailed
	ErrControlClosed
)

var messages = map[errs.CodeError]string{
	ErrDialFailed:    "failed to establish the escaper-routed FTP control connection",
	ErrLoginFailed:   "FTP login (USER/PASS) was rejected by the server",
	ErrControlClosed: "the FTP control connection was closed before the command completed",
}

var briefs = map[errs.CodeError]string{
	ErrDialFailed:    "ftpconnect.dial_failed",
	ErrLoginFailed:   "ftpconnect.login_failed",
	ErrControlClosed: "ftpconnect.control_closed",
}

func init() {
	errs.RegisterTaxonomy(errs.MinFTPConnect,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
