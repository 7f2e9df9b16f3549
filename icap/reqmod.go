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
	"bytes"
	"context"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/nabbar/proxycore/errs"
)

// REQMOD sends req to the configured ICAP service and returns whatever the
// service decided the request should become: the original req unchanged
// (204 or a transport failure under Bypass), or a new *http.Request built
// from the service's adapted header and body. The returned request's Body,
// if non-nil, owns the underlying ICAP connection until it is closed or
// fully drained -- the caller must read it to completion (or close it)
// exactly as it would req.Body.
//
// A REQMOD response that encapsulates res-hdr/res-body instead of
// req-hdr/req-body -- a service short-circuiting the request with a
// response of its own rather than forwarding an adapted request -- is not
// supported and surfaces as ErrServiceErrorResponse.
func (c *Client) REQMOD(ctx context.Context, req *http.Request) (*http.Request, error) {
	parts := []part{{name: "req-hdr", data: serializeRequestHeader(req)}}

	var body io.Reader
	if req.Body != nil && req.Body != http.NoBody {
		body = req.Body
	}

	result, pc, err := c.runExchange(ctx, "REQMOD", parts, body)
	if err != nil {
		if c.cfg.Bypass && bypassable(err) {
			return req, nil
		}
		return nil, err
	}

	if result.passthrough {
		return req, nil
	}

	if _, ok := result.resp.part("res-hdr"); ok {
		if pc != nil {
			_ = pc.Close()
		}
		return nil, ErrServiceErrorResponse.Error()
	}

	adapted, err := parseAdaptedRequest(result.adaptedHdr, result.adaptedBody, req)
	if err != nil {
		if pc != nil {
			_ = pc.Close()
		}
		return nil, err
	}

	attachFinisher(c, pc, &adapted.Body)
	return adapted, nil
}

// parseAdaptedRequest rebuilds a request from an ICAP-adapted req-hdr
// block. A nil hdrBytes means the service declared no req-hdr part at
// all (body-only adaptation), so orig's method/URL/headers are kept and
// only the body is swapped in.
func parseAdaptedRequest(hdrBytes []byte, body io.ReadCloser, orig *http.Request) (*http.Request, error) {
	req := orig.Clone(orig.Context())

	if hdrBytes != nil {
		tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(hdrBytes)))

		line, err := tp.ReadLine()
		if err != nil {
			return nil, ErrResponseParseFailed.Error(err)
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 {
			return nil, ErrInvalidResponse.Error()
		}

		hdr, err := tp.ReadMIMEHeader()
		if err != nil && len(hdr) == 0 {
			return nil, ErrResponseParseFailed.Error(err)
		}

		u, uerr := url.ParseRequestURI(fields[1])
		if uerr != nil {
			u = orig.URL
		}

		req.Method = fields[0]
		req.URL = u
		req.Header = http.Header(hdr)
	}

	if body != nil {
		req.Body = body
		req.ContentLength = -1
	} else {
		req.Body = http.NoBody
		req.ContentLength = 0
	}
	return req, nil
}

// bypassable reports whether err represents a transport-level failure
// (connect refused, malformed response, idle timeout, unsupported 206)
// rather than the service's own considered verdict -- only the former is
// eligible for Config.Bypass.
func bypassable(err error) bool {
	ce, ok := err.(errs.Error)
	if !ok {
		return true
	}
	return !ce.HasCode(ErrServiceErrorResponse)
}
