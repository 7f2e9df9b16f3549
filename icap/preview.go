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
	"io"
)

// readPreview reads up to n bytes from body for the preview negotiation
// (RFC 3507 §4.5). It also reports whether the body is now fully
// exhausted, which matters even when exactly n bytes were available: a
// body whose length happens to equal the preview size still needs its
// "ieof" marker set on the final preview chunk, so one extra byte is
// peeked (not consumed) past the n already read.
func readPreview(body *bufio.Reader, n int) (data []byte, eof bool, err error) {
	buf := make([]byte, n)
	read, rerr := io.ReadFull(body, buf)
	if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
		return nil, false, ErrPreviewReadFailed.Error(rerr)
	}
	if rerr == io.ErrUnexpectedEOF || rerr == io.EOF {
		return buf[:read], true, nil
	}

	if _, perr := body.Peek(1); perr == io.EOF {
		return buf[:read], true, nil
	}
	return buf[:read], false, nil
}
