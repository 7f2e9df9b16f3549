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
	"context"
	"net"
)

// pooledConn is one persistent ICAP connection. readerDone/writerDone
// track each half of the OPTIONS/REQMOD/RESPMOD exchange independently,
// mirroring how the wire protocol itself closes each direction: a
// connection only re-enters the free list once both halves finished
// cleanly and the ICAP service announced Connection: keep-alive.
type pooledConn struct {
	net.Conn
	br         *bufio.Reader
	readerDone bool
	writerDone bool
	keepAlive  bool
}

func (c *pooledConn) reusable() bool {
	return c.readerDone && c.writerDone && c.keepAlive
}

// dialFunc opens one fresh transport connection to the ICAP service.
type dialFunc func(ctx context.Context) (net.Conn, error)

// pool is a small free-list of pooledConns, guarded by a buffered channel
// used as both the free list and its own mutex -- the same
// channel-as-semaphore shape used by stat.ServerStats for its error-count
// map, sized here to double as the list itself rather than guarding a
// separate slice.
type pool struct {
	dial dialFunc
	free chan *pooledConn
}

func newPool(dial dialFunc, size int) *pool {
	if size <= 0 {
		size = 1
	}
	return &pool{dial: dial, free: make(chan *pooledConn, size)}
}

// get returns a pooled connection if one is idle, otherwise dials a new
// one.
func (p *pool) get(ctx context.Context) (*pooledConn, error) {
	select {
	case c := <-p.free:
		return c, nil
	default:
	}

	conn, err := p.dial(ctx)
	if err != nil {
		return nil, ErrConnectFailed.Error(err)
	}
	return &pooledConn{Conn: conn, br: bufio.NewReader(conn)}, nil
}

// put returns c to the free list when it finished cleanly and the
// service allows reuse; otherwise it is closed outright. A full free list
// also closes c rather than blocking.
func (p *pool) put(c *pooledConn) {
	if !c.reusable() {
		_ = c.Close()
		return
	}

	select {
	case p.free <- c:
	default:
		_ = c.Close()
	}
}

// closeAll drains and closes every idle connection, used when a Client is
// torn down.
func (p *pool) closeAll() {
	for {
		select {
		case c := <-p.free:
			_ = c.Close()
		default:
			return
		}
	}
}
