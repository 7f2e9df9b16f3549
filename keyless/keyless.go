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

// Package keyless implements a multiplexed request/response transport: one
// TCP connection carries many concurrent requests identified by a 32-bit
// id, with a writer/reader/housekeeper triad cooperating over a shared
// queue and response table the way a remote signing backend's wire client
// would. It does not interpret the payload itself -- Codec supplies the
// wire encoding (e.g. Cloudflare-style keyless protocol, or any other
// length-prefixed request/response framing a signing or crypto-offload
// backend speaks).
package keyless

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Request is one payload awaiting a matching Response. Codec assigns no
// meaning to Payload; it is opaque bytes the caller and the remote service
// agree on.
type Request struct {
	ID      uint32
	Payload []byte
}

// Response is the decoded counterpart to a Request, matched by ID.
type Response struct {
	ID      uint32
	Payload []byte
}

// Codec serializes a Request onto the wire and deserializes the next
// Response from it. Decode is called in a loop by the transport's reader
// task; it must block until a full response is available or the
// connection fails.
type Codec interface {
	Encode(conn net.Conn, req Request) error
	Decode(conn net.Conn) (Response, error)
}

// pendingRequest is one request's bookkeeping, shared between the caller
// that enqueued it, the writer that sends it, the reader that resolves
// it, and the housekeeper that may time it out. createdAt is set only once
// the writer registers the entry in the response table -- per the
// uniqueness invariant, an id present in the queue but not yet written is
// not yet present in the table.
type pendingRequest struct {
	id        uint32
	payload   []byte
	result    chan Result
	createdAt time.Time
}

// Result is what SendRequest ultimately observes: either a decoded
// Response or the reason none arrived (transport failure, timeout).
type Result struct {
	Response Response
	Err      error
}

// MultiplexTransfer is one upstream connection's shared multiplexing
// state: a monotonic id allocator, a bounded queue of not-yet-sent
// requests, a response table keyed by request id, and a single error slot
// every cooperating task consults before touching the connection again.
type MultiplexTransfer struct {
	conn  net.Conn
	codec Codec

	queue      chan *pendingRequest
	nextID     atomic.Uint32
	reqTimeout time.Duration

	mu    sync.Mutex
	table map[uint32]*pendingRequest

	errOnce sync.Once
	err     error
	failed  chan struct{}

	closeOnce sync.Once
	closing   chan struct{}
	closed    atomic.Bool

	wg sync.WaitGroup
}

// Config configures a MultiplexTransfer.
type Config struct {
	// Codec encodes/decodes the wire messages. Required.
	Codec Codec
	// QueueSize bounds how many requests may be waiting to be written
	// before SendRequest blocks. Zero defaults to 256.
	QueueSize int
	// RequestTimeout bounds how long a request may sit in the response
	// table awaiting a decoded answer; the housekeeper wakes it with
	// ErrRequestTimeout past this bound. Zero defaults to 2s.
	RequestTimeout time.Duration
}

// NewMultiplexTransfer starts the writer/reader/housekeeper triad over
// conn and returns once they are running. ctx bounds the triad's own
// lifetime: canceling it is equivalent to calling Close, except it does
// not wait out the drain grace period.
func NewMultiplexTransfer(ctx context.Context, conn net.Conn, cfg Config) *MultiplexTransfer {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	reqTimeout := cfg.RequestTimeout
	if reqTimeout <= 0 {
		reqTimeout = 2 * time.Second
	}

	t := &MultiplexTransfer{
		conn:       conn,
		codec:      cfg.Codec,
		queue:      make(chan *pendingRequest, queueSize),
		table:      make(map[uint32]*pendingRequest),
		reqTimeout: reqTimeout,
		failed:     make(chan struct{}),
		closing:    make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return t.writeLoop(gctx) })
	g.Go(func() error { return t.readLoop() })
	g.Go(func() error { return t.houseKeep(gctx) })
	g.Go(func() error {
		// closing conn unblocks readLoop once ctx is canceled or a task fails
		<-gctx.Done()
		_ = t.conn.Close()
		return nil
	})

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := g.Wait(); err != nil {
			t.fail(err)
		}
	}()

	return t
}

// SendRequest enqueues payload under a freshly allocated id and blocks
// until a matching Response is decoded, the request ages out past
// RequestTimeout, the transport fails, or ctx is done.
func (t *MultiplexTransfer) SendRequest(ctx context.Context, payload []byte) (Response, error) {
	if t.closed.Load() {
		return Response{}, ErrQueueClosed.Error(nil)
	}

	pr := &pendingRequest{
		id:      t.nextID.Add(1),
		payload: payload,
		result:  make(chan Result, 1),
	}

	select {
	case t.queue <- pr:
	case <-t.closing:
		return Response{}, ErrQueueClosed.Error(nil)
	case <-t.failed:
		return Response{}, t.failure()
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case r := <-pr.result:
		return r.Response, r.Err
	case <-t.failed:
		return Response{}, t.failure()
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Close stops new requests from being enqueued, then waits up to
// RequestTimeout for every request already written to drain before
// shutting the connection down, mirroring how the writer's own
// queue-closed branch behaves.
func (t *MultiplexTransfer) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		close(t.closing)
	})
	t.wg.Wait()
	return nil
}

// writeLoop drains one request at a time, registers it in the response
// table under the caller's id, and serializes it onto the connection.
// Once closing fires it stops accepting new submissions (SendRequest
// rejects them directly) but still flushes whatever is already buffered
// in the queue before handing off to drainOnClose; on a write error it
// fails the transport and returns.
func (t *MultiplexTransfer) writeLoop(ctx context.Context) error {
	for {
		select {
		case pr := <-t.queue:
			if err := t.sendOne(pr); err != nil {
				return err
			}
		case <-t.closing:
			return t.flushQueueAndClose()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *MultiplexTransfer) sendOne(pr *pendingRequest) error {
	t.register(pr)
	if err := t.codec.Encode(t.conn, Request{ID: pr.id, Payload: pr.payload}); err != nil {
		return ErrWriteFailed.Error(err)
	}
	return nil
}

// flushQueueAndClose writes out whatever was already buffered in the
// queue at the moment Close was called, then proceeds to the drain wait.
func (t *MultiplexTransfer) flushQueueAndClose() error {
	for {
		select {
		case pr := <-t.queue:
			if err := t.sendOne(pr); err != nil {
				return err
			}
		default:
			return t.drainOnClose()
		}
	}
}

// register places pr in the response table with its creation time, the
// point at which the uniqueness invariant begins to apply to its id.
func (t *MultiplexTransfer) register(pr *pendingRequest) {
	pr.createdAt = time.Now()
	t.mu.Lock()
	t.table[pr.id] = pr
	t.mu.Unlock()
}

// drainOnClose waits up to reqTimeout for every registered request to
// resolve, then half-closes the write side (or closes the connection
// outright if it does not support CloseWrite).
func (t *MultiplexTransfer) drainOnClose() error {
	deadline := time.NewTimer(t.reqTimeout)
	defer deadline.Stop()

	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		if t.tableLen() == 0 {
			break
		}
		select {
		case <-tick.C:
		case <-deadline.C:
			goto shutdown
		}
	}

shutdown:
	if cw, ok := t.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return t.conn.Close()
}

func (t *MultiplexTransfer) tableLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.table)
}

// readLoop decodes one response at a time and wakes whichever caller is
// waiting on its id. A response whose id is not in the table (already
// timed out, or a protocol violation) is silently dropped. On decode
// error it fails the transport and returns.
func (t *MultiplexTransfer) readLoop() error {
	for {
		resp, err := t.codec.Decode(t.conn)
		if err != nil {
			return ErrDecodeFailed.Error(err)
		}
		t.deliver(resp.ID, Result{Response: resp})
	}
}

// houseKeep sweeps the response table every reqTimeout, waking any entry
// older than that bound with ErrRequestTimeout so its caller stops
// waiting even if the reader never sees a matching id.
func (t *MultiplexTransfer) houseKeep(ctx context.Context) error {
	ticker := time.NewTicker(t.reqTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-ctx.Done():
			return nil
		case <-t.failed:
			return nil
		}
	}
}

func (t *MultiplexTransfer) sweep() {
	cutoff := time.Now().Add(-t.reqTimeout)

	t.mu.Lock()
	var expired []*pendingRequest
	for id, pr := range t.table {
		if pr.createdAt.Before(cutoff) {
			expired = append(expired, pr)
			delete(t.table, id)
		}
	}
	t.mu.Unlock()

	for _, pr := range expired {
		pr.result <- Result{Err: ErrRequestTimeout.Error(nil)}
	}
}

// deliver resolves id's pendingRequest, if still registered, with r.
func (t *MultiplexTransfer) deliver(id uint32, r Result) {
	t.mu.Lock()
	pr, ok := t.table[id]
	if ok {
		delete(t.table, id)
	}
	t.mu.Unlock()

	if ok {
		pr.result <- r
	}
}

// fail is the single error slot: the first failure wins, wakes every
// pending caller (queued or registered) with it, and marks the transport
// closed so SendRequest rejects further submissions immediately.
func (t *MultiplexTransfer) fail(err error) {
	t.errOnce.Do(func() {
		t.err = ErrTransportClosed.Error(err)
		t.closed.Store(true)
		close(t.failed)
	})

	t.mu.Lock()
	expired := make([]*pendingRequest, 0, len(t.table))
	for id, pr := range t.table {
		expired = append(expired, pr)
		delete(t.table, id)
	}
	t.mu.Unlock()

	for _, pr := range expired {
		pr.result <- Result{Err: t.err}
	}

	for {
		select {
		case pr := <-t.queue:
			pr.result <- Result{Err: t.err}
		default:
			return
		}
	}
}

func (t *MultiplexTransfer) failure() error {
	if t.err != nil {
		return t.err
	}
	return ErrTransportClosed.Error(nil)
}
