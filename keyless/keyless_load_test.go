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

package keyless_test

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/proxycore/keyless"
)

// This suite exercises the "1000 concurrent send_request calls on one
// MultiplexTransfer" end-to-end scenario: many interacting goroutines
// (caller, writer, reader, housekeeper) racing over the shared queue and
// response table, which is exactly the kind of multi-state interaction
// this codebase reaches for Ginkgo/Gomega over a flat testify table for.
var _ = Describe("MultiplexTransfer under concurrent load", func() {
	var (
		client, server net.Conn
		tr             *keyless.MultiplexTransfer
	)

	BeforeEach(func() {
		client, server = net.Pipe()
		go echoServer(server, 100*time.Millisecond)
		tr = keyless.NewMultiplexTransfer(context.Background(), client, keyless.Config{
			Codec:          lengthPrefixCodec{},
			QueueSize:      2048,
			RequestTimeout: 2 * time.Second,
		})
	})

	AfterEach(func() {
		Expect(client.Close()).To(Or(Succeed(), MatchError(net.ErrClosed)))
		Expect(server.Close()).To(Or(Succeed(), MatchError(net.ErrClosed)))
	})

	It("delivers every response to its own originating caller with no id collision", func() {
		const n = 1000

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			responses = make(map[string]struct{}, n)
			errs      = make([]error, n)
			elapsed   = make([]time.Duration, n)
		)

		start := time.Now()
		for i := 0; i < n; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 2100*time.Millisecond)
				defer cancel()

				payload := fmt.Sprintf("req-%d", i)
				callStart := time.Now()
				resp, err := tr.SendRequest(ctx, []byte(payload))
				elapsed[i] = time.Since(callStart)
				errs[i] = err

				if err == nil {
					mu.Lock()
					responses[string(resp.Payload)] = struct{}{}
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		for i, err := range errs {
			Expect(err).ToNot(HaveOccurred(), "request %d", i)
		}

		// every caller got back exactly its own payload: no id collision
		// routed a response to the wrong waiter.
		Expect(responses).To(HaveLen(n))
		for i := 0; i < n; i++ {
			Expect(responses).To(HaveKey(fmt.Sprintf("req-%d", i)))
		}

		// no caller waited meaningfully longer than the configured
		// request timeout despite 1000-way contention on one connection.
		for i, d := range elapsed {
			Expect(d).To(BeNumerically("<", 2200*time.Millisecond), "request %d took %s", i, d)
		}

		Expect(time.Since(start)).To(BeNumerically("<", 3*time.Second))
	})
})
