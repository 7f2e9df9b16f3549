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

package tlsintercept

import (
	"sync"
	"time"
)

// RollingTicketer holds a rotating set of TLS session-ticket keys: one
// current key used for new tickets' encryption, plus a name-indexed map of
// keys still accepted for decrypting tickets issued in a previous epoch.
// Key is typically [32]byte, matching crypto/tls.Config.SetSessionTicketKeys,
// but is left generic so a future cipher/hmac-split ticketer (OpenSSL-style
// encrypt_init/decrypt_init with separate AES and HMAC keys) can reuse the
// same rotation scheduling without duplicating it.
type RollingTicketer[Key any] struct {
	mu sync.RWMutex

	encryptName string
	decrypt     map[string]Key

	generate func() (name string, key Key)
	interval time.Duration

	stop   chan struct{}
	closed bool
}

// NewRollingTicketer builds a ticketer seeded with one key and starts it
// unstarted: call Start to begin the background rotation. generate produces
// a fresh (name, key) pair each rotation; names must be unique across calls
// for the retained-epoch invariant below to mean anything.
func NewRollingTicketer[Key any](interval time.Duration, generate func() (string, Key)) *RollingTicketer[Key] {
	name, key := generate()
	return &RollingTicketer[Key]{
		encryptName: name,
		decrypt:     map[string]Key{name: key},
		generate:    generate,
		interval:    interval,
		stop:        make(chan struct{}),
	}
}

// EncryptInit returns the name and key currently used to encrypt new
// session tickets.
func (t *RollingTicketer[Key]) EncryptInit() (name string, key Key) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.encryptName, t.decrypt[t.encryptName]
}

// DecryptInit looks up the key registered under name, for decrypting a
// ticket presented by a resuming client. A name from up to one full
// rotation period ago is guaranteed present.
func (t *RollingTicketer[Key]) DecryptInit(name string) (key Key, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	key, ok = t.decrypt[name]
	return key, ok
}

// Rotate generates a new encrypt key and retains the previous encrypt key
// in the decrypt map, dropping any key older than that so the map never
// grows past two entries. Exported so callers (and tests) can force a
// rotation without waiting on the interval.
func (t *RollingTicketer[Key]) Rotate() {
	name, key := t.generate()

	t.mu.Lock()
	defer t.mu.Unlock()

	previous := t.encryptName
	t.decrypt = map[string]Key{
		name:     key,
		previous: t.decrypt[previous],
	}
	t.encryptName = name
}

// KeySet returns the keys in the order crypto/tls.Config.SetSessionTicketKeys
// expects: the current encrypt key first, followed by the remaining
// decrypt-only keys.
func (t *RollingTicketer[Key]) KeySet() []Key {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Key, 0, len(t.decrypt))
	out = append(out, t.decrypt[t.encryptName])
	for name, k := range t.decrypt {
		if name != t.encryptName {
			out = append(out, k)
		}
	}
	return out
}

// Start rotates the ticketer on a timer until Stop is called. It is safe to
// call at most once per ticketer.
func (t *RollingTicketer[Key]) Start() {
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.Rotate()
			case <-t.stop:
				return
			}
		}
	}()
}

// Stop ends the background rotation goroutine started by Start.
func (t *RollingTicketer[Key]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.stop)
}
