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

package config

import (
	"sync/atomic"
)

// Store holds the Snapshot currently in effect behind an atomic pointer, so
// a Reload can publish a brand new Snapshot without a reader ever observing
// a half-applied one and without either side taking a lock.
type Store struct {
	path string
	cur  atomic.Pointer[Snapshot]
	onReload []func(*Snapshot)
}

// NewStore loads path and returns a Store primed with the result. The path
// is retained so a later Reload (or Watch) can re-read the same file.
func NewStore(path string) (*Store, error) {
	snap, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.cur.Store(snap)
	return s, nil
}

// Current returns the Snapshot in effect. Safe for concurrent use with
// Reload.
func (s *Store) Current() *Snapshot {
	return s.cur.Load()
}

// OnReload registers fn to be called, in registration order, every time
// Reload installs a new Snapshot. fn must not block: it runs synchronously
// on the goroutine that called Reload.
func (s *Store) OnReload(fn func(*Snapshot)) {
	s.onReload = append(s.onReload, fn)
}

// Reload re-reads and re-validates the Store's path and, only if that
// succeeds, swaps it in atomically. A bad edit on disk leaves the previous,
// valid Snapshot in effect rather than tearing it down.
func (s *Store) Reload() error {
	snap, err := Load(s.path)
	if err != nil {
		return err
	}
	s.cur.Store(snap)
	for _, fn := range s.onReload {
		fn(snap)
	}
	return nil
}

// Path returns the file this Store reloads from.
func (s *Store) Path() string {
	return s.path
}
