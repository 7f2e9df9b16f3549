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
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store whenever its underlying file changes on disk.
// Editors commonly replace a file by rename rather than in-place write, so
// Watcher watches the containing directory and filters events down to the
// one path it cares about, the same technique viper's own file watcher
// uses internally.
type Watcher struct {
	store  *Store
	watch  *fsnotify.Watcher
	done   chan struct{}
	errs   chan error
}

// Watch starts watching s's backing file for changes and returns a Watcher
// that reloads s whenever the file is written or replaced. Call Close to
// stop watching.
func Watch(s *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ErrWatchFailed.Error(err)
	}

	dir := filepath.Dir(s.Path())
	if err = fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, ErrWatchFailed.Error(err)
	}

	w := &Watcher{
		store: s,
		watch: fw,
		done:  make(chan struct{}),
		errs:  make(chan error, 1),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case ev, ok := <-w.watch.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.store.Reload(); err != nil {
				select {
				case w.errs <- err:
				default:
				}
			}
		case _, ok := <-w.watch.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Errors returns a channel of reload failures observed since the channel
// was last drained. Buffered by one: while an unread failure is pending,
// later failures are dropped, so a caller that never reads it sees only
// the first one.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watch loop and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watch.Close()
}
