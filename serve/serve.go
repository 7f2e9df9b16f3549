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

// Package serve holds the pieces shared by every per-protocol interception
// engine (http1, http2, smtp, imap): the REQMOD/RESPMOD adapter interface a
// session optionally routes through, and the idle/blocked-user/quit-aware
// loop that drives an ioext.StreamCopy body transfer. Each engine package
// wraps the sentinel errors this loop returns into its own registered
// CodeError taxonomy.
package serve

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/nabbar/proxycore/errs"
	"github.com/nabbar/proxycore/ioext"
)

// Adapter is the narrow REQMOD/RESPMOD capability a session routes a
// message through when one is configured. serve does not depend on the
// icap package; a concrete icap client satisfies this interface instead,
// keeping the dependency pointed the other way.
type Adapter interface {
	REQMOD(ctx context.Context, req *http.Request) (*http.Request, error)
	RESPMOD(ctx context.Context, req *http.Request, resp *http.Response) (*http.Response, error)
}

// Deadline is the subset of net.Conn RunTransfer uses to bound a single
// read: most transfers are driven from a real socket, whose blocking Read
// would otherwise defeat tick-based idle detection entirely. When Conn is
// set, RunTransfer arms a read deadline of CheckInterval before every
// step and treats a resulting timeout as "no progress this tick" rather
// than a fatal error.
type Deadline interface {
	SetReadDeadline(t time.Time) error
}

// IdleQuit bounds a single transfer: how often to check for progress, how
// many consecutive idle checks to tolerate, and the two process-wide
// escape hatches (a per-user block flag, a process force-quit flag) that
// can end a stream early.
type IdleQuit struct {
	CheckInterval time.Duration
	MaxIdleCount  int
	BlockedUser   func() bool
	ServerQuit    func() bool
	Conn          Deadline
}

// DefaultIdleQuit returns conservative defaults: a one-second check tick,
// sixty tolerated idle ticks (one minute of no progress), and both flags
// treated as never-firing when unset.
func DefaultIdleQuit() IdleQuit {
	return IdleQuit{
		CheckInterval: time.Second,
		MaxIdleCount:  60,
	}
}

func (q IdleQuit) blocked() bool {
	return q.BlockedUser != nil && q.BlockedUser()
}

func (q IdleQuit) quit() bool {
	return q.ServerQuit != nil && q.ServerQuit()
}

// Sentinel signals RunTransfer returns in place of a protocol-specific
// CodeError; callers translate these into their own taxonomy.
var (
	ErrIdle        = errors.New("transfer idle for too long")
	ErrUserBlocked = errors.New("canceled: user blocked")
	ErrServerQuit  = errors.New("canceled: server quitting")
)

// IdleError is returned by RunTransfer in place of the bare ErrIdle
// sentinel, carrying how long the transfer sat idle and how many ticks
// that spanned so a caller's error taxonomy can report both.
type IdleError struct {
	After time.Duration
	Ticks int
}

func (e *IdleError) Error() string {
	return "transfer idle for too long"
}

// Is lets errors.Is(err, ErrIdle) match an *IdleError.
func (e *IdleError) Is(target error) bool {
	return target == ErrIdle
}

// RunTransfer drives sc to completion under cfg's idle/blocked/quit
// policy. When cfg.Conn is set it uses runTransferDeadlined, arming a read
// deadline of CheckInterval before every step on a real socket. Without a
// Conn (an HTTP/2 stream body, for instance, has no per-read deadline
// control) it falls back to runTransferAsync, stepping the copy on a
// background goroutine so a stalled reader can't block the tick loop;
// that goroutine outlives a non-nil return until src/dst are closed by
// the caller, so callers on this path must close both promptly once
// RunTransfer returns an error.
func RunTransfer(ctx context.Context, sc *ioext.StreamCopy, cfg IdleQuit) error {
	if cfg.CheckInterval <= 0 {
		cfg = DefaultIdleQuit()
	}

	if cfg.Conn != nil {
		return runTransferDeadlined(ctx, sc, cfg)
	}
	return runTransferAsync(ctx, sc, cfg)
}

func runTransferDeadlined(ctx context.Context, sc *ioext.StreamCopy, cfg IdleQuit) error {
	idleTicks := 0

	for {
		if sc.Finished() {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		_ = cfg.Conn.SetReadDeadline(time.Now().Add(cfg.CheckInterval))

		_, err := sc.Step()
		if err != nil && !isTimeout(err) {
			return err
		}

		if sc.Finished() {
			_ = cfg.Conn.SetReadDeadline(time.Time{})
			return nil
		}

		if cfg.blocked() {
			return ErrUserBlocked
		}
		if cfg.quit() {
			return ErrServerQuit
		}

		if idleTicks = nextIdleTick(sc, cfg, idleTicks); idleTicks < 0 {
			return &IdleError{After: time.Duration(-idleTicks) * cfg.CheckInterval, Ticks: -idleTicks}
		}
	}
}

func runTransferAsync(ctx context.Context, sc *ioext.StreamCopy, cfg IdleQuit) error {
	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	idleTicks := 0
	stepDone := make(chan error, 1)
	stepping := false

	for {
		if sc.Finished() {
			return nil
		}

		if !stepping {
			stepping = true
			go func() {
				_, err := sc.Step()
				stepDone <- err
			}()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-stepDone:
			stepping = false
			if err != nil {
				return err
			}
			if sc.Finished() {
				return nil
			}
			idleTicks = 0

		case <-ticker.C:
			if cfg.blocked() {
				return ErrUserBlocked
			}
			if cfg.quit() {
				return ErrServerQuit
			}
			if idleTicks = nextIdleTick(sc, cfg, idleTicks); idleTicks < 0 {
				return &IdleError{After: time.Duration(-idleTicks) * cfg.CheckInterval, Ticks: -idleTicks}
			}
		}
	}
}

// nextIdleTick returns the updated idle-tick counter, or that counter
// negated once it reaches cfg.MaxIdleCount (a sentinel the caller checks
// for rather than adding a second return value to every call site).
func nextIdleTick(sc *ioext.StreamCopy, cfg IdleQuit, idleTicks int) int {
	if !sc.IsIdle(cfg.CheckInterval) {
		return 0
	}
	idleTicks++
	if idleTicks >= cfg.MaxIdleCount {
		return -idleTicks
	}
	return idleTicks
}

// TranslateTransferErr maps one of RunTransfer's sentinel errors to the
// caller's own registered taxonomy: idle for an *IdleError, blocked/quit
// for the matching cancellation sentinel, and fallback for anything else
// (a genuine I/O failure from the copy itself). Every engine package in
// this module registers its own CodeError range, so the mapping is
// parameterized rather than hard-coded here.
func TranslateTransferErr(err error, idle, blocked, quit, fallback errs.CodeError) error {
	var ie *IdleError
	switch {
	case errors.As(err, &ie):
		return idle.Error(err)
	case errors.Is(err, ErrUserBlocked):
		return blocked.Error(err)
	case errors.Is(err, ErrServerQuit):
		return quit.Error(err)
	default:
		return fallback.Error(err)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
