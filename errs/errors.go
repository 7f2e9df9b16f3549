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

package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Error is the taxonomy-aware error type every subsystem returns. It keeps
// a code, a rendered message, and a chain of parent errors so a caller can
// walk the full cause chain (escaper -> server task -> ICAP, etc.) without
// losing the originating CodeError. Modeled on nabbar/golib's errors/interface.go's
// Error interface, trimmed to what this core's call sites actually use.
type Error interface {
	error

	// Code returns the leaf CodeError this value was created with.
	Code() CodeError
	// Brief returns Code().Brief(), convenience for metric labeling.
	Brief() string
	// HasCode reports whether this error or any parent carries code.
	HasCode(code CodeError) bool
	// HasParent reports whether at least one parent error is attached.
	HasParent() bool
	// Add attaches additional parent errors, skipping nils.
	Add(parents ...error)
	// Unwrap satisfies errors.Is / errors.As traversal.
	Unwrap() []error
}

type wrappedErr struct {
	code CodeError
	msg  string
	par  []error
}

// New builds an Error with the given code, message, and optional parents.
func New(code CodeError, msg string, parents ...error) Error {
	e := &wrappedErr{code: code, msg: msg}
	e.Add(parents...)
	return e
}

// Newf is New with fmt.Sprintf-formatted message.
func Newf(code CodeError, format string, args ...interface{}) Error {
	return New(code, fmt.Sprintf(format, args...))
}

func (e *wrappedErr) Error() string {
	if !e.HasParent() {
		return e.msg
	}

	parts := make([]string, 0, len(e.par)+1)
	parts = append(parts, e.msg)
	for _, p := range e.par {
		parts = append(parts, p.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *wrappedErr) Code() CodeError {
	return e.code
}

func (e *wrappedErr) Brief() string {
	return e.code.Brief()
}

func (e *wrappedErr) HasCode(code CodeError) bool {
	if e.code == code {
		return true
	}
	for _, p := range e.par {
		var pe Error
		if errors.As(p, &pe) && pe.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *wrappedErr) HasParent() bool {
	return len(e.par) > 0
}

func (e *wrappedErr) Add(parents ...error) {
	for _, p := range parents {
		if p != nil {
			e.par = append(e.par, p)
		}
	}
}

func (e *wrappedErr) Unwrap() []error {
	return e.par
}

// Is reports whether err is (or wraps) an *Error.
func Is(err error) bool {
	var e Error
	return errors.As(err, &e)
}

// Get returns err as an Error if it is one, nil otherwise.
func Get(err error) Error {
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// HasCode reports whether err or any of its wrapped parents carries code.
func HasCode(err error, code CodeError) bool {
	if e := Get(err); e != nil {
		return e.HasCode(code)
	}
	return false
}
