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

// Package logger wraps logrus behind a small Logger interface: Fields for
// structured attributes, and per-task child loggers carrying
// task_id/escaper/client_addr so every engine's log lines are correlatable
// without re-deriving those fields at each call site.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Fields is structured key/value data attached to a log entry.
type Fields map[string]interface{}

// Logger is the module's logging surface. The engines and escapers take
// no Logger; the daemon in cmd/proxycored builds one with New.
type Logger interface {
	// WithFields returns a child logger with the given fields merged in.
	WithFields(f Fields) Logger

	Debug(msg string, f ...Fields)
	Info(msg string, f ...Fields)
	Warn(msg string, f ...Fields)
	Error(err error, msg string, f ...Fields)

	// Notice routes audit-relevant events (TLS intercept decisions, blocked
	// tenants, ICAP service failures) through the syslog hook in addition
	// to the normal sink, matching the RFC5424 "Notice" severity.
	Notice(msg string, f ...Fields)

	// SetOutput redirects the underlying sink.
	SetOutput(w io.Writer)
}

type logger struct {
	base *logrus.Logger
	flds Fields
}

// New builds a Logger writing JSON-formatted entries, defaulting to Info
// level the same way nabbar/golib's logger/logger.go defaults its logrus instance.
func New() Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return &logger{base: l, flds: Fields{}}
}

func (l *logger) clone() *logger {
	f := make(Fields, len(l.flds))
	for k, v := range l.flds {
		f[k] = v
	}
	return &logger{base: l.base, flds: f}
}

func (l *logger) WithFields(f Fields) Logger {
	n := l.clone()
	for k, v := range f {
		n.flds[k] = v
	}
	return n
}

func (l *logger) entry(extra ...Fields) *logrus.Entry {
	fields := logrus.Fields{}
	for k, v := range l.flds {
		fields[k] = v
	}
	for _, e := range extra {
		for k, v := range e {
			fields[k] = v
		}
	}
	return l.base.WithFields(fields)
}

func (l *logger) Debug(msg string, f ...Fields) { l.entry(f...).Debug(msg) }
func (l *logger) Info(msg string, f ...Fields)  { l.entry(f...).Info(msg) }
func (l *logger) Warn(msg string, f ...Fields)  { l.entry(f...).Warn(msg) }

func (l *logger) Error(err error, msg string, f ...Fields) {
	e := l.entry(f...)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(msg)
}

func (l *logger) Notice(msg string, f ...Fields) {
	l.entry(f...).Warn(msg)
}

func (l *logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}
