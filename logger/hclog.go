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

package logger

import (
	"fmt"
	"io"
	"log"

	"github.com/hashicorp/go-hclog"
)

// HCLogAdapter lets a third-party collaborator that only knows how to log
// through hclog.Logger (go-plugin clients, a future raft-backed registry)
// write through this package's own Logger and its syslog/Notice routing
// instead of opening a second, uncorrelated log sink.
type HCLogAdapter struct {
	l      Logger
	name   string
	level  hclog.Level
	args   []interface{}
}

// NewHCLogAdapter wraps l for consumption by an hclog.Logger-typed
// dependency.
func NewHCLogAdapter(l Logger) *HCLogAdapter {
	return &HCLogAdapter{l: l, level: hclog.Info}
}

var _ hclog.Logger = (*HCLogAdapter)(nil)

func argsToFields(args []interface{}) Fields {
	f := make(Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		f[key] = args[i+1]
	}
	return f
}

func (a *HCLogAdapter) withArgs(args ...interface{}) Logger {
	all := append(append([]interface{}{}, a.args...), args...)
	if len(all) == 0 {
		return a.l
	}
	return a.l.WithFields(argsToFields(all))
}

func (a *HCLogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		a.Debug(msg, args...)
	case hclog.Warn:
		a.Warn(msg, args...)
	case hclog.Error:
		a.Error(msg, args...)
	default:
		a.Info(msg, args...)
	}
}

func (a *HCLogAdapter) Trace(msg string, args ...interface{}) { a.withArgs(args...).Debug(msg) }
func (a *HCLogAdapter) Debug(msg string, args ...interface{}) { a.withArgs(args...).Debug(msg) }
func (a *HCLogAdapter) Info(msg string, args ...interface{})  { a.withArgs(args...).Info(msg) }
func (a *HCLogAdapter) Warn(msg string, args ...interface{})  { a.withArgs(args...).Warn(msg) }

func (a *HCLogAdapter) Error(msg string, args ...interface{}) {
	fields := argsToFields(append(append([]interface{}{}, a.args...), args...))
	var err error
	if e, ok := fields["error"].(error); ok {
		err = e
		delete(fields, "error")
	}
	a.l.WithFields(fields).Error(err, msg)
}

func (a *HCLogAdapter) IsTrace() bool { return a.level <= hclog.Trace }
func (a *HCLogAdapter) IsDebug() bool { return a.level <= hclog.Debug }
func (a *HCLogAdapter) IsInfo() bool  { return a.level <= hclog.Info }
func (a *HCLogAdapter) IsWarn() bool  { return a.level <= hclog.Warn }
func (a *HCLogAdapter) IsError() bool { return a.level <= hclog.Error }

func (a *HCLogAdapter) ImpliedArgs() []interface{} {
	return a.args
}

func (a *HCLogAdapter) With(args ...interface{}) hclog.Logger {
	return &HCLogAdapter{
		l:     a.l,
		name:  a.name,
		level: a.level,
		args:  append(append([]interface{}{}, a.args...), args...),
	}
}

func (a *HCLogAdapter) Name() string {
	return a.name
}

func (a *HCLogAdapter) Named(name string) hclog.Logger {
	if a.name != "" {
		name = a.name + "." + name
	}
	return a.ResetNamed(name)
}

func (a *HCLogAdapter) ResetNamed(name string) hclog.Logger {
	return &HCLogAdapter{
		l:     a.l.WithFields(Fields{"component": name}),
		name:  name,
		level: a.level,
		args:  a.args,
	}
}

func (a *HCLogAdapter) SetLevel(level hclog.Level) {
	a.level = level
}

func (a *HCLogAdapter) GetLevel() hclog.Level {
	return a.level
}

func (a *HCLogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(a.StandardWriter(opts), "", 0)
}

func (a *HCLogAdapter) StandardWriter(_ *hclog.StandardLoggerOptions) io.Writer {
	return hclogWriter{a: a}
}

type hclogWriter struct {
	a *HCLogAdapter
}

func (w hclogWriter) Write(p []byte) (int, error) {
	w.a.Info(string(p))
	return len(p), nil
}
