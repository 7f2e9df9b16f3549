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

// Package syslog implements an RFC5424-shaped logrus.Hook used for
// audit-relevant log events: TLS intercept decisions, blocked-tenant
// events, ICAP service failures.
package syslog

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Facility mirrors the standard syslog facility codes relevant to an audit
// trail; this core only ever emits under FacilityAuth or FacilityLocal0.
type Facility int

const (
	FacilityAuth   Facility = 4
	FacilityLocal0 Facility = 16
)

// Hook writes RFC5424-formatted lines to w for every logrus entry at or
// above Warn level (Notice and above in RFC5424 terms).
type Hook struct {
	w        io.Writer
	facility Facility
	hostname string
	appName  string
}

// New builds a Hook writing to w, tagged with the given facility/app name.
func New(w io.Writer, facility Facility, hostname, appName string) *Hook {
	return &Hook{w: w, facility: facility, hostname: hostname, appName: appName}
}

func (h *Hook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func severityOf(l logrus.Level) int {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel:
		return 2 // Critical
	case logrus.ErrorLevel:
		return 3 // Error
	case logrus.WarnLevel:
		return 5 // Notice
	default:
		return 6 // Informational
	}
}

// Fire renders entry as an RFC5424 line: "<PRI>1 TIMESTAMP HOST APP PID MSGID [SD] MSG".
func (h *Hook) Fire(entry *logrus.Entry) error {
	pri := int(h.facility)*8 + severityOf(entry.Level)

	sd := "-"
	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf(`%s="%v"`, k, entry.Data[k]))
		}
		sd = "[audit@0 " + strings.Join(parts, " ") + "]"
	}

	line := fmt.Sprintf("<%d>1 %s %s %s - - %s %s\n",
		pri,
		entry.Time.UTC().Format(time.RFC3339),
		h.hostname,
		h.appName,
		sd,
		entry.Message,
	)

	_, err := io.WriteString(h.w, line)
	return err
}
