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

package imap

import (
	"strconv"
	"strings"
)

// parseTag returns the first whitespace-delimited token of a command or
// response line -- the client-chosen tag on a command, or "*"/"+" on an
// untagged/continuation response.
func parseTag(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// parseLiteralSuffix reports whether line ends in a literal-length marker
// ("{123}" or, per RFC 7888, the non-synchronizing "{123+}"), and if so
// its declared size.
func parseLiteralSuffix(line string) (size int64, nonSync bool, ok bool) {
	if !strings.HasSuffix(line, "}") {
		return 0, false, false
	}
	open := strings.LastIndexByte(line, '{')
	if open < 0 {
		return 0, false, false
	}
	body := line[open+1 : len(line)-1]
	if strings.HasSuffix(body, "+") {
		nonSync = true
		body = body[:len(body)-1]
	}
	n, err := strconv.ParseInt(body, 10, 64)
	if err != nil || n < 0 {
		return 0, false, false
	}
	return n, nonSync, true
}

// allowCapability gates the IMAP capability keywords this engine filters
// out of a CAPABILITY announcement behind a config flag or session state,
// rather than the SMTP engine's default-deny posture: IMAP's capability
// space is open-ended (vendor and extension keywords are common and
// harmless to relay unmodified), so anything not explicitly gated here is
// forwarded as announced.
func (s *session) allowCapability(kw string) bool {
	upper := strings.ToUpper(kw)
	switch {
	case upper == "STARTTLS":
		return !s.fromSTARTTLS
	case upper == "LOGINDISABLED":
		return !s.cfg.AllowPlaintextLogin && !s.fromSTARTTLS
	case upper == "IDLE":
		return s.cfg.AllowIdle
	case strings.HasPrefix(upper, "LITERAL"):
		return s.cfg.AllowNonSyncLiteral
	default:
		return true
	}
}

// filterCapabilityLine rewrites an untagged "* CAPABILITY ..." line, or
// any line carrying a bracketed "[CAPABILITY ...]" response code, dropping
// the keywords allowCapability rejects. Lines without either marker are
// returned unchanged.
func (s *session) filterCapabilityLine(line string) string {
	upper := strings.ToUpper(line)

	if bStart := strings.Index(upper, "[CAPABILITY "); bStart >= 0 {
		if bEnd := strings.IndexByte(line[bStart:], ']'); bEnd >= 0 {
			return s.filterBracketedCapability(line, bStart+len("[CAPABILITY "), bStart+bEnd)
		}
	}

	if strings.HasPrefix(strings.TrimSpace(line), "*") {
		if idx := strings.Index(upper, "CAPABILITY "); idx >= 0 {
			return s.filterUntaggedCapability(line, idx+len("CAPABILITY "))
		}
	}

	return line
}

// filterUntaggedCapability filters the space-separated keyword list running
// from kwStart to the end of line, e.g. "* CAPABILITY IMAP4rev1 STARTTLS".
func (s *session) filterUntaggedCapability(line string, kwStart int) string {
	return line[:kwStart] + strings.Join(s.keptCapabilities(strings.Fields(line[kwStart:])), " ")
}

// filterBracketedCapability filters the space-separated keyword list
// running from kwStart to bracketEnd (the index of the closing "]"),
// e.g. "a1 OK [CAPABILITY IMAP4rev1 ...] done".
func (s *session) filterBracketedCapability(line string, kwStart, bracketEnd int) string {
	return line[:kwStart] + strings.Join(s.keptCapabilities(strings.Fields(line[kwStart:bracketEnd])), " ") + line[bracketEnd:]
}

func (s *session) keptCapabilities(kws []string) []string {
	kept := kws[:0:0]
	for _, kw := range kws {
		if s.allowCapability(kw) {
			kept = append(kept, kw)
		}
	}
	return kept
}
