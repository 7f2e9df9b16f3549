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

package smtp

import (
	"errors"
	"strconv"
	"strings"
)

// parseVerb returns the first whitespace-delimited token of an SMTP
// command line, uppercased, or "" for a blank line.
func parseVerb(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// parseBdatArgs parses "BDAT <size> [LAST]" into the chunk size and
// whether this is the transaction's final chunk.
func parseBdatArgs(line string) (size int64, last bool, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, false, errors.New("BDAT: missing chunk size")
	}
	size, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, false, err
	}
	last = len(fields) >= 3 && strings.EqualFold(fields[2], "LAST")
	return size, last, nil
}

// alwaysAllowedCapabilities lists EHLO capability keywords forwarded to
// the client unconditionally, without a config flag. MAIL/RCPT parameters
// these extensions add (SIZE, DSN, ...) are relayed verbatim; the separate
// commands some of them add (AUTH, ETRN, EXPN, HELP, VERB) are not relayed:
// the transaction loop answers them with 503.
var alwaysAllowedCapabilities = map[string]bool{
	"SIZE": true, "DELIVERBY": true, "NO-SOLICITING": true, "AUTH": true,
	"FUTURERELEASE": true, "MT-PRIORITY": true, "LIMITS": true,
	"EXPN": true, "HELP": true, "8BITMIME": true, "VERB": true, "ONEX": true,
	"PIPELINING": true, "DSN": true, "ETRN": true, "MTRK": true,
	"CONPERM": true, "CONNEG": true, "SMTPUTF8": true, "RRVS": true,
	"REQUIRETLS": true,
}

// allowCapability decides whether an EHLO capability keyword is forwarded
// to the client, gating the handful that change what commands this
// session must then accept behind the matching config flag, and
// suppressing anything not explicitly recognized.
func (s *session) allowCapability(kw string) bool {
	switch kw {
	case "STARTTLS":
		s.serverSTARTTLS = true
		return !s.fromSTARTTLS && s.cfg.ClientTLSConfig != nil
	case "CHUNKING":
		s.serverChunking = true
		return s.cfg.AllowDataChunking
	case "BINARYMIME":
		return s.cfg.AllowDataChunking
	case "BURL":
		s.serverBurl = true
		return s.cfg.AllowBurlData
	case "ATRN":
		s.serverODMR = true
		return s.cfg.AllowOnDemandMailRelay
	case "ENHANCEDSTATUSCODES":
		return false
	default:
		return alwaysAllowedCapabilities[kw]
	}
}
