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

package escaper

import "net"

// LPMTable is the longest-prefix-match IP -> escaper-name table used by
// RouteResolved. Entries are checked from most to least specific prefix
// length; Lookup falls back to "" (caller substitutes the configured
// default) when nothing matches.
type LPMTable struct {
	entries []lpmEntry
}

type lpmEntry struct {
	network *net.IPNet
	target  string
}

// NewLPMTable builds a table from a map of CIDR string to escaper name.
// Malformed CIDRs are skipped silently -- config-time validation is the
// config package's job, not this table's.
func NewLPMTable(routes map[string]string) *LPMTable {
	t := &LPMTable{}
	for cidr, target := range routes {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		t.entries = append(t.entries, lpmEntry{network: n, target: target})
	}
	return t
}

// Lookup returns the escaper name for the most specific network containing
// ip, and true if any entry matched.
func (t *LPMTable) Lookup(ip net.IP) (string, bool) {
	best := -1
	var bestTarget string
	for _, e := range t.entries {
		if !e.network.Contains(ip) {
			continue
		}
		ones, _ := e.network.Mask.Size()
		if ones > best {
			best = ones
			bestTarget = e.target
		}
	}
	if best < 0 {
		return "", false
	}
	return bestTarget, true
}
