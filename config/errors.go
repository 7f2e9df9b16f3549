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

import "github.com/nabbar/proxycore/errs"

const (
	ErrUnknownFormat errs.CodeError = errs.MinConfig + iota
	ErrReadFailed
	ErrParseFailed
	ErrValidationFailed
	ErrUnknownEntity
	ErrWatchFailed
)

var messages = map[errs.CodeError]string{
	ErrUnknownFormat:    "unrecognized config file extension: expected .yaml, .yml, or .json",
	ErrReadFailed:       "failed to read the config file",
	ErrParseFailed:      "failed to parse the config file",
	ErrValidationFailed: "one or more config entities failed struct validation",
	ErrUnknownEntity:    "no entity registered under that name",
	ErrWatchFailed:      "failed to watch the config path for changes",
}

var briefs = map[errs.CodeError]string{
	ErrUnknownFormat:    "config.unknown_format",
	ErrReadFailed:       "config.read_failed",
	ErrParseFailed:      "config.parse_failed",
	ErrValidationFailed: "config.validation_failed",
	ErrUnknownEntity:    "config.unknown_entity",
	ErrWatchFailed:      "config.watch_failed",
}

func init() {
	errs.RegisterTaxonomy(errs.MinConfig,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
