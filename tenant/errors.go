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

package tenant

import "github.com/nabbar/proxycore/errs"

const (
	ErrUnknownTenant errs.CodeError = errs.MinTenant + iota
	ErrInvalidMethodConfig
	ErrDuplicateTenant
)

var messages = map[errs.CodeError]string{
	ErrUnknownTenant:       "no tenant is registered under that name",
	ErrInvalidMethodConfig: "the identification method's configuration is invalid",
	ErrDuplicateTenant:     "a tenant is already registered under that name",
}

var briefs = map[errs.CodeError]string{
	ErrUnknownTenant:       "tenant.unknown",
	ErrInvalidMethodConfig: "tenant.invalid_method_config",
	ErrDuplicateTenant:     "tenant.duplicate",
}

func init() {
	errs.RegisterTaxonomy(errs.MinTenant,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
