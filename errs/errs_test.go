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

package errs_test

import (
	"testing"

	"github.com/nabbar/proxycore/errs"
	"github.com/stretchr/testify/require"
)

const testBase errs.CodeError = errs.MinAvailable

func init() {
	errs.RegisterTaxonomy(testBase,
		func(c errs.CodeError) string {
			if c == testBase+1 {
				return "boom"
			}
			return ""
		},
		func(c errs.CodeError) string {
			if c == testBase+1 {
				return "test.boom"
			}
			return ""
		},
	)
}

func TestCodeErrorMessageAndBrief(t *testing.T) {
	code := testBase + 1
	require.Equal(t, "boom", code.Message())
	require.Equal(t, "test.boom", code.Brief())
}

func TestErrorParentChainHasCode(t *testing.T) {
	leaf := (testBase + 1).Error()
	wrapped := errs.New(testBase+2, "wrapping", leaf)

	require.True(t, wrapped.HasCode(testBase+1))
	require.True(t, wrapped.HasParent())
	require.False(t, wrapped.HasCode(testBase+99))
}

func TestGetAndIs(t *testing.T) {
	var err error = errs.New(testBase+1, "x")
	require.True(t, errs.Is(err))
	require.NotNil(t, errs.Get(err))
	require.True(t, errs.HasCode(err, testBase+1))
}
