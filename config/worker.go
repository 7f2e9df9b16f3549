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

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// WorkerAffinity is one worker's CPU affinity list, auto-derived from the
// WORKER_<i>_CPU_LIST environment variable (a comma-separated list of CPU
// indices, e.g. "0,1,2,3").
type WorkerAffinity struct {
	Index   int
	CPUList []int
}

// WorkerAffinityFromEnv reads WORKER_0_CPU_LIST .. WORKER_<count-1>_CPU_LIST
// via viper's environment binding and returns one WorkerAffinity per worker
// that had a non-empty value set. A worker with no env var set is omitted,
// letting the pool builder fall back to its own default affinity for it.
func WorkerAffinityFromEnv(count int) ([]WorkerAffinity, error) {
	vip := viper.New()
	vip.AutomaticEnv()

	out := make([]WorkerAffinity, 0, count)
	for i := 0; i < count; i++ {
		key := fmt.Sprintf("WORKER_%d_CPU_LIST", i)
		if err := vip.BindEnv(key); err != nil {
			return nil, err
		}
		raw := vip.GetString(key)
		if raw == "" {
			continue
		}

		list, err := parseCPUList(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, WorkerAffinity{Index: i, CPUList: list})
	}
	return out, nil
}

func parseCPUList(raw string) ([]int, error) {
	fields := strings.Split(raw, ",")
	list := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, nil
}
