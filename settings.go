// Copyright 2025 The termalg Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package series

import (
	"runtime"
	"sync"

	"github.com/xyproto/env/v2"
)

// Process-wide multiplication tunables. Both are read once at the start
// of each multiplication call and can be overridden per call with
// WithMaxThreads and WithMinWorkPerThread.
const (
	// defaultMinWorkPerThread is the minimum number of term-by-term
	// products each worker must have before the engine adds another
	// worker. Below this the scheduling overhead dominates.
	defaultMinWorkPerThread = 100000

	envMaxThreads       = "SERIES_MAX_THREADS"
	envMinWorkPerThread = "SERIES_MIN_WORK_PER_THREAD"
)

var (
	settingsMu    sync.RWMutex
	maxThreadsVal = atLeast(env.Int(envMaxThreads, runtime.NumCPU()), 1)
	minWorkVal    = atLeast(env.Int(envMinWorkPerThread, defaultMinWorkPerThread), 1)
)

func atLeast(n, min int) int {
	if n < min {
		return min
	}
	return n
}

// MaxThreads returns the maximum number of workers a multiplication may
// use. The initial value comes from SERIES_MAX_THREADS, defaulting to
// the number of CPUs.
func MaxThreads() int {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return maxThreadsVal
}

// SetMaxThreads changes the process-wide worker bound. n must be at
// least 1.
func SetMaxThreads(n int) error {
	if n < 1 {
		return ErrInvalidSetting
	}
	settingsMu.Lock()
	defer settingsMu.Unlock()
	maxThreadsVal = n
	return nil
}

// MinWorkPerThread returns the minimum number of term-by-term products
// per worker. The initial value comes from SERIES_MIN_WORK_PER_THREAD.
func MinWorkPerThread() int {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return minWorkVal
}

// SetMinWorkPerThread changes the process-wide work threshold. n must
// be at least 1.
func SetMinWorkPerThread(n int) error {
	if n < 1 {
		return ErrInvalidSetting
	}
	settingsMu.Lock()
	defer settingsMu.Unlock()
	minWorkVal = n
	return nil
}
