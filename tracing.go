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
	"sync"

	"github.com/hashicorp/go-hclog"
)

// EstimateStats accumulates the accuracy of the size-estimation
// heuristic across all multiplications in the process. An estimate is
// correct when it is at least the actual result size; RatioSum
// accumulates estimate/actual for non-empty results.
type EstimateStats struct {
	Estimates uint64
	Correct   uint64
	RatioSum  float64
}

var (
	estimateMu    sync.Mutex
	estimateStats EstimateStats

	loggerMu    sync.RWMutex
	traceLogger hclog.Logger = hclog.NewNullLogger()
)

// SetTraceLogger installs the process-wide logger receiving size
// estimate diagnostics. The default is a null logger; diagnostics are
// never required for correctness.
func SetTraceLogger(l hclog.Logger) {
	if l == nil {
		l = hclog.NewNullLogger()
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	traceLogger = l
}

func getTraceLogger() hclog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return traceLogger
}

// EstimateStatistics returns a snapshot of the accumulated estimate
// accuracy counters.
func EstimateStatistics() EstimateStats {
	estimateMu.Lock()
	defer estimateMu.Unlock()
	return estimateStats
}

// ResetEstimateStatistics zeroes the accumulated counters.
func ResetEstimateStatistics() {
	estimateMu.Lock()
	defer estimateMu.Unlock()
	estimateStats = EstimateStats{}
}

func recordEstimate(logger hclog.Logger, actual, estimate int) {
	estimateMu.Lock()
	estimateStats.Estimates++
	if estimate >= actual {
		estimateStats.Correct++
	}
	if estimate > 0 && actual > 0 {
		estimateStats.RatioSum += float64(estimate) / float64(actual)
	}
	estimateMu.Unlock()
	logger.Debug("series multiplication size estimate",
		"estimate", estimate, "actual", actual, "correct", estimate >= actual)
}
