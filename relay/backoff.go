// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import "time"

// BackoffPolicy is an exponential backoff with no attempt limit and a
// hard delay ceiling. The wait after failed attempt n (counting from
// zero) is Initial doubled n times; retrying stops once the next wait
// would be longer than Ceiling.
type BackoffPolicy struct {
	Initial time.Duration
	Ceiling time.Duration
}

// DefaultBackoff waits 2s, 4s, 8s, ... and gives up after the 2048s
// wait, because the following one (4096s) exceeds an hour.
var DefaultBackoff = BackoffPolicy{
	Initial: 2 * time.Second,
	Ceiling: 3600 * time.Second,
}

// Delay returns the wait after failed attempt number attempt. Doubling
// stops at the first value past Ceiling, so large attempt numbers do
// not overflow.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	delay := p.Initial
	for range max(attempt, 0) {
		if delay > p.Ceiling {
			break
		}
		delay *= 2
	}
	return delay
}

// Exhausted reports whether retrying should stop after the wait that
// follows failed attempt number attempt.
func (p BackoffPolicy) Exhausted(attempt int) bool {
	return p.Delay(attempt+1) > p.Ceiling
}
