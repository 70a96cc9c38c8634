// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the time operations the relay depends on so
// that retry and backoff paths can be tested without wall-clock waits.
//
// Production code injects [Real]; tests inject [Fake] and drive time
// forward explicitly with [FakeClock.Advance]. [FakeClock.WaitForTimers]
// closes the race between a goroutine registering a sleep and the test
// advancing past it.
package clock

import "time"

// Clock is the subset of the time package used by the relay.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after d
	// elapses. If d <= 0, the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
