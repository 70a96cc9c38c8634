// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)

	channel := fake.After(5 * time.Second)
	fake.Advance(4 * time.Second)
	select {
	case <-channel:
		t.Fatal("fired before deadline")
	default:
	}

	fake.Advance(time.Second)
	select {
	case fired := <-channel:
		if !fired.Equal(epoch.Add(5 * time.Second)) {
			t.Errorf("fired at %v, want %v", fired, epoch.Add(5*time.Second))
		}
	default:
		t.Fatal("did not fire at deadline")
	}
	if fake.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after firing, want 0", fake.PendingCount())
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeSleepWithWaitForTimers(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)

	done := make(chan struct{})
	go func() {
		fake.Sleep(2 * time.Second)
		close(done)
	}()

	fake.WaitForTimers(1)
	fake.Advance(2 * time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("Sleep did not return after Advance")
	}
	if got := fake.Now(); !got.Equal(epoch.Add(2 * time.Second)) {
		t.Errorf("Now() = %v, want %v", got, epoch.Add(2*time.Second))
	}
}
