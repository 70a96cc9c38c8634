// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"testing"

	"github.com/bureau-foundation/relay/lib/ref"
)

func TestAuthorizationSet(t *testing.T) {
	t.Parallel()

	open := NewAuthorizationSet(nil)
	if !open.Empty() || !open.Allows(aliceID) || !open.Allows(bobID) {
		t.Error("an empty set must allow everyone")
	}

	restricted := NewAuthorizationSet([]ref.UserID{aliceID, aliceID})
	if restricted.Empty() || restricted.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after duplicate collapse", restricted.Len())
	}
	if !restricted.Allows(aliceID) {
		t.Error("listed user rejected")
	}
	if restricted.Allows(bobID) {
		t.Error("unlisted user allowed")
	}

	var zero AuthorizationSet
	if !zero.Allows(bobID) {
		t.Error("zero value must allow everyone")
	}
}
