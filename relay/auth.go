// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"github.com/samber/lo"

	"github.com/bureau-foundation/relay/lib/ref"
)

// AuthorizationSet is the set of senders the relay answers. The empty
// set places no restriction: everyone is authorized. It is built once
// at startup and only read afterwards.
type AuthorizationSet struct {
	users map[ref.UserID]struct{}
}

// NewAuthorizationSet builds a set from users. Duplicates collapse.
func NewAuthorizationSet(users []ref.UserID) AuthorizationSet {
	if len(users) == 0 {
		return AuthorizationSet{}
	}
	return AuthorizationSet{
		users: lo.SliceToMap(users, func(user ref.UserID) (ref.UserID, struct{}) {
			return user, struct{}{}
		}),
	}
}

// Empty reports whether the set places no restriction.
func (s AuthorizationSet) Empty() bool {
	return len(s.users) == 0
}

// Allows reports whether sender may trigger a reply.
func (s AuthorizationSet) Allows(sender ref.UserID) bool {
	if s.Empty() {
		return true
	}
	_, ok := s.users[sender]
	return ok
}

// Len returns the number of listed users.
func (s AuthorizationSet) Len() int {
	return len(s.users)
}
