// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// UserID is a validated Matrix user ID (e.g., "@bot:example.org").
//
// A Matrix user ID always starts with '@' and contains a ':'
// separating the localpart from the server name. The relay uses it for
// its own identity (self-message suppression, role mapping) and for the
// authorized sender list.
//
// UserID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type UserID struct {
	id string
}

// ParseUserID validates and wraps a raw Matrix user ID string.
func ParseUserID(raw string) (UserID, error) {
	if _, _, err := parsePrefixedID(raw, '@', "user ID"); err != nil {
		return UserID{}, err
	}
	return UserID{id: raw}, nil
}

// MustParseUserID is like ParseUserID but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseUserID(raw string) UserID {
	userID, err := ParseUserID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseUserID(%q): %v", raw, err))
	}
	return userID
}

// String returns the full user ID string.
func (u UserID) String() string { return u.id }

// IsZero reports whether the UserID is the zero value.
func (u UserID) IsZero() bool { return u.id == "" }

// Localpart returns the part between '@' and the first ':'. Panics on
// the zero value.
func (u UserID) Localpart() string {
	localpart, _ := u.split()
	return localpart
}

// Server returns the server name (everything after the first ':'),
// which is where homeserver discovery starts. Panics on the zero value.
func (u UserID) Server() string {
	_, server := u.split()
	return server
}

func (u UserID) split() (string, string) {
	if u.id == "" {
		panic("ref.UserID: accessor called on zero value")
	}
	localpart, server, err := parsePrefixedID(u.id, '@', "user ID")
	if err != nil {
		// Validated at construction.
		panic(fmt.Sprintf("ref.UserID: internal error parsing %q: %v", u.id, err))
	}
	return localpart, server
}

// MarshalText implements encoding.TextMarshaler.
func (u UserID) MarshalText() ([]byte, error) {
	return []byte(u.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (u *UserID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*u = UserID{}
		return nil
	}
	parsed, err := ParseUserID(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
