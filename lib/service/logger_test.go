// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerFormats(t *testing.T) {
	t.Parallel()

	var jsonOutput bytes.Buffer
	newLogger(&jsonOutput, false, false).Info("joined room", "room_id", "!a:b")
	var record map[string]any
	if err := json.Unmarshal(jsonOutput.Bytes(), &record); err != nil {
		t.Fatalf("non-terminal output is not JSON: %q", jsonOutput.String())
	}
	if record["msg"] != "joined room" || record["room_id"] != "!a:b" {
		t.Errorf("record = %v", record)
	}

	var textOutput bytes.Buffer
	newLogger(&textOutput, true, false).Info("joined room", "room_id", "!a:b")
	if !strings.Contains(textOutput.String(), `msg="joined room"`) {
		t.Errorf("terminal output is not text: %q", textOutput.String())
	}
}

func TestNewLoggerVerbose(t *testing.T) {
	t.Parallel()

	var quiet, verbose bytes.Buffer
	newLogger(&quiet, false, false).Debug("received message")
	newLogger(&verbose, false, true).Debug("received message")
	if quiet.Len() != 0 {
		t.Errorf("debug record written at info level: %q", quiet.String())
	}
	if verbose.Len() == 0 {
		t.Error("debug record dropped in verbose mode")
	}
}
