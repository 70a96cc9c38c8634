// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the relay's configuration.
//
// Identity and secrets come from the process environment
// (MATRIX_USERNAME, MATRIX_PASSWORD, OPENAI_API_KEY, AUTHORIZED_USERS,
// MATRIX_HOMESERVER_URL), optionally seeded from a dotenv file. Values
// already present in the environment are never overridden by the
// dotenv file. Password and API key are moved into secret.Buffer
// memory and unset from the environment as soon as they are read.
//
// Non-secret tuning (completion model and request shaping, history
// page size, device display name, sync timeout) lives in an optional
// settings file named by --config or RELAY_CONFIG. YAML and JSON with
// comments are both accepted, chosen by extension. Unknown keys are
// rejected. String settings support ${VAR} and ${VAR:-default}
// expansion.
//
// Every problem found (missing variables, malformed user IDs, failed
// validation rules) is reported in one joined error from [Load]; a
// relay with a bad configuration does not start.
//
// Key exports:
//
//   - [Config] -- the validated result, including secret buffers
//   - [Settings] and [DefaultSettings] -- the tuning file schema
//   - [Load] -- the entry point
package config
