// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm is a small client for chat-completion APIs.
//
// [Provider] is the abstraction: one blocking Complete call that takes
// a [Request] (model, optional system prompt, ordered [Message] turns)
// and returns a [Response] carrying the reply text, the stop reason and
// token usage. Provider implementations translate between these types
// and a vendor's wire format.
//
// Current provider implementations:
//   - [OpenAI]: the OpenAI Chat Completions API (/chat/completions), and
//     any server that speaks the same wire format (Azure OpenAI,
//     OpenRouter, vLLM, Ollama, llama.cpp).
//
// API keys are held in a secret.Buffer and only converted to a string
// when the Authorization header is written. Errors returned by the API
// surface as [*ProviderError].
package llm
