// Package llm provides the hosted-model adapters behind the matching
// pipeline: chat-completion clients used for disambiguation and an
// embeddings client used as the phrase encoder. Prompt construction and
// response parsing live with the matching core, not here; these clients
// only move requests over the wire.
package llm
