// Package gateway is the OpenAI-compatible HTTP frontend. It decodes
// client requests, authenticates them, derives the required model
// capabilities, drives the routing orchestrator, and frames responses
// back as JSON or server-sent events.
package gateway
