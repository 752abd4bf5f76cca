//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are run via `go run`/`go install` and are not tracked in go.mod
// since they are development tools, not runtime dependencies.
package tools

// Development tools:
//
// mockgen - regenerates gomock doubles in internal/mocks
//   Run: go generate ./internal/mocks
//   Version: v0.6.0 (matches go.uber.org/mock in go.mod)
//
// Air - live reload for cmd/portal during template work
//   Install: go install github.com/air-verse/air@v1.63.0
//   Docs: https://github.com/air-verse/air
