//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are run with `go run` or installed via `go install` and are not
// tracked in go.mod since they are development tools, not runtime dependencies.
package tools

// Development tools:
//
// Air - Live reload for the web front end (pair with DEV=true so templates
// and static files are read from disk)
//   Install: go install github.com/air-verse/air@v1.63.0
//   Run:     air --build.cmd "go build -o ./tmp/kbassist-web ./cmd/kbassist-web" --build.bin ./tmp/kbassist-web
//   Docs: https://github.com/air-verse/air
//
// mockgen - Regenerates internal/mocks/ports_mock.go
//   Run: go generate ./internal/mocks
//   Version: go.uber.org/mock v0.6.0 (matches go.mod)
