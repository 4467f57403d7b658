//go:build integration

// Package integration holds integration tests for the asset pipeline.
//
// These tests require Docker and spin up a real OCI registry using
// testcontainers. Run with: go test -tags=integration ./integration/...
package integration
