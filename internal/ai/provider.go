package ai

import "context"

// Provider generates one assistant turn from accumulated history.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Providers maps each routing kind to its injected client. Constructed
// at startup and passed into the orchestrator; no ambient globals.
type Providers map[Kind]Provider

// FileSource resolves stored attachment paths to bytes. A missing file
// is reported by Exists and must be skipped, not treated as fatal.
type FileSource interface {
	Read(path string) ([]byte, error)
	Exists(path string) bool
}
