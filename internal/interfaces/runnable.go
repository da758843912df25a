package interfaces

import "context"

// Runnable is a long-running component driven by the caller's context.
// Run blocks until the context is cancelled or the component fails.
type Runnable interface {
	Run(ctx context.Context) error
}
