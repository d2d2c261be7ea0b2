package srv

import "context"

// cleanupService runs a function at shutdown and nothing at start.
type cleanupService struct {
	cleanup func(ctx context.Context) error
}

func (c *cleanupService) Start(context.Context) error {
	return nil
}

func (c *cleanupService) Shutdown(ctx context.Context) error {
	if c.cleanup != nil {
		return c.cleanup(ctx)
	}
	return nil
}

func NewCleanup(fn func(ctx context.Context) error) Service {
	return &cleanupService{cleanup: fn}
}
