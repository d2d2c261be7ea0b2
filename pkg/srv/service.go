package srv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
)

const DefaultGrace = 35 * time.Second

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Group runs services side by side and stops them in reverse order.
type Group struct {
	services []Service
	errs     chan error

	// Grace bounds the whole shutdown sequence.
	Grace time.Duration
}

func NewGroup(services ...Service) *Group {
	return &Group{
		services: services,
		errs:     make(chan error, len(services)),
		Grace:    DefaultGrace,
	}
}

// Start launches every service in its own goroutine.
func (g *Group) Start(ctx context.Context) {
	for _, service := range g.services {
		go func(service Service) {
			if err := service.Start(ctx); err != nil {
				g.errs <- fmt.Errorf("%T: %w", service, err)
			}
		}(service)
	}
}

// Wait blocks until ctx is done or a service fails to run.
func (g *Group) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-g.errs:
		return err
	}
}

// Shutdown stops services last to first. It runs on a fresh context since
// the one passed to Start is usually cancelled by now.
func (g *Group) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.Grace)
	defer cancel()

	logger := log.FromCtx(ctx)
	var errs []error
	for i := len(g.services) - 1; i >= 0; i-- {
		if err := g.services[i].Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msgf("%T failed to shutdown", g.services[i])
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
