package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ShutdownManager stops the pieces of a long running command in reverse
// registration order once its context is done.
type ShutdownManager struct {
	logger          logrus.FieldLogger
	shutdownFuncs   []namedShutdownFunc
	shutdownTimeout time.Duration
	mu              sync.Mutex
}

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

type namedShutdownFunc struct {
	name string
	fn   ShutdownFunc
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger logrus.FieldLogger, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &ShutdownManager{
		logger:          logger,
		shutdownTimeout: timeout,
	}
}

// RegisterShutdownFunc registers a function to call during shutdown
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.shutdownFuncs = append(sm.shutdownFuncs, namedShutdownFunc{name: name, fn: fn})
}

// RegisterServer registers an HTTP server for graceful shutdown
func (sm *ShutdownManager) RegisterServer(server *http.Server) {
	sm.RegisterShutdownFunc("http server "+server.Addr, server.Shutdown)
}

// Shutdown runs every registered function, last registered first, and
// joins their errors.
func (sm *ShutdownManager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
	defer cancel()

	sm.mu.Lock()
	funcs := sm.shutdownFuncs
	sm.shutdownFuncs = nil
	sm.mu.Unlock()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]
		sm.logger.Debugf("Stopping %s", f.name)
		if err := f.fn(ctx); err != nil {
			sm.logger.WithError(err).Warnf("Stopping %s failed", f.name)
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
		}
	}

	return errors.Join(errs...)
}
