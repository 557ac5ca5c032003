// Package ops orchestrates single business actions on templates and folders:
// validate, call the gateway, update the state store, emit a domain event.
//
// Every failure is funnelled through the error handler for logging and user
// notification, then returned to the caller. The store is only touched after
// the gateway reports success, so a failed call leaves local state as it was.
package ops

import (
	"go.uber.org/zap"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/events"
	"github.com/ziadkadry99/prompted/internal/gateway"
	"github.com/ziadkadry99/prompted/internal/state"
)

// Service runs template and folder operations.
type Service struct {
	api    gateway.API
	store  *state.Store
	errs   *apperr.Handler
	bus    *events.Bus
	logger *zap.Logger
}

// New wires a Service. bus and logger may be nil.
func New(api gateway.API, store *state.Store, errs *apperr.Handler, bus *events.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errs == nil {
		errs = apperr.NewHandler(logger, nil)
	}
	return &Service{
		api:    api,
		store:  store,
		errs:   errs,
		bus:    bus,
		logger: logger.Named("ops"),
	}
}

// Store returns the state store the service writes to.
func (s *Service) Store() *state.Store { return s.store }

// fail records err under action and returns it for the caller.
func (s *Service) fail(action string, err error) error {
	return s.handle(action, err, false)
}

func (s *Service) handle(action string, err error, silent bool) error {
	e := apperr.Classify(err).With("action", action)
	return s.errs.Handle(e, silent)
}
