package queue

import (
	"context"
	"encoding/json"
)

type (
	// Handler processes jobs of one name. Handle must honor the context
	// deadline: the worker bounds every execution and treats a timeout
	// as a retryable failure.
	Handler interface {
		Name() string
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	JobHandlerFunc[T any]  func(ctx context.Context, payload T) error
	PeriodicJobHandlerFunc func(ctx context.Context) error
)

// NewJobHandler wraps a typed function as a Handler. The job name is
// derived from the payload type so enqueuer and worker agree without a
// shared registry.
func NewJobHandler[T any](handler JobHandlerFunc[T]) Handler {
	var payload T
	return &oneTimeJobHandler[T]{
		name:    qualifiedStructName(payload),
		handler: handler,
	}
}

// NewPeriodicJobHandler wraps a payload-less function for scheduler-created jobs.
func NewPeriodicJobHandler(name string, handler PeriodicJobHandlerFunc) Handler {
	return &periodicJobHandler{
		name:    name,
		handler: handler,
	}
}

type oneTimeJobHandler[T any] struct {
	name    string
	handler JobHandlerFunc[T]
}

func (h *oneTimeJobHandler[T]) Name() string {
	return h.name
}

func (h *oneTimeJobHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return err
	}
	return h.handler(ctx, t)
}

type periodicJobHandler struct {
	name    string
	handler PeriodicJobHandlerFunc
}

func (h *periodicJobHandler) Name() string {
	return h.name
}

func (h *periodicJobHandler) Handle(ctx context.Context, _ json.RawMessage) error {
	return h.handler(ctx)
}
