package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultUpstreamTimeout bounds a single outbound call.
const DefaultUpstreamTimeout = 60 * time.Second

type verbFunc func(Engine, context.Context, Call) (*Response, error)

// verbs maps each supported method to its engine operation.
var verbs = map[Method]verbFunc{
	MethodGet:    Engine.Get,
	MethodPost:   Engine.Post,
	MethodPut:    Engine.Put,
	MethodDelete: Engine.Delete,
}

// Dispatcher executes descriptors against the engine on the worker pool.
type Dispatcher struct {
	Engine  Engine
	Pool    *Pool
	Timeout time.Duration

	// Observe, when set, is called after every dispatch with the method,
	// the time spent including queueing, and the resulting error.
	Observe func(method Method, elapsed time.Duration, err error)
}

// Dispatch runs the outbound call for d and waits for its result. Every
// failure is reported as *UpstreamError.
func (d *Dispatcher) Dispatch(ctx context.Context, desc *Descriptor) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		if d.Observe != nil && desc != nil {
			d.Observe(desc.Method, time.Since(start), err)
		}
	}()

	if err := desc.Validate(); err != nil {
		return nil, err
	}

	verb, ok := verbs[desc.Method]
	if !ok {
		return nil, ErrMalformedRequest
	}
	if d.Engine == nil {
		return nil, upstreamErrorf("no engine configured")
	}
	if d.Pool == nil {
		return nil, upstreamErrorf("no worker pool configured")
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	call := Call{
		URL:     desc.URL,
		Headers: desc.Headers,
		Data:    desc.Data,
		File:    desc.File,
	}

	var callErr error
	poolErr := d.Pool.Do(callCtx, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("engine panic: %v", r)
			}
		}()
		resp, callErr = verb(d.Engine, ctx, call)
	})

	switch {
	case poolErr != nil:
		return nil, &UpstreamError{Err: describeContextErr(poolErr, timeout)}
	case callErr != nil:
		return nil, &UpstreamError{Err: describeContextErr(callErr, timeout)}
	case resp == nil:
		return nil, upstreamErrorf("engine returned no response")
	}
	return resp, nil
}

func describeContextErr(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s: %w", timeout, err)
	}
	return err
}
