package gateway

import (
	"context"
	"fmt"
)

// Call is what the engine receives for one outbound request.
type Call struct {
	URL     string
	Headers Headers
	Data    []byte
	File    *StagedFile
}

// Response is the upstream reply as reported by the engine. It is treated
// as immutable once returned.
type Response struct {
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Engine is the anti-bot HTTP client, one operation per verb. Its
// transport and fingerprinting behavior is opaque to the gateway.
type Engine interface {
	Get(ctx context.Context, call Call) (*Response, error)
	Post(ctx context.Context, call Call) (*Response, error)
	Put(ctx context.Context, call Call) (*Response, error)
	Delete(ctx context.Context, call Call) (*Response, error)
}

// UpstreamError wraps any failure raised while the engine handled a call.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	if e == nil || e.Err == nil {
		return "upstream request failed"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func upstreamErrorf(format string, args ...any) *UpstreamError {
	return &UpstreamError{Err: fmt.Errorf(format, args...)}
}
