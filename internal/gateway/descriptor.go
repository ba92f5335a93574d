package gateway

import (
	"errors"
	"strings"
)

// Method is one of the four outbound verbs the gateway forwards.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// ParseMethod upper-cases value and validates it. An empty value defaults
// to GET.
func ParseMethod(value string) (Method, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" {
		return MethodGet, nil
	}
	switch Method(normalized) {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return Method(normalized), nil
	default:
		return "", ErrMalformedRequest
	}
}

// Selector picks the reduced response representation. Any value outside
// the four named selectors yields the full envelope.
type Selector string

const (
	SelectBody    Selector = "body"
	SelectHeaders Selector = "headers"
	SelectStatus  Selector = "status"
	SelectCurl    Selector = "curl"
)

// Descriptor is the canonical outbound request, independent of whether it
// arrived as JSON or multipart.
type Descriptor struct {
	URL     string
	Method  Method
	Headers Headers
	Data    []byte
	Only    Selector
	File    *StagedFile
}

// Validate enforces the invariants every descriptor must hold before
// dispatch.
func (d *Descriptor) Validate() error {
	if d == nil || strings.TrimSpace(d.URL) == "" {
		return ErrMalformedRequest
	}
	switch d.Method {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return nil
	default:
		return ErrMalformedRequest
	}
}

// Cleanup releases the staged upload, if any.
func (d *Descriptor) Cleanup() error {
	if d == nil || d.File == nil {
		return nil
	}
	return d.File.Cleanup()
}

var (
	// ErrMalformedRequest covers a missing url, an unsupported method, and
	// payloads that cannot be parsed.
	ErrMalformedRequest = errors.New("invalid url or method")

	// ErrUnreadableBody marks payloads that could not be decoded at all.
	ErrUnreadableBody = errors.New("invalid request body")
)

// IsMalformed reports whether err should be surfaced as a 400.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedRequest) || errors.Is(err, ErrUnreadableBody)
}
