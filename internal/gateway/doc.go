// Package gateway implements the request-proxy pipeline behind
// POST /api/request: API key admission with a per-key sliding window,
// normalization of JSON and multipart payloads into a Descriptor, upload
// staging, dispatch of the outbound call on a bounded worker pool, and
// shaping of the upstream response into the caller-selected form.
//
// The outbound HTTP engine is an opaque collaborator described by the
// Engine interface; internal/upstream provides the production
// implementation.
package gateway
