package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// maxFieldBytes bounds each non-file multipart field.
const maxFieldBytes = 1 << 20

// formFields are the multipart text parts the normalizer reads; any other
// part is drained and dropped.
var formFields = map[string]bool{"url": true, "method": true, "data": true, "only": true}

// DefaultMaxBodyBytes bounds JSON payloads.
const DefaultMaxBodyBytes = 10 << 20

// Normalizer turns an inbound /api/request payload into a Descriptor.
type Normalizer struct {
	Stager *Stager

	// MaxBodyBytes bounds JSON payloads; zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

type jsonPayload struct {
	URL     *string         `json:"url"`
	Method  *string         `json:"method"`
	Headers Headers         `json:"headers"`
	Data    json.RawMessage `json:"data"`
	Only    *string         `json:"only"`
}

// Normalize parses r as multipart/form-data when declared so, and as JSON
// otherwise. The returned descriptor has passed Validate. On error any file
// staged along the way has already been removed.
func (n *Normalizer) Normalize(r *http.Request) (*Descriptor, error) {
	if isMultipart(r.Header.Get("Content-Type")) {
		return n.fromMultipart(r)
	}
	return n.fromJSON(r)
}

func (n *Normalizer) fromJSON(r *http.Request) (*Descriptor, error) {
	limit := n.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableBody, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrUnreadableBody, limit)
	}

	var payload jsonPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableBody, err)
	}

	desc := &Descriptor{
		URL:     deref(payload.URL),
		Headers: payload.Headers,
		Only:    Selector(deref(payload.Only)),
	}

	method, err := ParseMethod(deref(payload.Method))
	if err != nil {
		return nil, err
	}
	desc.Method = method

	if err := desc.Validate(); err != nil {
		return nil, err
	}

	data, form, err := decodeData(payload.Data)
	if err != nil {
		return nil, err
	}
	desc.Data = data
	if form {
		if _, ok := desc.Headers.Get("Content-Type"); !ok {
			desc.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	return desc, nil
}

// decodeData accepts a JSON string (sent verbatim) or an object of scalars
// (form-encoded, the way python requests treats a dict).
func decodeData(raw json.RawMessage) ([]byte, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, false, fmt.Errorf("%w: data: %v", ErrUnreadableBody, err)
		}
		return []byte(s), false, nil
	case '{':
		var fields []Header
		err := decodeOrderedObject(trimmed, func(name, value string) {
			for i := range fields {
				if fields[i].Name == name {
					fields[i].Value = value
					return
				}
			}
			fields = append(fields, Header{Name: name, Value: value})
		})
		if err != nil {
			return nil, false, fmt.Errorf("%w: data: %v", ErrUnreadableBody, err)
		}
		return []byte(encodeForm(fields)), true, nil
	default:
		return nil, false, fmt.Errorf("%w: data must be a string or an object", ErrUnreadableBody)
	}
}

func encodeForm(fields []Header) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, url.QueryEscape(field.Name)+"="+url.QueryEscape(field.Value))
	}
	return strings.Join(parts, "&")
}

func (n *Normalizer) fromMultipart(r *http.Request) (desc *Descriptor, err error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableBody, err)
	}

	var (
		fields = make(map[string]string)
		staged *StagedFile
	)
	defer func() {
		if err != nil && staged != nil {
			_ = staged.Cleanup()
		}
	}()

	for {
		part, perr := reader.NextPart()
		if errors.Is(perr, io.EOF) {
			break
		}
		if perr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableBody, perr)
		}

		name := part.FormName()
		switch {
		case name == "file" && part.FileName() != "" && staged == nil:
			if n.Stager == nil {
				_ = part.Close()
				return nil, errors.New("upload staging is not configured")
			}
			staged, err = n.Stager.Stage(part, part.FileName())
			_ = part.Close()
			if err != nil {
				if errors.Is(err, ErrUploadTooLarge) {
					return nil, fmt.Errorf("%w: %v", ErrUnreadableBody, err)
				}
				return nil, err
			}
		case formFields[name] && part.FileName() == "":
			value, rerr := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			_ = part.Close()
			if rerr != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnreadableBody, rerr)
			}
			if len(value) > maxFieldBytes {
				return nil, fmt.Errorf("%w: field %q too large", ErrUnreadableBody, name)
			}
			if _, seen := fields[name]; !seen {
				fields[name] = string(value)
			}
		default:
			_, _ = io.Copy(io.Discard, part)
			_ = part.Close()
		}
	}

	desc = &Descriptor{
		URL:  fields["url"],
		Only: Selector(fields["only"]),
		File: staged,
	}

	method, err := ParseMethod(fields["method"])
	if err != nil {
		return nil, err
	}
	desc.Method = method

	if data, ok := fields["data"]; ok && data != "" {
		desc.Data = []byte(data)
	}

	if err = desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

func isMultipart(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "multipart/form-data")
	}
	return mediaType == "multipart/form-data"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
