package gateway

import (
	"encoding/json"
	"errors"
)

// Content types produced by the shaper.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Reply is a shaped response ready to be written with status 200.
type Reply struct {
	ContentType string
	Body        []byte
}

type statusReply struct {
	StatusCode int `json:"status_code"`
}

type curlReply struct {
	Curl string `json:"curl"`
}

type envelopeReply struct {
	URL        string            `json:"url"`
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Shape reduces resp according to desc.Only. Unknown selectors fall
// through to the full envelope.
func Shape(resp *Response, desc *Descriptor) (*Reply, error) {
	if resp == nil {
		return nil, errors.New("no upstream response to shape")
	}

	var only Selector
	if desc != nil {
		only = desc.Only
	}

	switch only {
	case SelectBody:
		return &Reply{ContentType: ContentTypeText, Body: []byte(resp.Body)}, nil
	case SelectHeaders:
		return jsonReply(headerMap(resp.Headers))
	case SelectStatus:
		return jsonReply(statusReply{StatusCode: resp.StatusCode})
	case SelectCurl:
		return jsonReply(curlReply{Curl: CurlCommand(desc)})
	default:
		return jsonReply(envelopeReply{
			URL:        resp.URL,
			StatusCode: resp.StatusCode,
			Headers:    headerMap(resp.Headers),
			Body:       resp.Body,
		})
	}
}

func headerMap(headers map[string]string) map[string]string {
	if headers == nil {
		return map[string]string{}
	}
	return headers
}

func jsonReply(v any) (*Reply, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Reply{ContentType: ContentTypeJSON, Body: body}, nil
}
