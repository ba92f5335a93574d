package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// CurlRequest is a request recovered from a curl command line.
type CurlRequest struct {
	Method  Method
	URL     string
	Headers Headers
	Data    string

	// File is the local path given as -F file=@path.
	File string
}

// ErrNotCurl is returned when a command line does not start with curl.
var ErrNotCurl = errors.New("not a curl command")

// ParseCurl reads the subset of curl produced by CurlCommand: -X, -H,
// --data and its variants, -F file=@path, and a single url. Without -X the
// method is POST when a body or file is present and GET otherwise.
func ParseCurl(command string) (*CurlRequest, error) {
	args, err := shellquote.Split(strings.TrimSpace(command))
	if err != nil {
		return nil, fmt.Errorf("split curl command: %w", err)
	}
	if len(args) == 0 || args[0] != "curl" {
		return nil, ErrNotCurl
	}

	req := &CurlRequest{}
	next := func(i int, flag string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("flag %s needs a value", flag)
		}
		return args[i+1], nil
	}

	for i := 1; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-X", "--request":
			value, err := next(i, arg)
			if err != nil {
				return nil, err
			}
			method, err := ParseMethod(value)
			if err != nil {
				return nil, fmt.Errorf("unsupported method %q", value)
			}
			req.Method = method
			i++
		case "-H", "--header":
			value, err := next(i, arg)
			if err != nil {
				return nil, err
			}
			name, val, ok := strings.Cut(value, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("malformed header %q", value)
			}
			req.Headers.Set(strings.TrimSpace(name), strings.TrimPrefix(val, " "))
			i++
		case "-d", "--data", "--data-raw", "--data-binary":
			value, err := next(i, arg)
			if err != nil {
				return nil, err
			}
			if req.Data != "" {
				req.Data += "&"
			}
			req.Data += value
			i++
		case "-F", "--form":
			value, err := next(i, arg)
			if err != nil {
				return nil, err
			}
			name, path, ok := strings.Cut(value, "=@")
			if !ok || name != "file" || path == "" {
				return nil, fmt.Errorf("only file=@path form fields are supported, got %q", value)
			}
			req.File = path
			i++
		case "--url":
			value, err := next(i, arg)
			if err != nil {
				return nil, err
			}
			if err := req.setURL(value); err != nil {
				return nil, err
			}
			i++
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unsupported curl flag %s", arg)
			}
			if err := req.setURL(arg); err != nil {
				return nil, err
			}
		}
	}

	if req.URL == "" {
		return nil, errors.New("curl command has no url")
	}
	if req.Method == "" {
		req.Method = MethodGet
		if req.Data != "" || req.File != "" {
			req.Method = MethodPost
		}
	}
	return req, nil
}

func (c *CurlRequest) setURL(value string) error {
	if c.URL != "" {
		return fmt.Errorf("curl command has more than one url")
	}
	c.URL = value
	return nil
}
