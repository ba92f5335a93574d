package upstream

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"sort"

	"github.com/yaelahrip/botasaurus-requests/internal/gateway"
)

// multipartBody encodes data as form fields followed by the staged file
// under the field name "file".
func multipartBody(data []byte, file *gateway.StagedFile) (io.Reader, string, error) {
	fields, err := url.ParseQuery(string(data))
	if err != nil {
		return nil, "", fmt.Errorf("parse form data: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range fields[name] {
			if err := writer.WriteField(name, value); err != nil {
				return nil, "", fmt.Errorf("write form field: %w", err)
			}
		}
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open staged file: %w", err)
	}
	defer src.Close()

	part, err := writer.CreateFormFile("file", file.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("copy staged file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart body: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
