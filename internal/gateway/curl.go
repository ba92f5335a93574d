package gateway

import (
	"strings"
)

// CurlCommand reconstructs the outbound request as a curl command line:
// method flag, one -H per header in order, --data when a body was sent,
// -F for the uploaded file, and the url last. Quoted arguments use shell
// double-quote escaping so the line can be pasted into a shell or split
// back into arguments.
func CurlCommand(desc *Descriptor) string {
	if desc == nil {
		return "curl"
	}

	method := desc.Method
	if method == "" {
		method = MethodGet
	}

	parts := []string{"curl", "-X", string(method)}
	for _, header := range desc.Headers {
		parts = append(parts, "-H", doubleQuote(header.Name+": "+header.Value))
	}
	if len(desc.Data) > 0 {
		parts = append(parts, "--data", doubleQuote(string(desc.Data)))
	}
	if desc.File != nil {
		parts = append(parts, "-F", doubleQuote("file=@"+desc.File.Filename))
	}
	parts = append(parts, desc.URL)

	return strings.Join(parts, " ")
}

var doubleQuoteEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"$", `\$`,
	"`", "\\`",
)

func doubleQuote(s string) string {
	return `"` + doubleQuoteEscaper.Replace(s) + `"`
}
