package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// Format renders a result as Markdown.
func (f *MarkdownFormatter) Format(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	if result.HTTPStatus != 0 {
		sb.WriteString(fmt.Sprintf("## Gateway reply (HTTP %d)\n\n", result.HTTPStatus))
	}
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	for _, row := range rows(result) {
		if row[0] == "Body" {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", escapeMarkdownCell(row[0]), escapeMarkdownCell(row[1])))
	}

	if result.Body != "" {
		sb.WriteString("\n```\n")
		sb.WriteString(bodyPreview(result.Body))
		sb.WriteString("\n```\n")
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}
