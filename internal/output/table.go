package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// Format renders a result as a two-column table.
func (f *TableFormatter) Format(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 100},
	})

	for _, row := range rows(result) {
		t.AppendRow(table.Row{row[0], row[1]})
	}

	if result.HTTPStatus != 0 {
		t.AppendFooter(table.Row{"gateway", fmt.Sprintf("HTTP %d", result.HTTPStatus)})
	}
	return t.Render(), nil
}

// rows lists the populated fields in display order.
func rows(result *Result) [][2]string {
	var out [][2]string
	if result.Error != "" {
		out = append(out, [2]string{"Error", result.Error})
	}
	if result.URL != "" {
		out = append(out, [2]string{"URL", result.URL})
	}
	if result.StatusCode != 0 {
		out = append(out, [2]string{"Status", fmt.Sprintf("%d", result.StatusCode)})
	}
	for _, name := range sortedHeaderNames(result.Headers) {
		out = append(out, [2]string{"Header " + name, result.Headers[name]})
	}
	if result.Curl != "" {
		out = append(out, [2]string{"Curl", result.Curl})
	}
	if result.Body != "" {
		out = append(out, [2]string{"Body", bodyPreview(result.Body)})
	}
	return out
}
