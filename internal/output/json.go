package output

import (
	"encoding/json"
)

// JSONFormatter re-indents the reply when it is JSON.
type JSONFormatter struct {
	Indent bool
}

// Format renders the result as JSON.
func (f *JSONFormatter) Format(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	if json.Valid(result.Raw) && f.Indent {
		var v any
		if err := json.Unmarshal(result.Raw, &v); err != nil {
			return "", err
		}
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
