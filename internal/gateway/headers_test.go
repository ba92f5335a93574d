package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeadersUnmarshalKeepsOrder(t *testing.T) {
	var h Headers
	err := json.Unmarshal([]byte(`{"X-B":"2","A":"1","X-Num":42,"X-Flag":true,"X-B":"3"}`), &h)
	require.NoError(t, err)

	require.Equal(t, []string{"X-B", "A", "X-Num", "X-Flag"}, h.Names())
	value, ok := h.Get("X-B")
	require.True(t, ok)
	require.Equal(t, "3", value)

	value, _ = h.Get("X-Num")
	require.Equal(t, "42", value)
}

func TestHeadersUnmarshalRejectsNonObjects(t *testing.T) {
	var h Headers
	require.Error(t, json.Unmarshal([]byte(`["a"]`), &h))
	require.Error(t, json.Unmarshal([]byte(`{"a":{"b":1}}`), &h))
	require.NoError(t, json.Unmarshal([]byte(`null`), &h))
	require.Empty(t, h)
}

func TestHeadersMarshalInOrder(t *testing.T) {
	h := Headers{{Name: "Z", Value: "1"}, {Name: "A", Value: "\"q\""}}
	data, err := json.Marshal(h)
	require.NoError(t, err)
	require.Equal(t, `{"Z":"1","A":"\"q\""}`, string(data))
}

func TestHeadersSetAndGetIgnoreCase(t *testing.T) {
	var h Headers
	h.Set("Content-Type", "text/plain")
	h.Set("X-Id", "1")
	h.Set("content-type", "application/json")

	require.Equal(t, Headers{{Name: "content-type", Value: "application/json"}, {Name: "X-Id", Value: "1"}}, h)

	value, ok := h.Get("CONTENT-TYPE")
	require.True(t, ok)
	require.Equal(t, "application/json", value)

	_, ok = h.Get("Accept")
	require.False(t, ok)
}
