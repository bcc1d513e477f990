package errors

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToJSON(t *testing.T) {
	err := New(CodeNotFound, "resource not found")
	resp := ToJSON(err)

	require.NotNil(t, resp)
	require.Equal(t, "NOT_FOUND", resp.Code)
	require.Equal(t, "resource not found", resp.Message)
	require.Equal(t, "PERMANENT", resp.Classification)
	require.Equal(t, "info", resp.Severity)
	require.Equal(t, err.OccurredAt(), resp.OccurredAt)
	require.Nil(t, resp.Details)
}

func TestToJSON_StandardError(t *testing.T) {
	resp := ToJSON(stderrors.New("something went wrong"))

	require.Equal(t, "UNKNOWN", resp.Code)
	require.Equal(t, "something went wrong", resp.Message)
	require.Equal(t, "PERMANENT", resp.Classification)
}

func TestToJSON_Nil(t *testing.T) {
	require.Nil(t, ToJSON(nil))
}

func TestToJSON_DetailsNotEncodable(t *testing.T) {
	err := NewWithDetails(CodeUnknown, "bad details", map[string]any{"fn": func() {}})
	require.Nil(t, ToJSON(err).Details)

	err = NewWithDetails(CodeUnknown, "good details", map[string]any{"key": "app_theme"})
	require.Equal(t, map[string]any{"key": "app_theme"}, ToJSON(err).Details)
}

func TestMarshalJSON(t *testing.T) {
	err := New(CodeServer, "upstream failed")

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "SERVER_ERROR", decoded["code"])
	require.Equal(t, "RETRYABLE", decoded["classification"])
	require.Equal(t, "critical", decoded["severity"])
	require.NotContains(t, decoded, "details")
}
