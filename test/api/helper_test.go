package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestResponse is the decoded response envelope.
type TestResponse struct {
	StatusCode int                    `json:"-"`
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
}

func (r TestResponse) Object(t *testing.T) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(r.Data, &out))
	return out
}

func (r TestResponse) List(t *testing.T) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(r.Data, &out))
	return out
}

func (r TestResponse) GetString(t *testing.T, key string) string {
	t.Helper()
	v, _ := r.Object(t)[key].(string)
	return v
}

func makeRequest(t *testing.T, method, path string, body interface{}, token string) TestResponse {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := TestResponse{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), fmt.Sprintf("body: %s", raw))
	}
	return out
}
