package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postQuery(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery_NodeSet(t *testing.T) {
	h := New().Router()

	rec := postQuery(t, h, `{
		"document": "<order><line qty=\"2\"/><line qty=\"3\"/></order>",
		"expression": "//line/@qty"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "node-set", resp.Type)
	assert.Equal(t, []string{`qty="2"`, `qty="3"`}, resp.Results)
}

func TestHandleQuery_Number(t *testing.T) {
	h := New().Router()

	rec := postQuery(t, h, `{
		"document": "<order><line qty=\"2\"/><line qty=\"3\"/></order>",
		"expression": "sum(//line/@qty)"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "number", resp.Type)
	assert.Equal(t, []string{"5"}, resp.Results)
}

func TestHandleQuery_Namespaces(t *testing.T) {
	h := New().Router()

	rec := postQuery(t, h, `{
		"document": "<f xmlns:a=\"urn:x\"><a:t>hi</a:t></f>",
		"expression": "string(//a:t)",
		"namespaces": {"a": "urn:x"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "string", resp.Type)
	assert.Equal(t, []string{"hi"}, resp.Results)
}

func TestHandleQuery_HTML(t *testing.T) {
	h := New().Router()

	rec := postQuery(t, h, `{
		"document": "<p>hello <B>world</B>",
		"html": true,
		"expression": "string(//b)"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"world"}, resp.Results)
}

func TestHandleQuery_Errors(t *testing.T) {
	h := New().Router()

	tests := []struct {
		name string
		body string
		code string
	}{
		{
			name: "syntax error",
			body: `{"document": "<a/>", "expression": "//a["}`,
			code: "xpath-syntax",
		},
		{
			name: "unbound prefix",
			body: `{"document": "<a/>", "expression": "//x:a"}`,
			code: "xpath-unbound-prefix",
		},
		{
			name: "malformed document",
			body: `{"document": "<a><b></a>", "expression": "//a"}`,
			code: "xml-parse-error",
		},
		{
			name: "missing expression",
			body: `{"document": "<a/>"}`,
		},
		{
			name: "missing document",
			body: `{"expression": "//a"}`,
		},
		{
			name: "invalid JSON",
			body: `{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postQuery(t, h, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestHandleQuery_BodyLimit(t *testing.T) {
	h := New(WithMaxBodyBytes(64)).Router()

	rec := postQuery(t, h, `{"document": "<a>`+strings.Repeat("x", 200)+`</a>", "expression": "//a"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuery_LogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := New(WithLogger(zerolog.New(&buf))).Router()

	postQuery(t, h, `{"document": "<a/>", "expression": "//a["}`)

	var entry struct {
		RequestID string `json:"request_id"`
		Code      string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotEmpty(t, entry.RequestID)
	assert.Equal(t, "xpath-syntax", entry.Code)
}

func TestHealthz(t *testing.T) {
	h := New().Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := New().Router()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
