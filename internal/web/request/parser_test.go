package request

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func newJSONRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestParseJSON(t *testing.T) {
	var got loginBody
	err := NewParser().ParseJSON(httptest.NewRecorder(), newJSONRequest(`{"email":"a@b.co","password":"secret"}`), &got)
	require.NoError(t, err)
	assert.Equal(t, loginBody{Email: "a@b.co", Password: "secret"}, got)
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name    string
		parser  *Parser
		body    string
		wantErr string
	}{
		{"empty", NewParser(), ``, "request body is empty"},
		{"syntax", NewParser(), `{"email":`, "invalid JSON"},
		{"type", NewParser(), `{"email": 5}`, `invalid value for field "email"`},
		{"unknown field", NewParser(), `{"email":"a@b.co","admin":true}`, `unknown field "admin"`},
		{"too large", NewParser().WithMaxSize(10), `{"email":"aaaaaaaaaaaaaaaaaaaa"}`, "exceeds 10 bytes"},
		{"two objects", NewParser(), `{} {}`, "multiple JSON objects"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got loginBody
			err := tt.parser.ParseJSON(httptest.NewRecorder(), newJSONRequest(tt.body), &got)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseJSONLenient(t *testing.T) {
	var got loginBody
	err := NewParser().Lenient().ParseJSON(httptest.NewRecorder(), newJSONRequest(`{"email":"a@b.co","_id":"x"}`), &got)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", got.Email)
}

func TestParseJSONContentType(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "text/plain")
	var got loginBody
	err := NewParser().ParseJSON(httptest.NewRecorder(), r, &got)
	assert.ErrorContains(t, err, "unsupported content type")
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=500&active=true&bad=x", nil)

	n, err := QueryInt(r, "limit", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	n, err = QueryInt(r, "missing", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = QueryInt(r, "bad", 10, 1, 100)
	assert.Error(t, err)

	b, err := QueryBool(r, "active")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, *b)

	b, err = QueryBool(r, "missing")
	require.NoError(t, err)
	assert.Nil(t, b)
}
