package wolfram_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aretw0/notasolver/pkg/adapters/wolfram"
	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_QueryURL(t *testing.T) {
	client := wolfram.New("APPID-1")
	raw, err := client.QueryURL(`\frac{d}{dx} x^2 + 1`)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "api.wolframalpha.com", u.Host)
	assert.Equal(t, "/v2/query", u.Path)

	q := u.Query()
	assert.Equal(t, "APPID-1", q.Get("appid"))
	assert.Equal(t, `\frac{d}{dx} x^2 + 1`, q.Get("input"))
	assert.Equal(t, "Step-by-step solution", q.Get("podstate"))
	assert.Equal(t, "image", q.Get("format"))
	assert.Equal(t, "2.0", q.Get("mag"))
	assert.Equal(t, "json", q.Get("output"))
}

func TestClient_QueryURL_Presentation(t *testing.T) {
	client := wolfram.New("id", wolfram.WithPresentation("", "plaintext", "1.0"))
	raw, err := client.QueryURL("x")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Step-by-step solution", u.Query().Get("podstate"))
	assert.Equal(t, "plaintext", u.Query().Get("format"))
	assert.Equal(t, "1.0", u.Query().Get("mag"))
}

func TestClient_InputEncoding(t *testing.T) {
	client := wolfram.New("id")
	for _, in := range []string{"", "   ", string([]byte{0xff, 0xfe})} {
		_, err := client.Solve(context.Background(), in)
		assert.ErrorIs(t, err, domain.ErrSolveInputEncoding, "%q", in)
	}
}

func TestClient_Solve_UnwrapsQueryResult(t *testing.T) {
	var gotInput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		gotInput = r.URL.Query().Get("input")
		_, _ = w.Write([]byte(`{"queryresult":{"success":true,"error":false,"inputstring":"x^2","pods":[]}}`))
	}))
	defer srv.Close()

	client := wolfram.New("id", wolfram.WithURL(srv.URL))
	doc, err := client.Solve(context.Background(), "x^2")
	require.NoError(t, err)
	assert.Equal(t, "x^2", gotInput)
	assert.Equal(t, true, doc["success"])
	assert.Equal(t, "x^2", doc["inputstring"])
}

func TestClient_Solve_FlatDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"error":false,"pods":[]}`))
	}))
	defer srv.Close()

	doc, err := wolfram.New("id", wolfram.WithURL(srv.URL)).Solve(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, false, doc["error"])
}

func TestClient_Solve_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusBadGateway, "bad gateway", domain.ErrSolveTransport},
		{"forbidden", http.StatusForbidden, `Error 1: Invalid appid`, domain.ErrSolveTransport},
		{"not json", http.StatusOK, "<queryresult/>", domain.ErrSolveDecoding},
		{"json array", http.StatusOK, "[1,2]", domain.ErrSolveDecoding},
		{"json null", http.StatusOK, "null", domain.ErrSolveDecoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := wolfram.New("id", wolfram.WithURL(srv.URL)).Solve(context.Background(), "x")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
