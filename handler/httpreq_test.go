package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowdeck/flowdeck/types"
)

func httpTestHandler() *httpHandler {
	return &httpHandler{client: http.DefaultClient}
}

func TestHTTPHandlerJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":42}`))
	}))
	defer server.Close()

	node := makeNode("n1", "http", types.Data{"endpoint": server.URL})
	out, err := httpTestHandler().Execute(testCtx(), node, types.Data{"seed": true})
	assert.Nil(t, err)

	resp, exists := out.GetData("http_response")
	assert.True(t, exists)
	status, _ := resp.GetInt("status")
	assert.Equal(t, 200, status)
	endpoint, _ := resp.GetString("endpoint")
	assert.Equal(t, server.URL, endpoint)

	value, exists := out.Lookup("http_response.data.value")
	assert.True(t, exists)
	assert.Equal(t, float64(42), value)
}

func TestHTTPHandlerLegacyURLAliasAndPost(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		b := make([]byte, r.ContentLength)
		r.Body.Read(b)
		gotBody = string(b)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	node := makeNode("n1", "http", types.Data{
		"url":    server.URL,
		"method": "post",
		"body":   map[string]any{"k": "v"},
	})
	out, err := httpTestHandler().Execute(testCtx(), node, types.Data{})
	assert.Nil(t, err)
	assert.Equal(t, `{"k":"v"}`, gotBody)

	// non-JSON responses fall back to text
	result, exists := out.Get("n1_result")
	assert.True(t, exists)
	assert.Equal(t, "ok", result)
}

func TestHTTPHandlerMissingEndpoint(t *testing.T) {
	node := makeNode("n1", "http", types.Data{})
	_, err := httpTestHandler().Execute(testCtx(), node, types.Data{})
	assert.NotNil(t, err)
	assert.True(t, types.IsFatal(err))
	assert.Contains(t, err.Error(), "endpoint")
}

func TestHTTPHandlerBadScheme(t *testing.T) {
	node := makeNode("n1", "http", types.Data{"endpoint": "ftp://example.com"})
	_, err := httpTestHandler().Execute(testCtx(), node, types.Data{})
	assert.True(t, types.IsFatal(err))
}

func TestHTTPHandlerBadMethod(t *testing.T) {
	node := makeNode("n1", "http", types.Data{"endpoint": "https://example.com", "method": "BREW"})
	_, err := httpTestHandler().Execute(testCtx(), node, types.Data{})
	assert.True(t, types.IsFatal(err))
	assert.Contains(t, err.Error(), "method")
}

func TestHTTPHandlerUpstreamFailureIsRetriable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	node := makeNode("n1", "http", types.Data{"endpoint": server.URL})
	_, err := httpTestHandler().Execute(testCtx(), node, types.Data{})
	assert.NotNil(t, err)
	assert.True(t, types.IsRetry(err))
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPHandlerKeepsExistingContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	node := makeNode("n1", "http", types.Data{"endpoint": server.URL})
	in := types.Data{"earlier": "result"}
	out, err := httpTestHandler().Execute(testCtx(), node, in)
	assert.Nil(t, err)

	v, exists := out.Get("earlier")
	assert.True(t, exists)
	assert.Equal(t, "result", v)
	// input map untouched
	_, exists = in.Get("http_response")
	assert.False(t, exists)
}
