package handler

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
	"github.com/flowdeck/flowdeck/utils"
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// httpHandler runs the HTTP request node.
//
// Config:
// - endpoint: string, required (legacy alias: url)
// - method: GET/POST/PUT/PATCH/DELETE, case-insensitive, default GET
// - body: any, JSON-encoded for POST/PUT/PATCH
// - headers: map[string]string
type httpHandler struct {
	client *http.Client
}

func (h *httpHandler) Execute(ctx types.Context, node *types.ResolvedNode, data types.Data) (types.Data, error) {
	cfg := node.Data.Config

	endpoint, _ := cfg.GetString("endpoint")
	if endpoint == "" {
		// older editor builds saved the endpoint under "url"
		endpoint, _ = cfg.GetString("url")
	}
	if endpoint == "" {
		return nil, types.NewMissingFieldError(node.ID, "endpoint")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, types.NewInvalidValueError(node.ID, "endpoint", "must start with http:// or https://")
	}

	method, _ := cfg.GetString("method")
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)
	if !allowedMethods[method] {
		return nil, types.NewInvalidValueError(node.ID, "method", "use GET, POST, PUT, PATCH or DELETE")
	}

	var bodyReader io.Reader
	if body, exists := cfg.Get("body"); exists && body != nil &&
		(method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch) {
		b, err := utils.Serialize(body)
		if err != nil {
			return nil, types.NewInvalidValueError(node.ID, "body", err.Error())
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, types.NewInvalidValueError(node.ID, "endpoint", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Flowdeck/1.0")
	if headers, exists := cfg.GetData("headers"); exists {
		for k := range headers {
			v, _ := headers.GetString(k)
			req.Header.Set(k, v)
		}
	}

	log.Debugf("%s http node %s: %s %s", ctx.RunID(), node.ID, method, endpoint)
	resp, err := h.client.Do(req)
	if err != nil {
		// network-level failure: worth another try
		return nil, types.NewRetryError(errors.Annotatef(err, "%s %s", method, endpoint), 0)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewRetryError(errors.Annotatef(err, "reading %s response", endpoint), 0)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, types.NewUpstreamError(resp.StatusCode, string(raw))
	}

	result := parseBody(resp.Header.Get("Content-Type"), raw)

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[strings.ToLower(name)] = resp.Header.Get(name)
	}

	out := data.Clone()
	out.Set(node.ID+"_result", result)
	out.Set("http_response", types.Data{
		"status":    resp.StatusCode,
		"headers":   headers,
		"data":      result,
		"endpoint":  endpoint,
		"fetchedAt": time.Now().UTC().Format(time.RFC3339),
	})
	return out, nil
}

// parseBody decodes JSON when the content type says so, otherwise keeps
// the body as text.
func parseBody(contentType string, raw []byte) any {
	if strings.Contains(contentType, "application/json") {
		var decoded any
		if err := utils.Unserialize(raw, &decoded); err == nil {
			return decoded
		}
	}
	return string(raw)
}
