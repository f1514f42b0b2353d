package webhook

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"github.com/flowdeck/flowdeck/types"
	"github.com/flowdeck/flowdeck/utils"
)

type fakeTrigger struct {
	workflowID string
	userID     string
	payload    types.Data
	err        error
}

func (f *fakeTrigger) Trigger(workflowID, userID string, payload types.Data) (string, error) {
	f.workflowID = workflowID
	f.userID = userID
	f.payload = payload
	if f.err != nil {
		return "", f.err
	}
	return "run-abc", nil
}

func TestNormalizeFormPayload(t *testing.T) {
	clean := NormalizeFormPayload(map[string]any{
		"entry.1001": "alice@example.com",
		"entry.1002": "hello",
		"fvv":        "1",
		"draft":      "[]",
	})
	assert.Equal(t, types.Data{
		"1001": "alice@example.com",
		"1002": "hello",
	}, clean)
}

func TestNormalizeFormPayloadEmpty(t *testing.T) {
	assert.Equal(t, types.Data{}, NormalizeFormPayload(map[string]any{"other": 1}))
	assert.Equal(t, types.Data{}, NormalizeFormPayload(nil))
}

func TestWebhookFormEncoded(t *testing.T) {
	trigger := &fakeTrigger{}
	h := NewHandler(trigger)

	form := url.Values{}
	form.Set("entry.1001", "alice@example.com")
	form.Set("other", "noise")

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/google-form/wf-42", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wf-42", trigger.workflowID)
	assert.Equal(t, FormTriggerUser, trigger.userID)
	assert.Equal(t, "google-form", trigger.payload.LookupString("trigger"))
	assert.Equal(t, "alice@example.com", trigger.payload.LookupString("formData.1001"))
	_, exists := trigger.payload.Lookup("formData.other")
	assert.False(t, exists)

	var body map[string]any
	assert.Nil(t, utils.Unserialize(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["received"])
	assert.Equal(t, "run-abc", body["runId"])
}

func TestWebhookJSONBody(t *testing.T) {
	trigger := &fakeTrigger{}
	h := NewHandler(trigger)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/google-form/wf-42",
		strings.NewReader(`{"entry.1001":"bob"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", trigger.payload.LookupString("formData.1001"))
	assert.NotEmpty(t, trigger.payload.LookupString("timestamp"))
}

func TestWebhookRejectsGet(t *testing.T) {
	h := NewHandler(&fakeTrigger{})

	req := httptest.NewRequest(http.MethodGet, "/api/webhooks/google-form/wf-42", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhookRejectsBadJSON(t *testing.T) {
	h := NewHandler(&fakeTrigger{})

	req := httptest.NewRequest(http.MethodPost, "/wf-42", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookTriggerFailure(t *testing.T) {
	h := NewHandler(&fakeTrigger{err: errors.New("queue closed")})

	req := httptest.NewRequest(http.MethodPost, "/wf-42", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
