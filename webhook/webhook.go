package webhook

import (
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
	"github.com/flowdeck/flowdeck/utils"
)

// Trigger is the slice of the Dispatcher the webhook needs.
type Trigger interface {
	Trigger(workflowID, userID string, payload types.Data) (string, error)
}

// form webhooks carry no session; runs they start are attributed to a
// reserved owner id
const FormTriggerUser = "google-form-trigger"

// NormalizeFormPayload flattens the `entry.<id>` keys a form webhook
// posts into a plain {<id>: value} map. Keys without the prefix are
// dropped.
func NormalizeFormPayload(raw map[string]any) types.Data {
	clean := make(types.Data)
	for key, value := range raw {
		if id, found := strings.CutPrefix(key, "entry."); found {
			clean[id] = value
		}
	}
	return clean
}

// Handler ingests form webhooks: POST <prefix>/{workflowID} with either
// a form-encoded or a JSON body. The body is normalized and the workflow
// triggered asynchronously; the response only acknowledges receipt.
type Handler struct {
	dispatcher Trigger
}

func NewHandler(dispatcher Trigger) *Handler {
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	workflowID := strings.Trim(r.URL.Path, "/")
	if i := strings.LastIndex(workflowID, "/"); i >= 0 {
		workflowID = workflowID[i+1:]
	}
	if workflowID == "" {
		http.Error(w, "missing workflow id", http.StatusBadRequest)
		return
	}

	raw, err := decodeBody(r)
	if err != nil {
		log.Warnf("webhook for %s: bad body: %v", workflowID, err)
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	payload := types.Data{
		"trigger":   "google-form",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"formData":  map[string]any(NormalizeFormPayload(raw)),
	}

	runID, err := h.dispatcher.Trigger(workflowID, FormTriggerUser, payload)
	if err != nil {
		log.Errorf("webhook for %s: trigger failed: %v", workflowID, err)
		http.Error(w, "trigger failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("webhook accepted for workflow %s, run %s", workflowID, runID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	body, _ := utils.Serialize(map[string]any{"received": true, "runId": runID})
	w.Write(body)
}

func decodeBody(r *http.Request) (map[string]any, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.Contains(contentType, "application/json") {
		raw := make(map[string]any)
		if err := utils.UnserializeReader(r.Body, &raw); err != nil {
			return nil, errors.Trace(err)
		}
		return raw, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, errors.Trace(err)
	}
	raw := make(map[string]any, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) == 1 {
			raw[key] = values[0]
		} else {
			raw[key] = values
		}
	}
	return raw, nil
}
