package handler

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
)

// formHandler runs the form-trigger node. It normalizes a webhook payload
// out of context["initialData"]; when no real submission is there it
// substitutes a fixed test payload so a workflow can be exercised from
// the editor without wiring up a form first. It never fails.
type formHandler struct{}

func (h *formHandler) Execute(ctx types.Context, node *types.ResolvedNode, data types.Data) (types.Data, error) {
	formID, _ := node.Data.Config.GetString("formId")
	if formID == "" {
		formID = "test-form"
	}

	answers := h.submittedAnswers(data)
	if answers == nil {
		log.Debugf("%s form node %s: no submission in context, using test payload", ctx.RunID(), node.ID)
		answers = types.Data{
			"email":   "test@example.com",
			"name":    "Test User",
			"message": "Test submission",
		}
	}

	form := types.Data{
		"formId":    formID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"answers":   answers,
		"raw":       answers,
	}

	out := data.Clone()
	out.Set("google_form", form)
	// templates address submitted fields as {{trigger.<field>}}
	out.Set("trigger", answers)
	return out, nil
}

func (h *formHandler) submittedAnswers(data types.Data) types.Data {
	initial, exists := data.GetData("initialData")
	if !exists {
		return nil
	}
	if formData, exists := initial.GetData("formData"); exists && len(formData) > 0 {
		return formData
	}
	return nil
}
