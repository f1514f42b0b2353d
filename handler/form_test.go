package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowdeck/flowdeck/types"
)

func TestFormHandlerRealSubmission(t *testing.T) {
	h := &formHandler{}

	node := makeNode("n1", "trigger.googleform", types.Data{"formId": "form-7"})
	data := types.Data{
		"initialData": map[string]any{
			"formData": map[string]any{"email": "real@user.dev", "answer": "yes"},
		},
	}

	out, err := h.Execute(testCtx(), node, data)
	assert.Nil(t, err)

	assert.Equal(t, "form-7", out.LookupString("google_form.formId"))
	assert.Equal(t, "real@user.dev", out.LookupString("google_form.answers.email"))
	// submitted fields are addressable as {{trigger.<field>}}
	assert.Equal(t, "yes", out.LookupString("trigger.answer"))
	assert.NotEmpty(t, out.LookupString("google_form.timestamp"))
}

func TestFormHandlerFallsBackToTestPayload(t *testing.T) {
	h := &formHandler{}

	out, err := h.Execute(testCtx(), makeNode("n1", "googleform", types.Data{}), types.Data{})
	assert.Nil(t, err)

	// never fails on missing data; substitutes the documented test payload
	assert.Equal(t, "test-form", out.LookupString("google_form.formId"))
	assert.Equal(t, "test@example.com", out.LookupString("trigger.email"))
}
