package handler

import (
	"regexp"
	"strings"

	"github.com/flowdeck/flowdeck/types"
)

var templateToken = regexp.MustCompile(`{{([^}]+)}}`)

// Render substitutes {{path.to.value}} tokens by dotted lookup into the
// context. A path that resolves to nothing becomes the empty string;
// templating never fails a step on its own.
func Render(template string, data types.Data) string {
	if template == "" {
		return ""
	}
	return templateToken.ReplaceAllStringFunc(template, func(token string) string {
		path := strings.TrimSpace(token[2 : len(token)-2])
		return data.LookupString(path)
	})
}
