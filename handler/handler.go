package handler

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
)

// Handler executes one node: it gets the context accumulated so far and
// returns a new context (never the same map, mutated). An error aborts or
// retries the step depending on its classification (types.FatalError vs
// types.RetryError).
type Handler interface {
	Execute(ctx types.Context, node *types.ResolvedNode, data types.Data) (types.Data, error)
}

// Kind is the closed set of node kinds the engine knows how to run.
// Anything else dispatches to the passthrough handler.
type Kind int

const (
	KindUnknown Kind = iota
	KindStart
	KindForm
	KindHTTP
	KindPrompt
	KindExtract
	KindMessage
)

// KindOf maps a node's type tag to its Kind. Lookup is case-insensitive
// and accepts the legacy aliases the editor has shipped over time.
func KindOf(nodeType string) Kind {
	switch strings.ToLower(nodeType) {
	case "start", "manual", "trigger", "trigger.manual":
		return KindStart
	case "trigger.googleform", "googleform", "google-form":
		return KindForm
	case "http", "http.request", "httprequest":
		return KindHTTP
	case "llm.gemini", "gemini", "ai":
		return KindPrompt
	case "file.pdfreader":
		return KindExtract
	case "action.telegram":
		return KindMessage
	}
	return KindUnknown
}

// Deps is everything the built-in handlers need from the outside world.
type Deps struct {
	Client       *http.Client
	Generator    TextGenerator
	BotToken     string
	PreviewLimit int
}

// Registry maps node kinds to handlers. Built once and handed to the
// engine; nothing global, so tests can swap in fakes.
type Registry struct {
	handlers map[Kind]Handler
	fallback Handler
}

func NewRegistry(deps Deps) *Registry {
	if deps.Client == nil {
		deps.Client = http.DefaultClient
	}
	if deps.PreviewLimit <= 0 {
		deps.PreviewLimit = 4000
	}
	return &Registry{
		handlers: map[Kind]Handler{
			KindStart:   &startHandler{},
			KindForm:    &formHandler{},
			KindHTTP:    &httpHandler{client: deps.Client},
			KindPrompt:  &promptHandler{generator: deps.Generator},
			KindExtract: &extractHandler{client: deps.Client, previewLimit: deps.PreviewLimit},
			KindMessage: &messageHandler{client: deps.Client, botToken: deps.BotToken},
		},
		fallback: &passthroughHandler{},
	}
}

// Register replaces the handler for a kind. Test seam, mostly.
func (r *Registry) Register(kind Kind, h Handler) {
	if kind == KindUnknown {
		r.fallback = h
		return
	}
	r.handlers[kind] = h
}

// Resolve never fails: an unrecognized type gets the passthrough handler,
// so a node the server does not understand cannot take a run down.
func (r *Registry) Resolve(nodeType string) Handler {
	kind := KindOf(nodeType)
	if h, exists := r.handlers[kind]; exists {
		return h
	}
	return r.fallback
}

type passthroughHandler struct{}

func (h *passthroughHandler) Execute(ctx types.Context, node *types.ResolvedNode, data types.Data) (types.Data, error) {
	log.Debugf("%s passthrough: %s(%s)", ctx.RunID(), node.EffectiveType(), node.ID)
	return data, nil
}
