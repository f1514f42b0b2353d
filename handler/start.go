package handler

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
)

// startHandler runs the manual trigger node. It only stamps run metadata
// into the context; it has no required input and never fails.
type startHandler struct{}

func (h *startHandler) Execute(ctx types.Context, node *types.ResolvedNode, data types.Data) (types.Data, error) {
	log.Debugf("%s start node executed: %s", ctx.RunID(), node.ID)

	initial, _ := data.GetData("initial")
	initial = initial.Merge(types.Data{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"startNodeId": node.ID,
	})

	out := data.Clone()
	out.Set("initial", initial)
	return out, nil
}
