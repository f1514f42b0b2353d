package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
	"github.com/flowdeck/flowdeck/utils"
)

// extractHandler runs the file-content node: fetch a document by URL and
// put a bounded text preview into context. The full content deliberately
// never enters the context, so a long node chain cannot balloon the run's
// memory.
//
// Config:
// - fileUrl: string, required
type extractHandler struct {
	client       *http.Client
	previewLimit int
}

func (h *extractHandler) Execute(ctx types.Context, node *types.ResolvedNode, data types.Data) (types.Data, error) {
	fileURL, _ := node.Data.Config.GetString("fileUrl")
	if fileURL == "" {
		return nil, types.NewMissingFieldError(node.ID, "fileUrl")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, types.NewInvalidValueError(node.ID, "fileUrl", err.Error())
	}

	log.Debugf("%s extract node %s: fetching %s", ctx.RunID(), node.ID, fileURL)
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, types.NewRetryError(errors.Annotatef(err, "fetching %s", fileURL), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, types.NewUpstreamError(resp.StatusCode, string(raw))
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewRetryError(errors.Annotatef(err, "reading %s", fileURL), 0)
	}

	result := types.Data{
		"fileUrl":     fileURL,
		"textPreview": utils.Truncate(string(text), h.previewLimit),
		"textLength":  len(text),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	out := data.Clone()
	out.Set("pdf", result)
	out.Set(node.ID+"_pdf", result)
	return out, nil
}
