// Package results normalizes sandbox execution output into a compact,
// prompt-safe summary: tables are truncated for display, large results
// are offloaded to the artifact store and replaced with download links,
// and error markers become explicit error statuses.
package results

import (
	"context"
	"fmt"

	"github.com/adam-setup/server/internal/dataset"
	"github.com/adam-setup/server/internal/sandbox"
	logx "github.com/adam-setup/server/pkg/logger"
)

// Result statuses surfaced to the response model.
const (
	StatusSuccess        = "success"
	StatusEmpty          = "empty"
	StatusError          = "error"
	StatusPartialSuccess = "partial_success"
)

// Display truncation bounds.
const (
	MaxDisplayRows    = 10
	MaxDisplayColumns = 10
)

// Link is a download link for an offloaded artifact.
type Link struct {
	Label string
	URL   string
}

// Processed is the normalized form of one result (or one member of a
// composite result).
type Processed struct {
	Status       string
	Label        string
	TotalRows    int
	TotalColumns int
	Display      string
	Truncated    bool
	ErrorDetails string
	UploadNote   string
	Links        []Link
	Items        []*Processed
}

// ArtifactStore persists full result tables and returns a download URL.
type ArtifactStore interface {
	Upload(ctx context.Context, t *dataset.Table, label string) (string, error)
}

// Processor normalizes sandbox results.
type Processor struct {
	store ArtifactStore
	// cellThreshold offloads tables whose cell count exceeds it.
	// Zero offloads every non-empty table, negative disables offload.
	cellThreshold int
}

// NewProcessor creates a Processor. store may be nil to disable offload.
func NewProcessor(store ArtifactStore, cellThreshold int) *Processor {
	return &Processor{store: store, cellThreshold: cellThreshold}
}

// Process normalizes a sandbox result under the given label.
func (p *Processor) Process(ctx context.Context, res *sandbox.Result, label string) *Processed {
	if res == nil {
		return &Processed{Status: StatusError, Label: label, ErrorDetails: "no result produced"}
	}

	switch res.Kind {
	case sandbox.KindTable:
		return p.processTable(ctx, res.Table, label)
	case sandbox.KindList:
		items := make([]*Processed, 0, len(res.Tables))
		for i, t := range res.Tables {
			items = append(items, p.processTable(ctx, t, fmt.Sprintf("%s_%d", label, i+1)))
		}
		return composite(label, items)
	case sandbox.KindNamed:
		items := make([]*Processed, 0, len(res.Named))
		for _, nt := range res.Named {
			items = append(items, p.processTable(ctx, nt.Table, nt.Name))
		}
		return composite(label, items)
	default:
		return &Processed{Status: StatusError, Label: label, ErrorDetails: "unrecognized result kind"}
	}
}

func (p *Processor) processTable(ctx context.Context, t *dataset.Table, label string) *Processed {
	if t == nil {
		return &Processed{Status: StatusError, Label: label, ErrorDetails: "no result produced"}
	}

	if dataset.IsErrorMarker(t) {
		details := ""
		if t.Len() > 0 {
			details = t.Row(0).Str("error")
		}
		return &Processed{Status: StatusError, Label: label, ErrorDetails: details}
	}

	out := &Processed{
		Status:       StatusSuccess,
		Label:        label,
		TotalRows:    t.Len(),
		TotalColumns: t.NumColumns(),
	}

	if t.Len() == 0 {
		out.Status = StatusEmpty
		out.Display = renderTable(t)
		return out
	}

	out.Display, out.Truncated = renderTruncated(t)

	if p.store != nil && p.cellThreshold >= 0 && t.CellCount() > p.cellThreshold {
		url, err := p.store.Upload(ctx, t, label)
		if err != nil {
			logx.Warn().Err(err).Str("label", label).Msg("Artifact upload failed")
			out.Status = StatusPartialSuccess
			out.UploadNote = "full result could not be stored, showing preview only"
		} else {
			out.Links = append(out.Links, Link{Label: label, URL: url})
		}
	}

	return out
}

// composite folds member statuses into a container. Severity order:
// error, then partial_success, then success; all-empty stays empty.
func composite(label string, items []*Processed) *Processed {
	out := &Processed{Status: StatusEmpty, Label: label, Items: items}
	for _, item := range items {
		out.Links = append(out.Links, item.Links...)
		switch item.Status {
		case StatusError:
			out.Status = StatusError
		case StatusPartialSuccess:
			if out.Status != StatusError {
				out.Status = StatusPartialSuccess
			}
		case StatusSuccess:
			if out.Status == StatusEmpty {
				out.Status = StatusSuccess
			}
		}
	}
	return out
}

// AllLinks returns the download links of a processed tree. Containers
// already aggregate member links at build time.
func (pr *Processed) AllLinks() []Link {
	return append([]Link(nil), pr.Links...)
}
