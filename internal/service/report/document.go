package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/fsutil"
)

// DocumentMeta describes where a saved answer came from.
type DocumentMeta struct {
	Query          string
	ConversationID string
	Provider       string
	Model          string
	GeneratedAt    time.Time
}

// Document renders a standalone markdown file: frontmatter, the query as
// title, then the composed answer.
func Document(r core.Result, meta DocumentMeta) (string, error) {
	fm := NewFrontmatter()
	fm.Set("type", "travel_plan")
	fm.Set("status", string(r.Status))
	if meta.ConversationID != "" {
		fm.Set("conversation_id", meta.ConversationID)
	}
	if meta.Provider != "" {
		fm.Set("provider", meta.Provider)
	}
	if meta.Model != "" {
		fm.Set("model", meta.Model)
	}
	if !meta.GeneratedAt.IsZero() {
		fm.Set("generated_at", meta.GeneratedAt.UTC().Format(time.RFC3339))
	}
	header, err := fm.Render()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("# ")
	sb.WriteString(title(meta.Query))
	sb.WriteString("\n\n")
	sb.WriteString(Compose(r).Markdown)
	sb.WriteString("\n")
	return sb.String(), nil
}

// WriteDocument renders the document and writes it atomically to path.
func WriteDocument(path string, r core.Result, meta DocumentMeta) error {
	doc, err := Document(r, meta)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

func title(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if q == "" {
		return "Travel Plan"
	}
	return q
}
