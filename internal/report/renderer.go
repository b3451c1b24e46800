package report

import (
	"time"

	"github.com/JonMunkholm/inputsheet/internal/core"
)

// Renderer lays out and encodes reports. It satisfies core.ReportRenderer.
type Renderer struct {
	enc Encoder
	loc *time.Location
}

// NewRenderer returns a renderer that formats footer timestamps in loc and
// draws text with the font at fontPath (empty for the built-in font).
func NewRenderer(fontPath string, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{enc: Encoder{FontPath: fontPath}, loc: loc}
}

// RenderItem returns the single-item PDF for itemAID.
func (r *Renderer) RenderItem(schema core.Schema, records []core.Record, itemAID string) ([]byte, error) {
	doc, err := LayoutItem(schema, records, itemAID, r.loc)
	if err != nil {
		return nil, err
	}
	return r.enc.Bytes(doc)
}

// RenderAll returns the bulk PDF covering every items_a entry.
func (r *Renderer) RenderAll(schema core.Schema, records []core.Record) ([]byte, error) {
	return r.enc.Bytes(LayoutAll(schema, records))
}
