// Package report turns the schema and input records into paginated PDF
// documents.
//
// Rendering is split in two phases. Layout is a pure projection from
// (schema, records) to pages of positioned text lines; Encode draws those
// lines with fpdf. Tests and callers that only care about the text content
// can stop after layout.
package report

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/inputsheet/internal/core"
)

// Layout constants, in points on a Letter page (612x792).
const (
	PageWidth  = 612.0
	PageHeight = 792.0

	MarginLeft = 50.0
	MarginTop  = 50.0
	IndentLeft = 70.0

	// BreakY is the cursor position past which the next line starts a new page.
	BreakY = 700.0

	TitleSize   = 20.0
	HeadingSize = 14.0
	BodySize    = 12.0
	DetailSize  = 11.0

	subheadingY  = 80.0
	itemBodyY    = 120.0
	itemPitch    = 25.0
	footerGap    = 20.0
	bulkStartY   = 100.0
	headingPitch = 25.0
	detailPitch  = 20.0
	sectionGap   = 15.0
)

// NoInputPlaceholder is emitted in bulk mode for items without a record.
const NoInputPlaceholder = "(no input data)"

// TimestampLayout formats the record creation time in the footer.
const TimestampLayout = "2006/1/2 15:04:05"

// Line is one text run placed at (X, Y), where Y is the top of the line.
type Line struct {
	X    float64
	Y    float64
	Size float64
	Text string
}

// Page is an ordered list of lines.
type Page struct {
	Lines []Line
}

// Document is a laid-out report.
type Document struct {
	Title string
	Pages []Page
}

// Text returns the text of every line in page order.
func (d *Document) Text() []string {
	var out []string
	for _, p := range d.Pages {
		for _, l := range p.Lines {
			out = append(out, l.Text)
		}
	}
	return out
}

// pager tracks the vertical cursor and starts pages as lines are emitted.
type pager struct {
	doc *Document
	y   float64
}

func newPager(title string) *pager {
	return &pager{
		doc: &Document{Title: title, Pages: []Page{{}}},
		y:   MarginTop,
	}
}

// emit places text at the cursor and advances it by pitch. When the cursor
// is already past BreakY the line goes to the top of a fresh page instead.
func (p *pager) emit(x, size, pitch float64, text string) {
	if p.y > BreakY {
		p.doc.Pages = append(p.doc.Pages, Page{})
		p.y = MarginTop
	}
	last := &p.doc.Pages[len(p.doc.Pages)-1]
	last.Lines = append(last.Lines, Line{X: x, Y: p.y, Size: size, Text: text})
	p.y += pitch
}

// fieldLines returns "<label>: <value>" for each schema field the record
// has a value for, in schema order. Inputs that match no field are dropped.
func fieldLines(schema core.Schema, rec core.Record) []string {
	var lines []string
	for _, field := range schema.ItemsD {
		in, ok := rec.Lookup(field.Ref())
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", field.Label, in.Value))
	}
	return lines
}

// LayoutItem lays out the single-item report for itemAID using the last
// record appended for it. It returns a *core.NotFoundError when the item
// has no record.
func LayoutItem(schema core.Schema, records []core.Record, itemAID string, loc *time.Location) (*Document, error) {
	rec, ok := core.LatestFor(records, itemAID)
	if !ok {
		return nil, &core.NotFoundError{Kind: "input", Key: itemAID}
	}
	if loc == nil {
		loc = time.Local
	}

	p := newPager(schema.SheetName)
	p.emit(MarginLeft, TitleSize, subheadingY-MarginTop, schema.SheetName)

	if item, found := schema.FindItemA(itemAID); found {
		p.emit(MarginLeft, HeadingSize, itemBodyY-subheadingY, "Item: "+item.Name)
	} else {
		p.y = itemBodyY
	}

	for _, line := range fieldLines(schema, rec) {
		p.emit(MarginLeft, BodySize, itemPitch, line)
	}

	p.y += footerGap
	p.emit(MarginLeft, BodySize, itemPitch, "Created: "+rec.CreatedAt.In(loc).Format(TimestampLayout))
	return p.doc, nil
}

// LayoutAll lays out the bulk report: one section per items_a entry in
// schema order, each showing the item's latest record or a placeholder.
func LayoutAll(schema core.Schema, records []core.Record) *Document {
	title := schema.SheetName + " - All Items"
	p := newPager(title)
	p.emit(MarginLeft, TitleSize, 0, title)
	p.y = bulkStartY

	for _, item := range schema.ItemsA {
		p.emit(MarginLeft, HeadingSize, headingPitch, "["+item.Name+"]")

		rec, ok := core.LatestFor(records, item.ID)
		if !ok {
			p.emit(IndentLeft, DetailSize, detailPitch, NoInputPlaceholder)
		} else {
			for _, line := range fieldLines(schema, rec) {
				p.emit(IndentLeft, DetailSize, detailPitch, line)
			}
		}

		p.y += sectionGap
	}
	return p.doc
}
