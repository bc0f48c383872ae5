package entity

import "strings"

// OcrLine is one recognized text fragment with its pixel bounding box.
type OcrLine struct {
	Text string      `json:"text"`
	Box  BoundingBox `json:"box"`
}

// OcrBlock groups the lines of one visual paragraph, with the block's
// own bounding box.
type OcrBlock struct {
	Text  string      `json:"text"`
	Box   BoundingBox `json:"box"`
	Lines []OcrLine   `json:"lines"`
}

// OcrDocument is the full OCR engine output for one receipt image:
// blocks plus the image dimensions as measured by the caller. The
// dimensions may disagree with the extents implied by the blocks; the
// pipeline infers corrected dimensions in that case.
type OcrDocument struct {
	Blocks      []OcrBlock `json:"blocks"`
	ImageWidth  float64    `json:"image_width,omitempty"`
	ImageHeight float64    `json:"image_height,omitempty"`
}

// AllLines flattens block lines in document order. Blocks without
// explicit lines contribute their own text split on newlines.
func (d OcrDocument) AllLines() []OcrLine {
	var out []OcrLine
	for _, b := range d.Blocks {
		if len(b.Lines) > 0 {
			out = append(out, b.Lines...)
			continue
		}
		for _, t := range strings.Split(b.Text, "\n") {
			if strings.TrimSpace(t) == "" {
				continue
			}
			out = append(out, OcrLine{Text: t, Box: b.Box})
		}
	}
	return out
}

// Text joins all line texts with newlines, in document order.
func (d OcrDocument) Text() string {
	lines := d.AllLines()
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, l.Text)
	}
	return strings.Join(parts, "\n")
}

// HasGeometry reports whether the document carries usable bounding
// boxes. Text-only input (for example a plain line list) parses through
// the non-geometric paths only.
func (d OcrDocument) HasGeometry() bool {
	for _, b := range d.Blocks {
		if b.Box.Width > 0 || b.Box.Height > 0 {
			return true
		}
		for _, l := range b.Lines {
			if l.Box.Width > 0 || l.Box.Height > 0 {
				return true
			}
		}
	}
	return false
}

// DocumentFromLines wraps plain text lines as a geometry-less document.
func DocumentFromLines(lines []string) OcrDocument {
	blocks := make([]OcrBlock, 0, len(lines))
	for _, t := range lines {
		blocks = append(blocks, OcrBlock{Text: t})
	}
	return OcrDocument{Blocks: blocks}
}
