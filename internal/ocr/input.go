// Package ocr defines the input contract with the external OCR engine
// and the text normalization applied before any parsing. The engine
// itself is outside this module; it is assumed to return text blocks
// with pixel bounding boxes.
package ocr

import (
	"encoding/json"
	"io"

	"github.com/dcastano/reciboscan/internal/entity"
)

// extentPadding is the margin added when image dimensions have to be
// inferred from block extents (blocks rarely touch the paper edge).
const extentPadding = 0.03

// DecodeDocument reads an OcrDocument from JSON.
func DecodeDocument(r io.Reader) (entity.OcrDocument, error) {
	var doc entity.OcrDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return entity.OcrDocument{}, err
	}
	return doc, nil
}

// InferImageSize returns usable image dimensions for the document.
// Caller-supplied dimensions win unless the block extents overflow them
// or the two aspect ratios severely disagree; then corrected dimensions
// are derived from the extents plus a small padding margin.
func InferImageSize(d entity.OcrDocument) (width, height float64) {
	var maxX, maxY float64
	for _, b := range d.Blocks {
		if r := b.Box.Right(); r > maxX {
			maxX = r
		}
		if bt := b.Box.Bottom(); bt > maxY {
			maxY = bt
		}
		for _, l := range b.Lines {
			if r := l.Box.Right(); r > maxX {
				maxX = r
			}
			if bt := l.Box.Bottom(); bt > maxY {
				maxY = bt
			}
		}
	}

	width, height = d.ImageWidth, d.ImageHeight
	padX := maxX * (1 + extentPadding)
	padY := maxY * (1 + extentPadding)

	if width <= 0 || maxX > width {
		width = padX
	}
	if height <= 0 || maxY > height {
		height = padY
	}

	// A declared aspect ratio more than 2x off the extent aspect ratio
	// means the caller measured a different image (rotation, crop).
	if width > 0 && height > 0 && maxX > 0 && maxY > 0 {
		declared := width / height
		implied := maxX / maxY
		if declared > 2*implied || implied > 2*declared {
			width, height = padX, padY
		}
	}
	return width, height
}

// NormalizeDocument returns the document's lines, OCR-corrected, plus
// the same lines with empties filtered (parsers work on the filtered
// set; raw text keeps everything).
func NormalizeDocument(d entity.OcrDocument) (all, nonEmpty []string) {
	src := d.AllLines()
	all = make([]string, len(src))
	for i, l := range src {
		all[i] = NormalizeLine(l.Text)
	}
	for _, l := range all {
		if l != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	return all, nonEmpty
}
