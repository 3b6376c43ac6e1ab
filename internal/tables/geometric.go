package tables

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
	"github.com/adverant/nexus/pdfocr-worker/internal/ocr"
)

// GeometricDetector finds borderless tables from OCR word boxes. Words on a
// line are split into cells at wide horizontal gaps, and consecutive lines
// with a similar cell count form a table region.
type GeometricDetector struct {
	text      ocr.TextExtractor
	minRows   int
	minCols   int
	gapFactor float64
}

// GeometricConfig holds detector configuration
type GeometricConfig struct {
	Text    ocr.TextExtractor
	MinRows int
	MinCols int
	// GapFactor is the cell-break gap as a multiple of median word height
	GapFactor float64
}

// NewGeometricDetector creates a new geometric detector
func NewGeometricDetector(cfg *GeometricConfig) (*GeometricDetector, error) {
	if cfg.Text == nil {
		return nil, fmt.Errorf("Text extractor is required")
	}
	gap := cfg.GapFactor
	if gap <= 0 {
		gap = 1.5
	}
	return &GeometricDetector{
		text:      cfg.Text,
		minRows:   max(cfg.MinRows, 2),
		minCols:   max(cfg.MinCols, 2),
		gapFactor: gap,
	}, nil
}

// Name identifies the detector
func (d *GeometricDetector) Name() string { return "geometric" }

// segment is a run of words on one line between two wide gaps
type segment struct {
	box   model.BoundingBox
	words []string
	conf  float64
}

func (s segment) text() string { return strings.Join(s.words, " ") }

type textLine struct {
	box      model.BoundingBox
	segments []segment
}

// Detect runs OCR on the image and looks for aligned multi-column regions
func (d *GeometricDetector) Detect(ctx context.Context, image []byte, language string) (*Detection, error) {
	tokens, err := d.text.ExtractText(ctx, image, language)
	if err != nil {
		return nil, err
	}
	return d.DetectFromTokens(tokens), nil
}

// DetectFromTokens works on tokens already in reading order
func (d *GeometricDetector) DetectFromTokens(tokens []model.Token) *Detection {
	lines := d.splitLines(tokens)

	det := &Detection{TextBlocks: make([]model.BoundingBox, 0, len(lines))}
	for _, l := range lines {
		det.TextBlocks = append(det.TextBlocks, l.box)
	}

	for _, region := range d.detectRegions(lines) {
		det.Candidates = append(det.Candidates, d.candidateFromRegion(region))
	}
	return det
}

func (d *GeometricDetector) splitLines(tokens []model.Token) []textLine {
	if len(tokens) == 0 {
		return nil
	}

	heights := make([]int, 0, len(tokens))
	for _, t := range tokens {
		heights = append(heights, t.BoundingBox.Height)
	}
	sort.Ints(heights)
	gap := int(float64(heights[len(heights)/2]) * d.gapFactor)

	var lines []textLine
	for i, t := range tokens {
		newLine := i == 0 || t.Line != tokens[i-1].Line
		if newLine {
			lines = append(lines, textLine{box: t.BoundingBox})
		}
		cur := &lines[len(lines)-1]
		cur.box = cur.box.Union(t.BoundingBox)

		if newLine || t.BoundingBox.X-tokens[i-1].BoundingBox.Right() > gap {
			cur.segments = append(cur.segments, segment{box: t.BoundingBox})
		}
		seg := &cur.segments[len(cur.segments)-1]
		seg.box = seg.box.Union(t.BoundingBox)
		seg.words = append(seg.words, t.Text)
		seg.conf += t.Confidence
	}

	for li := range lines {
		for si := range lines[li].segments {
			s := &lines[li].segments[si]
			s.conf /= float64(len(s.words))
		}
	}
	return lines
}

// detectRegions groups consecutive lines whose cell count stays within one of the first line's
func (d *GeometricDetector) detectRegions(lines []textLine) [][]textLine {
	var regions [][]textLine

	i := 0
	for i < len(lines) {
		if len(lines[i].segments) < d.minCols {
			i++
			continue
		}

		region := []textLine{lines[i]}
		expected := len(lines[i].segments)
		i++
		for i < len(lines) {
			prev := region[len(region)-1].box
			cols := len(lines[i].segments)
			gap := lines[i].box.Y - prev.Bottom()
			if cols >= d.minCols && abs(cols-expected) <= 1 && gap <= 2*max(prev.Height, 1) {
				region = append(region, lines[i])
				i++
				continue
			}
			break
		}

		if len(region) >= d.minRows {
			regions = append(regions, region)
		}
	}
	return regions
}

func (d *GeometricDetector) candidateFromRegion(region []textLine) Candidate {
	maxCols := 0
	for _, l := range region {
		maxCols = max(maxCols, len(l.segments))
	}

	// Column extents come from the widest rows so that short rows can span
	columns := make([]model.BoundingBox, maxCols)
	for _, l := range region {
		if len(l.segments) != maxCols {
			continue
		}
		for k, s := range l.segments {
			columns[k] = columns[k].Union(model.BoundingBox{X: s.box.X, Y: 0, Width: s.box.Width, Height: 1})
		}
	}

	c := Candidate{Source: "geometric"}
	var confSum float64
	for row, l := range region {
		c.BoundingBox = c.BoundingBox.Union(l.box)
		for _, s := range l.segments {
			first, count := columnSpan(s.box, columns)
			c.Cells = append(c.Cells, CandidateCell{
				Row:         row,
				Col:         first,
				RowSpan:     1,
				ColSpan:     count,
				Text:        s.text(),
				Confidence:  s.conf,
				BoundingBox: s.box,
			})
			confSum += s.conf
		}
	}
	if len(c.Cells) > 0 {
		c.Confidence = confSum / float64(len(c.Cells))
	}
	return c
}

// columnSpan returns the first column a segment covers and how many consecutive columns it covers
func columnSpan(box model.BoundingBox, columns []model.BoundingBox) (int, int) {
	first, last := -1, -1
	for k, col := range columns {
		if min(box.Right(), col.Right()) > max(box.X, col.X) {
			if first < 0 {
				first = k
			}
			last = k
		}
	}
	if first >= 0 {
		return first, last - first + 1
	}

	// Falls in a gutter: snap to the nearest column by center distance
	best, bestDist := 0, -1
	for k, col := range columns {
		dist := abs(col.CenterX() - box.CenterX())
		if bestDist < 0 || dist < bestDist {
			best, bestDist = k, dist
		}
	}
	return best, 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
