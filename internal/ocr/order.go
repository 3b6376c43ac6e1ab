package ocr

import (
	"sort"
	"strings"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// ReadingOrder groups tokens into lines by vertical overlap, orders lines
// top-to-bottom and tokens left-to-right, then assigns Rank and Line.
// The input slice is not modified.
func ReadingOrder(tokens []model.Token) []model.Token {
	out := make([]model.Token, 0, len(tokens))
	for _, t := range tokens {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].BoundingBox, out[j].BoundingBox
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	var lines [][]model.Token
	var band model.BoundingBox
	for _, t := range out {
		if len(lines) > 0 && sameLine(band, t.BoundingBox) {
			lines[len(lines)-1] = append(lines[len(lines)-1], t)
			band = band.Union(t.BoundingBox)
			continue
		}
		lines = append(lines, []model.Token{t})
		band = t.BoundingBox
	}

	rank := 0
	for li, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].BoundingBox.X < line[j].BoundingBox.X
		})
		for i := range line {
			line[i].Rank = rank
			line[i].Line = li
			out[rank] = line[i]
			rank++
		}
	}
	return out
}

// sameLine reports whether box overlaps the line band vertically by at least
// half of the smaller height
func sameLine(band, box model.BoundingBox) bool {
	top := max(band.Y, box.Y)
	bottom := min(band.Bottom(), box.Bottom())
	overlap := bottom - top
	if overlap <= 0 {
		return false
	}
	smaller := min(band.Height, box.Height)
	if smaller <= 0 {
		return false
	}
	return overlap*2 >= smaller
}

// Text joins ordered tokens, one output line per token line
func Text(tokens []model.Token) string {
	var sb strings.Builder
	for i, t := range tokens {
		if i > 0 {
			if t.Line != tokens[i-1].Line {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// MeanConfidence averages token confidence, 0 for no tokens
func MeanConfidence(tokens []model.Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tokens {
		sum += t.Confidence
	}
	return sum / float64(len(tokens))
}
