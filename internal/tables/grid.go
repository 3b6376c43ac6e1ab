package tables

import (
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
	"github.com/adverant/nexus/pdfocr-worker/internal/ocr"
)

// BuildGrid normalizes a candidate into a rectangular grid. Spanned cells are
// copied into every slot they cover, the first cell claiming a slot wins,
// and unclaimed slots are padded with empty cells.
func BuildGrid(c Candidate) model.TableGrid {
	rows, cols := 0, 0
	for _, cell := range c.Cells {
		if cell.Row < 0 || cell.Col < 0 {
			continue
		}
		rows = max(rows, cell.Row+span(cell.RowSpan))
		cols = max(cols, cell.Col+span(cell.ColSpan))
	}

	slots := make([]*CandidateCell, rows*cols)
	for i := range c.Cells {
		cell := &c.Cells[i]
		if cell.Row < 0 || cell.Col < 0 {
			continue
		}
		for r := cell.Row; r < cell.Row+span(cell.RowSpan); r++ {
			for col := cell.Col; col < cell.Col+span(cell.ColSpan); col++ {
				idx := r*cols + col
				if slots[idx] == nil {
					slots[idx] = cell
				}
			}
		}
	}

	grid := model.TableGrid{
		BoundingBox: c.BoundingBox,
		Confidence:  c.Confidence,
		Rows:        rows,
		Cols:        cols,
		Cells:       make([]model.Cell, 0, rows*cols),
	}

	var confSum float64
	var filled int
	for idx, src := range slots {
		cell := model.Cell{Row: idx / max(cols, 1), Col: idx % max(cols, 1)}
		if src != nil {
			cell.Text = src.Text
			cell.Confidence = src.Confidence
			cell.BoundingBox = src.BoundingBox
			confSum += src.Confidence
			filled++
		}
		grid.Cells = append(grid.Cells, cell)
	}

	if grid.Confidence == 0 && filled > 0 {
		grid.Confidence = confSum / float64(filled)
	}
	return grid
}

func span(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// FilterCells blanks the text of cells below the threshold, keeping the grid
// shape intact. It returns the filtered copy and the number of blanked cells.
func FilterCells(grid model.TableGrid, threshold int) (model.TableGrid, int, error) {
	if err := ocr.ValidateThreshold(threshold); err != nil {
		return model.TableGrid{}, 0, err
	}

	out := grid
	out.Cells = make([]model.Cell, len(grid.Cells))
	dropped := 0
	for i, cell := range grid.Cells {
		if cell.Text != "" && !ocr.Keep(cell.Confidence, threshold) {
			cell.Text = ""
			dropped++
		}
		out.Cells[i] = cell
	}
	return out, dropped, nil
}
