package model

import (
	"fmt"
)

// Cell is one (row, column) slot of a table grid
type Cell struct {
	Row         int         `json:"row"`
	Col         int         `json:"col"`
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bbox"`
}

// TableGrid is a rectangular table. Cells are stored row-major, one per slot.
type TableGrid struct {
	ID          string      `json:"table_id"`
	Page        int         `json:"page"`
	BoundingBox BoundingBox `json:"bbox"`
	Confidence  float64     `json:"confidence"`
	Rows        int         `json:"rows"`
	Cols        int         `json:"columns"`
	Cells       []Cell      `json:"cells"`
}

// At returns the cell at (row, col)
func (g *TableGrid) At(row, col int) Cell {
	return g.Cells[row*g.Cols+col]
}

// Records returns cell text as rows of strings
func (g *TableGrid) Records() [][]string {
	out := make([][]string, g.Rows)
	for r := 0; r < g.Rows; r++ {
		row := make([]string, g.Cols)
		for c := 0; c < g.Cols; c++ {
			row[c] = g.At(r, c).Text
		}
		out[r] = row
	}
	return out
}

// Validate checks unique contiguous (row, col) keys and a rectangular shape
func (g *TableGrid) Validate() error {
	if len(g.Cells) != g.Rows*g.Cols {
		return fmt.Errorf("grid %s has %d cells, want %dx%d", g.ID, len(g.Cells), g.Rows, g.Cols)
	}
	seen := make(map[[2]int]bool, len(g.Cells))
	for i, cell := range g.Cells {
		if cell.Row != i/g.Cols || cell.Col != i%g.Cols {
			return fmt.Errorf("grid %s cell %d is keyed (%d,%d)", g.ID, i, cell.Row, cell.Col)
		}
		key := [2]int{cell.Row, cell.Col}
		if seen[key] {
			return fmt.Errorf("grid %s has duplicate cell (%d,%d)", g.ID, cell.Row, cell.Col)
		}
		seen[key] = true
	}
	return nil
}
