/**
 * Artifact export
 *
 * TEXT artifacts are written as the joined text blob, TABLE artifacts as an
 * XLSX workbook with one sheet per grid. Either mode can also be written as JSON.
 */

package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// maxSheetName is Excel's limit on sheet name length
const maxSheetName = 31

// defaultSheet is the sheet excelize creates with every new workbook
const defaultSheet = "Sheet1"

// WriteText writes the text blob of a TEXT artifact
func WriteText(w io.Writer, artifact *model.Artifact) error {
	if artifact.Mode != model.ModeText {
		return fmt.Errorf("text export requires a %s artifact, got %s", model.ModeText, artifact.Mode)
	}
	_, err := io.WriteString(w, artifact.Text)
	return err
}

// WriteJSON writes the artifact as indented JSON
func WriteJSON(w io.Writer, artifact *model.Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(artifact)
}

// WriteXLSX writes one sheet per grid, named Page<p>_Table<i>. A workbook
// with no grids keeps a single empty sheet.
func WriteXLSX(w io.Writer, grids []model.TableGrid) error {
	f := excelize.NewFile()
	defer f.Close()

	perPage := make(map[int]int)
	used := make(map[string]bool)
	for i, g := range grids {
		perPage[g.Page]++
		name := uniqueSheetName(SheetName(g.Page, perPage[g.Page]), used)
		used[name] = true

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}

		for r, record := range g.Records() {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			row := make([]interface{}, len(record))
			for c, v := range record {
				row[c] = v
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return fmt.Errorf("failed to write %s row %d: %w", name, r+1, err)
			}
		}
	}

	if len(grids) > 0 {
		f.SetActiveSheet(0)
	}
	return f.Write(w)
}

// SheetName names the index-th (1-based) table of a page
func SheetName(page, index int) string {
	name := fmt.Sprintf("Page%d_Table%d", page, index)
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

func uniqueSheetName(name string, used map[string]bool) string {
	if !used[name] {
		return name
	}
	for n := 2; ; n++ {
		suffix := fmt.Sprintf("~%d", n)
		base := name
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		if candidate := base + suffix; !used[candidate] {
			return candidate
		}
	}
}

// Save writes the artifact to path. The format follows the extension:
// .json for JSON, .xlsx for TABLE workbooks, anything else as text.
func Save(path string, artifact *model.Artifact) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return WriteJSON(file, artifact)
	case ".xlsx":
		if artifact.Mode != model.ModeTable {
			return fmt.Errorf("xlsx export requires a %s artifact, got %s", model.ModeTable, artifact.Mode)
		}
		return WriteXLSX(file, artifact.Tables)
	default:
		return WriteText(file, artifact)
	}
}

// DefaultFilename derives an output name from the source file and mode
func DefaultFilename(source string, mode model.Mode) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "document"
	}
	if mode == model.ModeTable {
		return base + ".xlsx"
	}
	return base + ".txt"
}
