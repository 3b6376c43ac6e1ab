package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

func grid(page, rows, cols int, prefix string) model.TableGrid {
	g := model.TableGrid{Page: page, Rows: rows, Cols: cols}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.Cells = append(g.Cells, model.Cell{Row: r, Col: c, Text: prefix + string(rune('a'+r)) + string(rune('0'+c))})
		}
	}
	return g
}

func TestWriteXLSXOneSheetPerGrid(t *testing.T) {
	grids := []model.TableGrid{grid(1, 2, 2, "x"), grid(1, 1, 3, "y"), grid(4, 2, 1, "z")}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, grids))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Page1_Table1", "Page1_Table2", "Page4_Table1"}, f.GetSheetList())

	rows, err := f.GetRows("Page1_Table1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"xa0", "xa1"}, {"xb0", "xb1"}}, rows)

	rows, err = f.GetRows("Page4_Table1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"za0"}, {"zb0"}}, rows)
}

func TestWriteXLSXWithoutGrids(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 1)
}

func TestSheetNameIsCapped(t *testing.T) {
	assert.Equal(t, "Page3_Table2", SheetName(3, 2))

	long := SheetName(123456789012, 123456789012)
	assert.Len(t, long, maxSheetName)

	used := map[string]bool{long: true}
	next := uniqueSheetName(long, used)
	assert.NotEqual(t, long, next)
	assert.LessOrEqual(t, len(next), maxSheetName)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	err := WriteText(&buf, &model.Artifact{Mode: model.ModeText, Text: "=== Page 1 ===\nhello"})
	require.NoError(t, err)
	assert.Equal(t, "=== Page 1 ===\nhello", buf.String())

	err = WriteText(&buf, &model.Artifact{Mode: model.ModeTable})
	assert.Error(t, err)
}

func TestSaveByExtension(t *testing.T) {
	dir := t.TempDir()

	textArtifact := &model.Artifact{Mode: model.ModeText, Text: "body", Errors: []model.PageError{}}
	require.NoError(t, Save(filepath.Join(dir, "out", "doc.txt"), textArtifact))
	data, err := os.ReadFile(filepath.Join(dir, "out", "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))

	require.NoError(t, Save(filepath.Join(dir, "doc.json"), textArtifact))
	data, err = os.ReadFile(filepath.Join(dir, "doc.json"))
	require.NoError(t, err)
	var decoded model.Artifact
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "body", decoded.Text)

	tableArtifact := &model.Artifact{Mode: model.ModeTable, Tables: []model.TableGrid{grid(2, 1, 1, "t")}}
	require.NoError(t, Save(filepath.Join(dir, "doc.xlsx"), tableArtifact))
	f, err := excelize.OpenFile(filepath.Join(dir, "doc.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Page2_Table1"}, f.GetSheetList())

	err = Save(filepath.Join(dir, "bad.xlsx"), textArtifact)
	assert.Error(t, err)
}

func TestDefaultFilename(t *testing.T) {
	assert.Equal(t, "report.txt", DefaultFilename("/data/report.pdf", model.ModeText))
	assert.Equal(t, "report.xlsx", DefaultFilename("report.pdf", model.ModeTable))
	assert.True(t, strings.HasPrefix(DefaultFilename("", model.ModeText), "document"))
}
