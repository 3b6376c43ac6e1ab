package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/pdfocr-worker/internal/clients"
	"github.com/adverant/nexus/pdfocr-worker/internal/config"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
	"github.com/adverant/nexus/pdfocr-worker/internal/processor"
	"github.com/adverant/nexus/pdfocr-worker/internal/raster"
	"github.com/adverant/nexus/pdfocr-worker/internal/validator"
)

type stubInspector struct{}

func (stubInspector) Name() string { return "stub" }

func (stubInspector) Inspect(ctx context.Context, data []byte) (model.Metadata, error) {
	return model.Metadata{PageCount: 2}, nil
}

type stubRenderer struct{}

func (stubRenderer) Open(data []byte) (raster.Session, error) { return stubSession{}, nil }

type stubSession struct{}

func (stubSession) RenderPage(page, dpi int) (*model.Page, error) {
	return &model.Page{Number: page, Image: []byte{byte(page)}}, nil
}

func (stubSession) Close() error { return nil }

type stubBackend struct{}

func (stubBackend) Name() string                 { return "stub" }
func (stubBackend) Languages() ([]string, error) { return []string{"eng"}, nil }

func (stubBackend) Recognize(ctx context.Context, image []byte, language string) ([]model.Token, error) {
	return []model.Token{{Text: "Invoice", Confidence: 91, BoundingBox: model.BoundingBox{Width: 60, Height: 12}}}, nil
}

type stubVision struct{ languages []string }

func (s *stubVision) ExtractTablesFromBytes(ctx context.Context, imageData []byte, language string) (*clients.TableExtractionResponse, error) {
	s.languages = append(s.languages, language)
	return &clients.TableExtractionResponse{
		Success: true,
		Data: clients.TableExtractionData{
			Tables: []clients.DetectedTable{{
				BoundingBox: clients.VisionBoundingBox{X: 0, Y: 100, Width: 200, Height: 40},
				Confidence:  0.9,
				Rows: []clients.TableRow{
					{RowIndex: 0, Cells: []clients.TableCell{{RowIndex: 0, ColIndex: 0, Content: "Item", Confidence: 0.95}, {RowIndex: 0, ColIndex: 1, Content: "Qty", Confidence: 0.95}}},
					{RowIndex: 1, Cells: []clients.TableCell{{RowIndex: 1, ColIndex: 0, Content: "Bolt", Confidence: 0.9}, {RowIndex: 1, ColIndex: 1, Content: "4", Confidence: 0.3}}},
				},
			}},
		},
	}, nil
}

func components(vision *stubVision) Components {
	c := Components{
		Renderer:   stubRenderer{},
		Inspectors: []validator.Inspector{stubInspector{}},
		Backend:    stubBackend{},
	}
	if vision != nil {
		c.VisionService = vision
	}
	return c
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.OCR.SupportedLanguages = []string{"eng"}
	return cfg
}

func TestBuildTextStack(t *testing.T) {
	stack, err := BuildWith(testConfig(), components(nil))
	require.NoError(t, err)
	defer stack.Close()

	require.NotNil(t, stack.Cache)
	assert.Equal(t, []string{"eng"}, stack.Text.Languages())

	opts := testConfig().Options()
	artifact, err := stack.Orchestrator.Convert(context.Background(), processor.Input{Data: []byte("%PDF-1.7 stub")}, opts)
	require.NoError(t, err)
	assert.Equal(t, "=== Page 1 ===\nInvoice\n\n=== Page 2 ===\nInvoice", artifact.Text)
	assert.Equal(t, 1, stack.Cache.Stats().Entries)
}

func TestBuildRemoteTableStack(t *testing.T) {
	cfg := testConfig()
	cfg.Tables.Backend = config.TableBackendRemote
	cfg.Tables.RemoteURL = "http://vision.invalid"
	cfg.Processing.EnableCaching = false

	vision := &stubVision{}
	stack, err := BuildWith(cfg, components(vision))
	require.NoError(t, err)
	defer stack.Close()
	assert.Nil(t, stack.Cache)

	opts := cfg.Options()
	opts.Mode = model.ModeTable
	opts.Pages = []int{2}
	artifact, err := stack.Orchestrator.Convert(context.Background(), processor.Input{Data: []byte("%PDF-1.7 stub")}, opts)
	require.NoError(t, err)

	require.Len(t, artifact.Tables, 1)
	grid := artifact.Tables[0]
	assert.Equal(t, "page_2_table_1", grid.ID)
	assert.Equal(t, [][]string{{"Item", "Qty"}, {"Bolt", ""}}, grid.Records())
	assert.InDelta(t, 30.0, grid.At(1, 1).Confidence, 0.001, "blanked cells keep their confidence")
	assert.Equal(t, []string{"en"}, vision.languages)
}

func TestBuildRejectsMissingLanguages(t *testing.T) {
	cfg := testConfig()
	cfg.OCR.SupportedLanguages = []string{"fra"}
	_, err := BuildWith(cfg, components(nil))
	assert.Error(t, err)
}
