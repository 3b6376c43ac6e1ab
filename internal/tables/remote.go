package tables

import (
	"context"
	"fmt"

	"github.com/adverant/nexus/pdfocr-worker/internal/clients"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
	"github.com/adverant/nexus/pdfocr-worker/internal/ocr"
)

// VisionService is the subset of the table vision client used here
type VisionService interface {
	ExtractTablesFromBytes(ctx context.Context, imageData []byte, language string) (*clients.TableExtractionResponse, error)
}

// RemoteDetector delegates bordered and borderless detection to the table vision service
type RemoteDetector struct {
	service VisionService
}

// NewRemoteDetector creates a new remote detector
func NewRemoteDetector(service VisionService) (*RemoteDetector, error) {
	if service == nil {
		return nil, fmt.Errorf("VisionService is required")
	}
	return &RemoteDetector{service: service}, nil
}

// Name identifies the detector
func (d *RemoteDetector) Name() string { return "remote" }

// Detect sends the page image and converts the service response into candidates.
// Service confidences in [0,1] are rescaled to [0,100].
func (d *RemoteDetector) Detect(ctx context.Context, image []byte, language string) (*Detection, error) {
	resp, err := d.service.ExtractTablesFromBytes(ctx, image, ocr.TableLanguage(language))
	if err != nil {
		return nil, err
	}

	det := &Detection{}
	for _, b := range resp.Data.TextBlocks {
		det.TextBlocks = append(det.TextBlocks, toBox(b))
	}

	for _, t := range resp.Data.Tables {
		c := Candidate{
			BoundingBox: toBox(t.BoundingBox),
			Confidence:  t.Confidence * 100,
			Source:      "remote",
		}
		for _, row := range t.Rows {
			for _, cell := range row.Cells {
				c.Cells = append(c.Cells, CandidateCell{
					Row:         cell.RowIndex,
					Col:         cell.ColIndex,
					RowSpan:     cell.RowSpan,
					ColSpan:     cell.ColSpan,
					Text:        cell.Content,
					Confidence:  cell.Confidence * 100,
					BoundingBox: toBox(cell.BoundingBox),
				})
			}
		}
		det.Candidates = append(det.Candidates, c)
	}
	return det, nil
}

func toBox(b clients.VisionBoundingBox) model.BoundingBox {
	return model.BoundingBox{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}
