package validator

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// PDFCPUInspector reads the cross-reference table and info dictionary with pdfcpu
type PDFCPUInspector struct {
	conf *pdfmodel.Configuration
}

// NewPDFCPUInspector creates an inspector using relaxed validation
func NewPDFCPUInspector() *PDFCPUInspector {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return &PDFCPUInspector{conf: conf}
}

// Name identifies the inspector in logs
func (p *PDFCPUInspector) Name() string { return "pdfcpu" }

// Inspect returns page count and document info
func (p *PDFCPUInspector) Inspect(ctx context.Context, data []byte) (model.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return model.Metadata{}, err
	}

	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), p.conf)
	if err != nil {
		return model.Metadata{}, fmt.Errorf("pdfcpu read failed: %w", err)
	}

	// Context embeds both Configuration and XRefTable; the info fields live on the table
	info := pctx.XRefTable
	return model.Metadata{
		PageCount:    pctx.PageCount,
		Title:        info.Title,
		Author:       info.Author,
		Subject:      info.Subject,
		Creator:      info.Creator,
		Producer:     info.Producer,
		CreationDate: info.CreationDate,
		ModDate:      info.ModDate,
	}, nil
}
