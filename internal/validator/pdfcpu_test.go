package validator

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal well-formed PDF with the given page count and
// info dictionary entries, computing the cross-reference offsets.
func buildPDF(pages int, info string) []byte {
	var objects []string
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages),
	)
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}
	infoObj := len(objects) + 1
	objects = append(objects, "<< "+info+" >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, infoObj, xref)
	return buf.Bytes()
}

func TestPDFCPUInspectorReadsInfo(t *testing.T) {
	data := buildPDF(2, "/Title (Invoice) /Author (Accounts) /Subject (Q3) /Producer (scanner)")

	meta, err := NewPDFCPUInspector().Inspect(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 2, meta.PageCount)
	assert.Equal(t, "Invoice", meta.Title)
	assert.Equal(t, "Accounts", meta.Author)
	assert.Equal(t, "Q3", meta.Subject)
	assert.Equal(t, "scanner", meta.Producer)
}

func TestPDFCPUInspectorRejectsBrokenStructure(t *testing.T) {
	data := []byte("%PDF-1.4\nthis is not a cross-reference table\n%%EOF")

	_, err := NewPDFCPUInspector().Inspect(context.Background(), data)
	assert.Error(t, err)
}

func TestPDFCPUInspectorHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFCPUInspector().Inspect(ctx, buildPDF(1, "/Title (x)"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateWithPDFCPU(t *testing.T) {
	v := newTestValidator(t, NewPDFCPUInspector())

	doc, err := v.Validate(context.Background(), buildPDF(3, "/Title (Ledger)"), "ledger.pdf", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Metadata.PageCount)
	assert.Equal(t, "Ledger", doc.Metadata.Title)
}
