package clients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTablesFromBytes(t *testing.T) {
	var got TableExtractionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/internal/vision/extract-tables", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(TableExtractionResponse{
			Success: true,
			Data: TableExtractionData{
				ModelUsed: "table-net",
				Tables: []DetectedTable{{
					BoundingBox: VisionBoundingBox{X: 10, Y: 20, Width: 300, Height: 80},
					Columns:     2,
					Confidence:  0.9,
					Rows: []TableRow{{
						RowIndex: 0,
						Cells: []TableCell{
							{RowIndex: 0, ColIndex: 0, Content: "Item", Confidence: 0.95},
							{RowIndex: 0, ColIndex: 1, Content: "Qty", Confidence: 0.9},
						},
					}},
				}},
			},
		})
	}))
	defer srv.Close()

	client := NewTableVisionClient(srv.URL, time.Second)
	resp, err := client.ExtractTablesFromBytes(context.Background(), []byte("png-bytes"), "en")
	require.NoError(t, err)

	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), got.Image)
	assert.Equal(t, "base64", got.Format)
	assert.Equal(t, "en", got.Language)
	assert.True(t, got.Borderless)

	require.Len(t, resp.Data.Tables, 1)
	assert.Equal(t, 2, resp.Data.Tables[0].Columns)
	assert.Equal(t, "Qty", resp.Data.Tables[0].Rows[0].Cells[1].Content)
}

func TestExtractTablesErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model unavailable", http.StatusServiceUnavailable)
			},
			wantErr: "status 503",
		},
		{
			name: "unsuccessful response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":false,"message":"image too small"}`))
			},
			wantErr: "image too small",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":`))
			},
			wantErr: "failed to parse response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewTableVisionClient(srv.URL, time.Second).ExtractTablesFromBytes(context.Background(), []byte{1}, "en")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewTableVisionClient(srv.URL, time.Second)
	assert.NoError(t, client.HealthCheck(context.Background()))

	healthy.Store(false)
	assert.Error(t, client.HealthCheck(context.Background()))
}
