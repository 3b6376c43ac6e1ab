/**
 * Table Vision Client
 *
 * HTTP client for a remote table-structure service. The service receives a
 * base64 page image and returns every table it found with cell spans and
 * bounding boxes, plus the text blocks it used for layout.
 */

package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
)

// TableVisionClient handles communication with the table vision service
type TableVisionClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// TableExtractionRequest represents a request to extract table structure
type TableExtractionRequest struct {
	Image      string `json:"image"`    // Base64 encoded image
	Format     string `json:"format"`   // "base64"
	Language   string `json:"language"` // two-letter code, e.g. "en"
	Borderless bool   `json:"borderless"`
	RequestID  string `json:"requestId,omitempty"`
}

// TableExtractionResponse represents response from table extraction endpoint
type TableExtractionResponse struct {
	Success bool                   `json:"success"`
	Data    TableExtractionData    `json:"data"`
	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta"`
}

// TableExtractionData contains all tables found on the page
type TableExtractionData struct {
	Tables         []DetectedTable     `json:"tables"`
	TextBlocks     []VisionBoundingBox `json:"textBlocks"`
	ModelUsed      string              `json:"modelUsed"`
	ProcessingTime int64               `json:"processingTime"`
}

// DetectedTable is one table region
type DetectedTable struct {
	BoundingBox VisionBoundingBox `json:"bbox"`
	Bordered    bool              `json:"bordered"`
	Rows        []TableRow        `json:"rows"`
	Columns     int               `json:"columns"`
	Confidence  float64           `json:"confidence"` // 0-1
}

// TableRow represents a single row in the extracted table
type TableRow struct {
	RowIndex int         `json:"rowIndex"`
	IsHeader bool        `json:"isHeader"`
	Cells    []TableCell `json:"cells"`
}

// TableCell represents a single cell in the table
type TableCell struct {
	RowIndex    int               `json:"rowIndex"`
	ColIndex    int               `json:"colIndex"`
	Content     string            `json:"content"`
	Confidence  float64           `json:"confidence"` // 0-1
	IsHeader    bool              `json:"isHeader"`
	RowSpan     int               `json:"rowSpan,omitempty"`
	ColSpan     int               `json:"colSpan,omitempty"`
	BoundingBox VisionBoundingBox `json:"bbox"`
}

// VisionBoundingBox is a pixel rectangle in the submitted image
type VisionBoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewTableVisionClient creates a new table vision client
func NewTableVisionClient(baseURL string, timeout time.Duration) *TableVisionClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &TableVisionClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logging.NewLogger("TableVisionClient"),
	}
}

// ExtractTables extracts table structure from a page image
func (c *TableVisionClient) ExtractTables(ctx context.Context, req *TableExtractionRequest) (*TableExtractionResponse, error) {
	c.logger.Debug("Requesting table extraction",
		"language", req.Language,
		"imageSize", len(req.Image))

	endpoint := fmt.Sprintf("%s/api/internal/vision/extract-tables", c.baseURL)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Source", "pdfocr-worker")
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to table service failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("table service returned error status %d: %s", resp.StatusCode, string(body))
	}

	var tableResp TableExtractionResponse
	if err := json.Unmarshal(body, &tableResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !tableResp.Success {
		return nil, fmt.Errorf("table service operation failed: %s", tableResp.Message)
	}

	c.logger.Debug("Table extraction complete",
		"modelUsed", tableResp.Data.ModelUsed,
		"tables", len(tableResp.Data.Tables),
		"processingTime", tableResp.Data.ProcessingTime)

	return &tableResp, nil
}

// ExtractTablesFromBytes is a convenience method that handles base64 encoding
func (c *TableVisionClient) ExtractTablesFromBytes(ctx context.Context, imageData []byte, language string) (*TableExtractionResponse, error) {
	return c.ExtractTables(ctx, &TableExtractionRequest{
		Image:      base64.StdEncoding.EncodeToString(imageData),
		Format:     "base64",
		Language:   language,
		Borderless: true,
	})
}

// HealthCheck verifies the table service is available
func (c *TableVisionClient) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/api/health", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
