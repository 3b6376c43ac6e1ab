package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
)

// Options are the per-request conversion parameters
type Options struct {
	Language      string        `json:"language"`
	Threshold     int           `json:"confidence_threshold"`
	Pages         []int         `json:"page_selection,omitempty"` // empty means all pages
	Mode          Mode          `json:"mode"`
	MaxWorkers    int           `json:"max_workers"`
	MaxFileSizeMB int           `json:"max_file_size_mb"`
	DPI           int           `json:"dpi"`
	Timeout       time.Duration `json:"timeout,omitempty"` // 0 disables the global timeout
}

// MaxFileSizeBytes converts the megabyte limit
func (o Options) MaxFileSizeBytes() int64 {
	return int64(o.MaxFileSizeMB) * 1024 * 1024
}

// Validate checks option ranges and returns a ConfigurationError on the first violation
func (o Options) Validate() error {
	if o.Threshold < 0 || o.Threshold > 100 {
		return errors.NewConfigurationError("confidence_threshold", "must be between 0 and 100, got "+strconv.Itoa(o.Threshold))
	}
	if o.MaxWorkers < 1 {
		return errors.NewConfigurationError("max_workers", "must be a positive integer")
	}
	if o.MaxFileSizeMB < 1 {
		return errors.NewConfigurationError("max_file_size_mb", "must be a positive integer")
	}
	if o.DPI < 1 {
		return errors.NewConfigurationError("dpi", "must be a positive integer")
	}
	if o.Mode != ModeText && o.Mode != ModeTable {
		return errors.NewConfigurationError("mode", "must be TEXT or TABLE, got "+string(o.Mode))
	}
	if strings.TrimSpace(o.Language) == "" {
		return errors.NewConfigurationError("language", "is required")
	}
	if o.Timeout < 0 {
		return errors.NewConfigurationError("timeout", "must not be negative")
	}
	return nil
}

// ParseMode accepts text/table in any case
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeText:
		return ModeText, nil
	case ModeTable:
		return ModeTable, nil
	}
	return "", errors.NewConfigurationError("mode", "must be TEXT or TABLE, got "+s)
}

// MaxSelectedPages bounds how many pages one selection may expand to
const MaxSelectedPages = 10000

// ParsePageSelection turns "1,3-5" into [1 3 4 5], keeping the first occurrence of duplicates.
// An empty string selects all pages.
func ParsePageSelection(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var pages []int
	seen := make(map[int]bool)
	add := func(p int) {
		if !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, errors.NewConfigurationError("page_selection", "malformed page "+strconv.Quote(part))
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || end < start {
				return nil, errors.NewConfigurationError("page_selection", "malformed range "+strconv.Quote(part))
			}
		}
		if end-start >= MaxSelectedPages-len(pages) {
			return nil, errors.NewConfigurationError("page_selection",
				"selects more than "+strconv.Itoa(MaxSelectedPages)+" pages")
		}
		for p := start; p <= end; p++ {
			add(p)
		}
	}
	return pages, nil
}
