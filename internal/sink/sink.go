// Package sink serializes a batch of check results to CSV/JSON and delivers
// them to local disk or S3.
package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wafprobe/wafprobe/internal/shared/errors"
	"github.com/wafprobe/wafprobe/internal/waf"
)

// Format selects the serialization(s) a run produces.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatBoth Format = "both"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatBoth:
		return FormatBoth, nil
	}
	return "", fmt.Errorf("%w: %q", errors.ErrInvalidOutputFormat, s)
}

// Metadata summarizes a batch for the JSON document.
type Metadata struct {
	Timestamp           int64 `json:"timestamp"`
	TotalURLs           int   `json:"total_urls"`
	WAFDetectedCount    int   `json:"waf_detected_count"`
	WAFNotDetectedCount int   `json:"waf_not_detected_count"`
}

// Report is the JSON output document.
type Report struct {
	Metadata Metadata          `json:"metadata"`
	Results  []waf.CheckResult `json:"results"`
}

// BuildReport assembles the JSON document for a batch.
func BuildReport(results []waf.CheckResult, now time.Time) Report {
	detected := 0
	for _, r := range results {
		if r.WAFDetected {
			detected++
		}
	}
	return Report{
		Metadata: Metadata{
			Timestamp:           now.Unix(),
			TotalURLs:           len(results),
			WAFDetectedCount:    detected,
			WAFNotDetectedCount: len(results) - detected,
		},
		Results: results,
	}
}

// MarshalJSONReport renders the report document.
func MarshalJSONReport(report Report) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

var csvHeader = []string{"URL", "WAF Detected", "Vendor", "Indicators", "HTTP Status", "Response Time", "Error"}

const absent = "N/A"

// MarshalCSV renders one row per result; absent fields carry "N/A".
func MarshalCSV(results []waf.CheckResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range results {
		detected := "no"
		if r.WAFDetected {
			detected = "yes"
		}
		labels := make([]string, 0, len(r.Indicators))
		for _, ind := range r.Indicators {
			labels = append(labels, ind.Label())
		}
		row := []string{
			r.URL,
			detected,
			orAbsent(r.WAFVendor),
			orAbsent(strings.Join(labels, "; ")),
			absent,
			absent,
			orAbsent(r.Error),
		}
		if r.StatusCode != 0 {
			row[4] = strconv.Itoa(r.StatusCode)
		}
		if r.ResponseTime != 0 {
			row[5] = fmt.Sprintf("%.3fs", r.ResponseTime)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func orAbsent(s string) string {
	if s == "" {
		return absent
	}
	return s
}

// Uploader ships a serialized file to remote storage.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, content []byte) error
}

// Writer delivers serialized batches. With a nil uploader everything is
// written under OutputDir; with one, local write is the fallback when the
// upload fails.
type Writer struct {
	OutputDir string
	Uploader  Uploader
	Logger    *zap.SugaredLogger
}

// Save serializes the batch in the requested format(s) and delivers each
// file. Filenames share one timestamp so a run's CSV and JSON pair up.
func (w *Writer) Save(ctx context.Context, results []waf.CheckResult, format Format) error {
	if len(results) == 0 {
		return nil
	}
	now := time.Now()
	stamp := now.Unix()

	if format == FormatCSV || format == FormatBoth {
		content, err := MarshalCSV(results)
		if err != nil {
			return fmt.Errorf("serialize csv: %w", err)
		}
		if err := w.deliver(ctx, fmt.Sprintf("waf_check_results_%d.csv", stamp), "text/csv", content); err != nil {
			return err
		}
	}
	if format == FormatJSON || format == FormatBoth {
		content, err := MarshalJSONReport(BuildReport(results, now))
		if err != nil {
			return fmt.Errorf("serialize json: %w", err)
		}
		if err := w.deliver(ctx, fmt.Sprintf("waf_check_results_%d.json", stamp), "application/json", content); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) deliver(ctx context.Context, filename, contentType string, content []byte) error {
	if w.Uploader != nil {
		err := w.Uploader.Upload(ctx, filename, contentType, content)
		if err == nil {
			return nil
		}
		w.Logger.Warnw("upload failed, falling back to local write", "file", filename, "error", err)
	}
	return w.writeLocal(filename, content)
}

func (w *Writer) writeLocal(filename string, content []byte) error {
	if err := os.MkdirAll(w.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(w.OutputDir, filename)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Logger.Infow("results written", "path", path)
	return nil
}
