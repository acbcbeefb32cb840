package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wafprobe/wafprobe/internal/shared/errors"
	"github.com/wafprobe/wafprobe/internal/waf"
)

func sampleResults() []waf.CheckResult {
	return []waf.CheckResult{
		{
			URL:         "https://a.example",
			WAFDetected: true,
			WAFVendor:   "cloudflare",
			Indicators: []waf.Indicator{
				{Source: waf.SourceHTTPHeader, Vendor: "cloudflare", Context: "CF-RAY"},
				{Source: waf.SourceHTTPCookie, Vendor: "cloudflare", Context: "__cfduid"},
			},
			StatusCode:   200,
			ResponseTime: 0.123456,
		},
		{
			URL:   "https://b.example",
			Error: "connection refused",
		},
		{
			URL:        "https://c.example",
			StatusCode: 404, ResponseTime: 0.5,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"csv", "json", "both", "JSON"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%q) unexpected error: %v", valid, err)
		}
	}
	if _, err := ParseFormat("xml"); !stderrors.Is(err, errors.ErrInvalidOutputFormat) {
		t.Errorf("expected ErrInvalidOutputFormat, got %v", err)
	}
}

func TestJSONReportRoundTrip(t *testing.T) {
	results := sampleResults()
	content, err := MarshalJSONReport(BuildReport(results, time.Now()))
	if err != nil {
		t.Fatal(err)
	}

	var parsed Report
	if err := json.Unmarshal(content, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Metadata.TotalURLs != len(results) {
		t.Errorf("total_urls = %d, want %d", parsed.Metadata.TotalURLs, len(results))
	}
	if parsed.Metadata.WAFDetectedCount != 1 {
		t.Errorf("waf_detected_count = %d, want 1", parsed.Metadata.WAFDetectedCount)
	}
	if parsed.Metadata.WAFNotDetectedCount != 2 {
		t.Errorf("waf_not_detected_count = %d, want 2", parsed.Metadata.WAFNotDetectedCount)
	}
	if len(parsed.Results) != len(results) || parsed.Results[0].WAFVendor != "cloudflare" {
		t.Errorf("results did not round-trip: %+v", parsed.Results)
	}
}

func TestCSVRows(t *testing.T) {
	content, err := MarshalCSV(sampleResults())
	if err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}

	detected := rows[1]
	if detected[1] != "yes" || detected[2] != "cloudflare" {
		t.Errorf("unexpected detected row: %v", detected)
	}
	if detected[3] != "HTTP_HEADER_cloudflare; HTTP_COOKIE_cloudflare" {
		t.Errorf("unexpected indicator labels: %q", detected[3])
	}
	if detected[5] != "0.123s" {
		t.Errorf("unexpected response time: %q", detected[5])
	}

	failed := rows[2]
	if failed[1] != "no" || failed[2] != "N/A" || failed[4] != "N/A" || failed[5] != "N/A" {
		t.Errorf("expected N/A fills on failed row: %v", failed)
	}
	if failed[6] != "connection refused" {
		t.Errorf("unexpected error column: %q", failed[6])
	}
}

func TestSaveWritesLocalFiles(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{OutputDir: dir, Logger: zap.NewNop().Sugar()}

	if err := w.Save(context.Background(), sampleResults(), FormatBoth); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var gotCSV, gotJSON bool
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".csv":
			gotCSV = true
		case ".json":
			gotJSON = true
		}
	}
	if !gotCSV || !gotJSON {
		t.Errorf("expected both csv and json files, got %v", entries)
	}
}

func TestSaveEmptyBatchWritesNothing(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{OutputDir: dir, Logger: zap.NewNop().Sugar()}

	if err := w.Save(context.Background(), nil, FormatBoth); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files for empty batch, got %v", entries)
	}
}

type failingUploader struct{ calls int }

func (f *failingUploader) Upload(ctx context.Context, filename, contentType string, content []byte) error {
	f.calls++
	return stderrors.New("bucket unreachable")
}

func TestSaveFallsBackToLocalOnUploadFailure(t *testing.T) {
	dir := t.TempDir()
	up := &failingUploader{}
	w := &Writer{OutputDir: dir, Uploader: up, Logger: zap.NewNop().Sugar()}

	if err := w.Save(context.Background(), sampleResults(), FormatJSON); err != nil {
		t.Fatal(err)
	}
	if up.calls != 1 {
		t.Errorf("expected one upload attempt, got %d", up.calls)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected local fallback file, got %v", entries)
	}
}

type recordingUploader struct {
	filename, contentType string
	content               []byte
}

func (r *recordingUploader) Upload(ctx context.Context, filename, contentType string, content []byte) error {
	r.filename, r.contentType, r.content = filename, contentType, content
	return nil
}

func TestSaveUploadsWithContentType(t *testing.T) {
	up := &recordingUploader{}
	w := &Writer{OutputDir: t.TempDir(), Uploader: up, Logger: zap.NewNop().Sugar()}

	if err := w.Save(context.Background(), sampleResults(), FormatCSV); err != nil {
		t.Fatal(err)
	}
	if up.contentType != "text/csv" {
		t.Errorf("content type = %q, want text/csv", up.contentType)
	}
	if filepath.Ext(up.filename) != ".csv" || len(up.content) == 0 {
		t.Errorf("unexpected upload: %q (%d bytes)", up.filename, len(up.content))
	}
}
