// Package source builds the list of URLs a run will probe, either from a
// local file or from Route 53 hosted zones.
package source

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/asaskevich/govalidator"
	"go.uber.org/zap"
)

// EnsureScheme prefixes https:// when the entry carries no scheme.
func EnsureScheme(entry string) string {
	if strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://") {
		return entry
	}
	return "https://" + entry
}

// LoadFile reads one URL per line, skipping blank lines and # comments.
// Entries without a scheme get https:// prefixed. Lines that are neither a
// URL nor a DNS name are skipped with a warning. maxURLs caps the list when
// positive. A missing file is a fatal error for the run.
func LoadFile(path string, maxURLs int, logger *zap.SugaredLogger) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open urls file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !govalidator.IsURL(line) && !govalidator.IsDNSName(line) {
			logger.Warnw("skipping invalid entry", "file", path, "entry", line)
			continue
		}
		urls = append(urls, EnsureScheme(line))
		if maxURLs > 0 && len(urls) >= maxURLs {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls file: %w", err)
	}

	logger.Infow("loaded urls from file", "file", path, "count", len(urls))
	return urls, nil
}
