// Package sniff resolves ambiguous extensions by inspecting file content.
package sniff

import (
	"bytes"
	"io"
	"log/slog"
	"os"

	"sfc/internal/logging"
	"sfc/internal/rules"
)

// prefixSize is how much of a file is read for content analysis. Keywords
// beyond this prefix never match.
const prefixSize = 256

// Sniffer tests candidate rules against a file's byte prefix.
type Sniffer struct {
	logger *slog.Logger
}

// New constructs a content sniffer.
func New(logger *slog.Logger) *Sniffer {
	return &Sniffer{logger: logging.WithComponent(logger, "sniff")}
}

// Resolve returns the category of the first candidate rule whose
// content_contains keyword occurs in the file's first 256 bytes, scanning
// candidates in the order supplied. A missing match or an unreadable file is
// an expected outcome, reported as ok=false rather than an error.
func (s *Sniffer) Resolve(path string, candidates []rules.Rule) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	prefix, err := readPrefix(path)
	if err != nil {
		s.logger.Debug("content analysis skipped, file unreadable",
			logging.String("path", path),
			logging.Error(err))
		return "", false
	}

	for _, candidate := range candidates {
		for _, analysis := range candidate.Analysis {
			if analysis.Type != rules.AnalysisTypeContentContains {
				continue
			}
			if len(analysis.Contains) == 0 {
				continue
			}
			if bytes.Contains(prefix, analysis.Contains) {
				return candidate.Category, true
			}
		}
	}
	return "", false
}

func readPrefix(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, prefixSize)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}
