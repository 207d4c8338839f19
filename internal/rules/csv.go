package rules

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"sfc/internal/logging"
)

// ImportReport summarizes a bulk CSV import.
type ImportReport struct {
	Imported int
	Skipped  int
}

// ImportCSV merges rules from a CSV file into the knowledge base document.
// Rows are `category,key,description`; a header row is detected and skipped.
// Malformed rows are counted and skipped rather than aborting the import. All
// valid rows are applied through the same mutation path as SaveRule and
// written in one pass.
func ImportCSV(path, csvPath string, logger *slog.Logger) (ImportReport, error) {
	logger = logging.WithComponent(logger, "rules")
	var report ImportReport

	file, err := os.Open(csvPath)
	if err != nil {
		return report, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	doc, err := readDocument(path)
	if err != nil {
		return report, err
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Skipped++
			logger.Warn("skipping unreadable csv row", logging.Error(err))
			continue
		}
		if first {
			first = false
			if isHeaderRow(record) {
				continue
			}
		}
		rule, ok := ruleFromRecord(record)
		if !ok {
			report.Skipped++
			logger.Warn("skipping malformed csv row", logging.String("row", strings.Join(record, ",")))
			continue
		}
		if err := applyRule(doc, rule, logger); err != nil {
			report.Skipped++
			logger.Warn("skipping unusable csv row", logging.Error(err))
			continue
		}
		report.Imported++
	}

	if report.Imported == 0 {
		return report, nil
	}
	if err := writeDocument(path, doc, logger); err != nil {
		return report, err
	}
	logger.Info("bulk import complete",
		logging.Int("imported", report.Imported),
		logging.Int("skipped", report.Skipped))
	return report, nil
}

func isHeaderRow(record []string) bool {
	if len(record) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	second := strings.ToLower(strings.TrimSpace(record[1]))
	return first == "category" && (second == "key" || second == "extension")
}

func ruleFromRecord(record []string) (NewRule, bool) {
	if len(record) < 2 {
		return NewRule{}, false
	}
	category := strings.TrimSpace(record[0])
	key := strings.TrimSpace(record[1])
	if category == "" || key == "" {
		return NewRule{}, false
	}
	description := ""
	if len(record) > 2 {
		description = strings.TrimSpace(record[2])
	}
	return NewRule{Category: category, Key: key, Description: description}, true
}
