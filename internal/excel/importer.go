package excel

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/seamanship/internal/progress"
	"github.com/example/seamanship/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Reconciler applies completion events
type Reconciler interface {
	Reconcile(ctx context.Context, userID, topicID string, ev progress.Event) (progress.Outcome, error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath        string // Path to the Excel or CSV file
	UserColumn      string // Column with the user id
	TopicColumn     string // Column with the topic id
	CompletedColumn string // Column with the completed flag
	ScoreColumn     string // Column with the score percentage
	PointsColumn    string // Column with points earned
	AnswersColumn   string // Column with the answers history JSON, optional
	SheetName       string // Name of the sheet to import
	StartRow        int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		UserColumn:      "A",
		TopicColumn:     "B",
		CompletedColumn: "C",
		ScoreColumn:     "D",
		PointsColumn:    "E",
		AnswersColumn:   "F",
		SheetName:       "Sheet1",
		StartRow:        2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Completed      int   // rows that completed a topic for the first time
	PointsAwarded  int   // rows whose points were credited
	PointsTotal    int64 // sum of credited points
	Skipped        int   // blank rows
	Errors         []string
}

type columns struct {
	user, topic, completed, score, points, answers int
}

// ImportEvents replays completion events from an Excel or CSV file.
// Invalid rows are reported in the result and skipped. A store failure stops
// the import and is returned together with the partial result.
func ImportEvents(ctx context.Context, config ImportConfig, reconciler Reconciler) (*ImportResult, error) {
	cols, err := resolveColumns(config)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		rowNum := i + 1
		// Skip header rows
		if rowNum < config.StartRow {
			continue
		}
		if isBlank(row) {
			result.Skipped++
			continue
		}
		result.TotalProcessed++

		userID, topicID, ev, err := parseRow(row, cols)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}

		outcome, err := reconciler.Reconcile(ctx, userID, topicID, ev)
		if err != nil {
			if errors.Is(err, progress.ErrInvalidEvent) {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
				continue
			}
			return result, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if outcome.CompletionAwarded {
			result.Completed++
		}
		if outcome.PointsAwarded {
			result.PointsAwarded++
			result.PointsTotal += int64(ev.PointsEarned)
		}
	}

	return result, nil
}

func resolveColumns(config ImportConfig) (columns, error) {
	var cols columns
	targets := []struct {
		name string
		dst  *int
	}{
		{config.UserColumn, &cols.user},
		{config.TopicColumn, &cols.topic},
		{config.CompletedColumn, &cols.completed},
		{config.ScoreColumn, &cols.score},
		{config.PointsColumn, &cols.points},
	}
	for _, t := range targets {
		n, err := excelize.ColumnNameToNumber(t.name)
		if err != nil {
			return cols, fmt.Errorf("invalid column %q: %w", t.name, err)
		}
		*t.dst = n - 1
	}

	cols.answers = -1
	if config.AnswersColumn != "" {
		n, err := excelize.ColumnNameToNumber(config.AnswersColumn)
		if err != nil {
			return cols, fmt.Errorf("invalid column %q: %w", config.AnswersColumn, err)
		}
		cols.answers = n - 1
	}
	return cols, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(row []string, cols columns) (string, string, progress.Event, error) {
	var ev progress.Event

	userID := cell(row, cols.user)
	topicID := cell(row, cols.topic)
	if userID == "" {
		return "", "", ev, errors.New("user id cannot be empty")
	}
	if topicID == "" {
		return "", "", ev, errors.New("topic id cannot be empty")
	}

	completed, err := parseFlag(cell(row, cols.completed))
	if err != nil {
		return "", "", ev, err
	}
	ev.Completed = completed

	if ev.Score, err = parseIntCell(cell(row, cols.score), "score"); err != nil {
		return "", "", ev, err
	}
	if ev.PointsEarned, err = parseIntCell(cell(row, cols.points), "points"); err != nil {
		return "", "", ev, err
	}

	if raw := cell(row, cols.answers); raw != "" {
		if !json.Valid([]byte(raw)) {
			return "", "", ev, errors.New("answers history is not valid JSON")
		}
		ev.AnswersHistory = models.AnswersHistory(raw)
	}
	return userID, topicID, ev, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y", "x":
		return true, nil
	}
	return false, fmt.Errorf("invalid completed value %q", s)
}

func parseIntCell(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, s)
	}
	return v, nil
}
