package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"mcq-practice-service/internal/domain"
)

// CSVColumns is the header an MCQ import file must carry, in any order.
var CSVColumns = []string{
	"question", "option1", "option2", "option3", "option4",
	"answerIndex", "categoryId", "subcategoryId", "explanation",
}

// ParseMCQsCSV reads MCQ rows from r. Rows without a question, with an empty
// option or with a categoryId containing '.' or '/' are skipped; an
// unparsable answerIndex becomes 0.
func ParseMCQsCSV(r io.Reader) ([]domain.MCQ, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("csv: empty input: %w", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("csv header: %w", domain.ErrInvalidInput)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))] = i
	}
	for _, name := range CSVColumns {
		if _, ok := col[name]; !ok {
			return nil, 0, fmt.Errorf("csv: missing column %q: %w", name, domain.ErrInvalidInput)
		}
	}

	var (
		mcqs    []domain.MCQ
		skipped int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("csv: %v: %w", err, domain.ErrInvalidInput)
		}
		field := func(name string) string {
			i := col[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		mcq := domain.MCQ{
			Question:      field("question"),
			Options:       []string{field("option1"), field("option2"), field("option3"), field("option4")},
			CategoryID:    field("categoryId"),
			SubcategoryID: field("subcategoryId"),
			Explanation:   field("explanation"),
		}
		mcq.AnswerIndex, _ = strconv.Atoi(field("answerIndex"))
		if !completeRow(mcq) {
			skipped++
			continue
		}
		mcqs = append(mcqs, mcq)
	}
	return mcqs, skipped, nil
}

func completeRow(mcq domain.MCQ) bool {
	if mcq.Question == "" || checkKey("category id", mcq.CategoryID) != nil {
		return false
	}
	for _, opt := range mcq.Options {
		if opt == "" {
			return false
		}
	}
	return true
}

// ImportMCQsCSV parses r and stores every valid row as an approved MCQ.
// Rows already written stay written when a later write fails.
func (s *Service) ImportMCQsCSV(ctx context.Context, r io.Reader) (domain.ImportReport, error) {
	mcqs, skipped, err := ParseMCQsCSV(r)
	if err != nil {
		return domain.ImportReport{}, err
	}

	report := domain.ImportReport{Skipped: skipped, IDs: make([]string, 0, len(mcqs))}
	for _, mcq := range mcqs {
		id, err := s.CreateMCQAsAdmin(ctx, mcq)
		if err != nil {
			return report, fmt.Errorf("import row %d: %w", report.Imported+1, err)
		}
		report.Imported++
		report.IDs = append(report.IDs, id)
	}
	s.logger.Info("mcqs imported", zap.Int("imported", report.Imported), zap.Int("skipped", report.Skipped))
	return report, nil
}
