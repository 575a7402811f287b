package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mcq-practice-service/internal/domain"
)

// SampleCategories are written by Seed.
var SampleCategories = []domain.Category{
	{ID: "english", Name: "English Language"},
	{ID: "computer", Name: "Computer Information"},
	{ID: "programming", Name: "Programming"},
}

// SampleMCQs are written by Seed, approved.
var SampleMCQs = []domain.MCQ{
	{
		Question:    `What is the synonym of "quick"?`,
		Options:     []string{"Slow", "Rapid", "Late", "Dull"},
		AnswerIndex: 1,
		Explanation: "Quick and rapid are synonyms.",
		CategoryID:  "english",
	},
	{
		Question:    "Which device is an input device?",
		Options:     []string{"Monitor", "Keyboard", "Printer", "Speaker"},
		AnswerIndex: 1,
		Explanation: "Keyboard is used to input data.",
		CategoryID:  "computer",
	},
	{
		Question:    "Which language runs in a browser?",
		Options:     []string{"C++", "Java", "Python", "JavaScript"},
		AnswerIndex: 3,
		Explanation: "JavaScript runs in all major browsers.",
		CategoryID:  "programming",
	},
}

// Seed merge-writes the sample categories and adds the sample MCQs. Running
// it twice duplicates the MCQs.
func (s *Service) Seed(ctx context.Context) (domain.ImportReport, error) {
	for _, cat := range SampleCategories {
		if err := s.SaveCategory(ctx, cat); err != nil {
			return domain.ImportReport{}, fmt.Errorf("seed: %w", err)
		}
	}

	report := domain.ImportReport{IDs: make([]string, 0, len(SampleMCQs))}
	for _, mcq := range SampleMCQs {
		id, err := s.CreateMCQAsAdmin(ctx, mcq)
		if err != nil {
			return report, fmt.Errorf("seed: %w", err)
		}
		report.Imported++
		report.IDs = append(report.IDs, id)
	}
	s.logger.Info("sample data seeded", zap.Int("categories", len(SampleCategories)), zap.Int("mcqs", report.Imported))
	return report, nil
}
