// Package eval runs a fixed question set through the answer pipeline and
// writes the predictions file.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sec-rag/internal/contextutil"
	"sec-rag/internal/rag"
)

// Question is one entry of the questions file. The ID is kept verbatim so
// numeric and string IDs round-trip unchanged.
type Question struct {
	ID       json.RawMessage `json:"question_id"`
	Question string          `json:"question"`
}

// Prediction is one entry of the predictions file.
type Prediction struct {
	QuestionID json.RawMessage `json:"question_id"`
	Answer     string          `json:"answer"`
	Sources    []string        `json:"sources"`
}

// AnswerFunc answers one question. Refusals are answers, so it cannot fail.
type AnswerFunc func(ctx context.Context, question string) rag.QueryResult

// LoadQuestions reads a JSON array of questions.
func LoadQuestions(path string) ([]Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}
	var questions []Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse questions %s: %w", path, err)
	}
	for i, q := range questions {
		if len(q.ID) == 0 {
			return nil, fmt.Errorf("question %d has no question_id", i)
		}
	}
	return questions, nil
}

// Run answers every question in order. It stops when ctx is cancelled.
func Run(ctx context.Context, answer AnswerFunc, questions []Question) ([]Prediction, error) {
	logger := contextutil.LoggerFromContext(ctx)
	predictions := make([]Prediction, 0, len(questions))
	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("eval stopped after %d of %d questions: %w", i, len(questions), err)
		}
		res := answer(ctx, q.Question)
		sources := res.Sources
		if sources == nil {
			sources = []string{}
		}
		predictions = append(predictions, Prediction{
			QuestionID: q.ID,
			Answer:     res.Answer,
			Sources:    sources,
		})
		logger.DebugContext(ctx, "question answered", "question_id", string(q.ID), "sources", len(sources))
	}
	return predictions, nil
}

// WritePredictions writes predictions as indented JSON, creating parent
// directories as needed.
func WritePredictions(path string, predictions []Prediction) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	raw, err := json.MarshalIndent(predictions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode predictions: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write predictions: %w", err)
	}
	return nil
}
