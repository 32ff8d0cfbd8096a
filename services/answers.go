package services

import (
	"errors"
	"fmt"

	"coalition-api/models"
)

var ErrInvalidAnswers = errors.New("invalid answers")

// ValidateAnswers checks submitted answers against the question schema and
// returns the answers restricted to known questions.
func ValidateAnswers(questions []models.Question, answers map[string]interface{}) (map[string]interface{}, error) {
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	for id := range answers {
		if !known[id] {
			return nil, fmt.Errorf("%w: unknown question %q", ErrInvalidAnswers, id)
		}
	}

	clean := make(map[string]interface{}, len(answers))
	for _, q := range questions {
		raw, present := answers[q.ID]
		if !present || isEmptyAnswer(raw) {
			if q.Required {
				return nil, fmt.Errorf("%w: question %q is required", ErrInvalidAnswers, q.ID)
			}
			continue
		}

		switch q.Type {
		case models.QuestionMultipleChoice:
			s, ok := raw.(string)
			if !ok || !hasOption(q.Options, s) {
				return nil, fmt.Errorf("%w: question %q must be one of its options", ErrInvalidAnswers, q.ID)
			}
			clean[q.ID] = s
		case models.QuestionCheckbox:
			values, ok := raw.([]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: question %q expects a list of options", ErrInvalidAnswers, q.ID)
			}
			for _, item := range values {
				s, ok := item.(string)
				if !ok || !hasOption(q.Options, s) {
					return nil, fmt.Errorf("%w: question %q has an unknown option", ErrInvalidAnswers, q.ID)
				}
			}
			clean[q.ID] = values
		case models.QuestionRating:
			v, ok := numericValue(raw)
			lo, hi := q.RatingBounds()
			if !ok || v < lo || v > hi {
				return nil, fmt.Errorf("%w: question %q must be between %g and %g", ErrInvalidAnswers, q.ID, lo, hi)
			}
			clean[q.ID] = v
		case models.QuestionText:
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: question %q expects text", ErrInvalidAnswers, q.ID)
			}
			clean[q.ID] = s
		}
	}
	return clean, nil
}

func isEmptyAnswer(raw interface{}) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	}
	return false
}

func hasOption(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
