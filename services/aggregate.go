package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"coalition-api/models"
)

// ResponseEntry is the aggregation view of an alert or survey response.
type ResponseEntry struct {
	OrganizationID   uint
	OrganizationName string
	Answers          map[string]interface{}
	SubmittedAt      time.Time
}

type OptionStat struct {
	Option        string   `json:"option"`
	Count         int      `json:"count"`
	Organizations []string `json:"organizations"`
}

type RatingBucket struct {
	Value         float64  `json:"value"`
	Count         int      `json:"count"`
	Organizations []string `json:"organizations"`
}

type TextAnswer struct {
	Answer       string `json:"answer"`
	Organization string `json:"organization"`
}

type QuestionStats struct {
	QuestionID  string              `json:"questionId"`
	Text        string              `json:"text"`
	Type        models.QuestionType `json:"type"`
	Answered    int                 `json:"answered"`
	NoAnswer    int                 `json:"noAnswer"`
	Options     []OptionStat        `json:"options,omitempty"`
	Ratings     []RatingBucket      `json:"ratings,omitempty"`
	Average     *float64            `json:"average,omitempty"`
	TextAnswers []TextAnswer        `json:"textAnswers,omitempty"`
}

type Summary struct {
	TotalResponses int             `json:"totalResponses"`
	Questions      []QuestionStats `json:"questions"`
}

// Aggregate tabulates responses per question. Missing or empty answers are
// counted in NoAnswer and never reach a bucket.
func Aggregate(questions []models.Question, responses []ResponseEntry) Summary {
	summary := Summary{
		TotalResponses: len(responses),
		Questions:      make([]QuestionStats, 0, len(questions)),
	}
	for _, q := range questions {
		var stats QuestionStats
		switch {
		case q.IsChoice():
			stats = aggregateChoice(q, responses)
		case q.Type == models.QuestionRating:
			stats = aggregateRating(q, responses)
		default:
			stats = aggregateText(q, responses)
		}
		stats.QuestionID = q.ID
		stats.Text = q.Text
		stats.Type = q.Type
		summary.Questions = append(summary.Questions, stats)
	}
	return summary
}

func aggregateChoice(q models.Question, responses []ResponseEntry) QuestionStats {
	var stats QuestionStats

	listed := make([]*OptionStat, 0, len(q.Options))
	var unlisted []*OptionStat
	index := make(map[string]*OptionStat, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := index[opt]; dup {
			continue
		}
		b := &OptionStat{Option: opt, Organizations: []string{}}
		index[opt] = b
		listed = append(listed, b)
	}

	for _, r := range responses {
		values := choiceValues(r.Answers[q.ID])
		if len(values) == 0 {
			stats.NoAnswer++
			continue
		}
		stats.Answered++
		for _, v := range values {
			b, ok := index[v]
			if !ok {
				b = &OptionStat{Option: v, Organizations: []string{}}
				index[v] = b
				unlisted = append(unlisted, b)
			}
			b.Count++
			b.Organizations = append(b.Organizations, r.OrganizationName)
		}
	}

	// Listed options keep their declared order on ties. Values outside the
	// option list follow them, by count and then by value.
	sort.SliceStable(listed, func(i, j int) bool { return listed[i].Count > listed[j].Count })
	sort.Slice(unlisted, func(i, j int) bool {
		if unlisted[i].Count != unlisted[j].Count {
			return unlisted[i].Count > unlisted[j].Count
		}
		return unlisted[i].Option < unlisted[j].Option
	})

	stats.Options = make([]OptionStat, 0, len(listed)+len(unlisted))
	for _, b := range listed {
		stats.Options = append(stats.Options, *b)
	}
	for _, b := range unlisted {
		stats.Options = append(stats.Options, *b)
	}
	return stats
}

func aggregateRating(q models.Question, responses []ResponseEntry) QuestionStats {
	var stats QuestionStats
	buckets := map[float64]*RatingBucket{}
	var sum float64

	for _, r := range responses {
		v, ok := numericValue(r.Answers[q.ID])
		if !ok {
			stats.NoAnswer++
			continue
		}
		stats.Answered++
		sum += v
		b, exists := buckets[v]
		if !exists {
			b = &RatingBucket{Value: v, Organizations: []string{}}
			buckets[v] = b
		}
		b.Count++
		b.Organizations = append(b.Organizations, r.OrganizationName)
	}

	stats.Ratings = make([]RatingBucket, 0, len(buckets))
	for _, b := range buckets {
		stats.Ratings = append(stats.Ratings, *b)
	}
	sort.Slice(stats.Ratings, func(i, j int) bool { return stats.Ratings[i].Value < stats.Ratings[j].Value })

	if stats.Answered > 0 {
		avg := sum / float64(stats.Answered)
		stats.Average = &avg
	}
	return stats
}

func aggregateText(q models.Question, responses []ResponseEntry) QuestionStats {
	stats := QuestionStats{TextAnswers: []TextAnswer{}}
	for _, r := range responses {
		text, ok := textValue(r.Answers[q.ID])
		if !ok {
			stats.NoAnswer++
			continue
		}
		stats.Answered++
		stats.TextAnswers = append(stats.TextAnswers, TextAnswer{Answer: text, Organization: r.OrganizationName})
	}
	return stats
}

// choiceValues flattens a single or multi select answer. Repeated values
// within one answer count once.
func choiceValues(raw interface{}) []string {
	var values []string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(v); s != "" {
			values = append(values, s)
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				values = append(values, s)
			}
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := textValue(item); ok {
				values = append(values, s)
			}
		}
	default:
		if s, ok := textValue(v); ok {
			values = append(values, s)
		}
	}

	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, s := range values {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func numericValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func textValue(raw interface{}) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case []interface{}, map[string]interface{}:
		return "", false
	}
	s := strings.TrimSpace(fmt.Sprint(raw))
	return s, s != ""
}
