package controllers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"coalition-api/models"
)

func (env *testEnv) publishedAlert(t *testing.T, tags []string) uint {
	t.Helper()
	body := draftAlert(tags)
	body["isPublished"] = true
	return env.createAlert(t, body)
}

func TestDuplicateAlertResponseKeepsOriginal(t *testing.T) {
	env := newTestEnv(t)
	id := env.publishedAlert(t, nil)

	w := env.do(t, http.MethodPost, "/api/alert-responses", map[string]interface{}{
		"alertId": id,
		"answers": map[string]interface{}{"q1": "A"},
	}, env.healthcare)
	expectStatus(t, w, http.StatusCreated)

	w = env.do(t, http.MethodPost, "/api/alert-responses", map[string]interface{}{
		"alertId": id,
		"answers": map[string]interface{}{"q1": "B"},
	}, env.healthcare)
	expectError(t, w, http.StatusBadRequest, "Your organization has already responded to this alert")

	rows, err := env.store.Responses.AlertResponsesByOrganization(context.Background(), env.healthcare.ID)
	if err != nil {
		t.Fatalf("load responses: %v", err)
	}
	if len(rows) != 1 || rows[0].Answers["q1"] != "A" {
		t.Fatalf("stored responses = %+v, want one answer A", rows)
	}
}

func TestAlertResponseRules(t *testing.T) {
	env := newTestEnv(t)
	tagged := env.publishedAlert(t, []string{"healthcare"})

	cases := []struct {
		name    string
		as      *models.Organization
		body    map[string]interface{}
		status  int
		message string
	}{
		{
			name:    "admin cannot respond",
			as:      env.admin,
			body:    map[string]interface{}{"alertId": tagged, "answers": map[string]interface{}{"q1": "A"}},
			status:  http.StatusForbidden,
			message: "Only member organizations can respond",
		},
		{
			name:    "outside the audience",
			as:      env.finance,
			body:    map[string]interface{}{"alertId": tagged, "answers": map[string]interface{}{"q1": "A"}},
			status:  http.StatusForbidden,
			message: "Access denied",
		},
		{
			name:   "unknown alert",
			as:     env.finance,
			body:   map[string]interface{}{"alertId": 999, "answers": map[string]interface{}{"q1": "A"}},
			status: http.StatusNotFound,
		},
	}
	for _, tc := range cases {
		w := env.do(t, http.MethodPost, "/api/alert-responses", tc.body, tc.as)
		expectStatus(t, w, tc.status)
		if tc.message != "" {
			if got := decode(t, w)["error"]; got != tc.message {
				t.Fatalf("%s: error = %v, want %q", tc.name, got, tc.message)
			}
		}
	}

	w := env.do(t, http.MethodPost, "/api/alert-responses", map[string]interface{}{
		"alertId": tagged,
		"answers": map[string]interface{}{"q1": "C"},
	}, env.healthcare)
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodPost, "/api/alert-responses", map[string]interface{}{
		"alertId": tagged,
		"answers": map[string]interface{}{},
	}, env.healthcare)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestAlertSummaryCountsChoices(t *testing.T) {
	env := newTestEnv(t)
	third := env.addOrganization(t, "Food Bank", "food@example.org", models.RoleMember, []string{"food"})
	id := env.publishedAlert(t, nil)

	for org, answer := range map[uint]string{env.healthcare.ID: "A", env.finance.ID: "B", third.ID: "A"} {
		member, _ := env.store.Organizations.FindByID(context.Background(), org)
		w := env.do(t, http.MethodPost, "/api/alert-responses", map[string]interface{}{
			"alertId": id,
			"answers": map[string]interface{}{"q1": answer},
		}, member)
		expectStatus(t, w, http.StatusCreated)
	}

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/alerts/%d/summary", id), nil, env.admin)
	expectStatus(t, w, http.StatusOK)
	summary := decode(t, w)["data"].(map[string]interface{})["summary"].(map[string]interface{})
	if summary["totalResponses"] != float64(3) {
		t.Fatalf("totalResponses = %v, want 3", summary["totalResponses"])
	}
	question := summary["questions"].([]interface{})[0].(map[string]interface{})
	counts := map[string]float64{}
	for _, raw := range question["options"].([]interface{}) {
		opt := raw.(map[string]interface{})
		counts[opt["option"].(string)] = opt["count"].(float64)
	}
	if counts["A"] != 2 || counts["B"] != 1 {
		t.Fatalf("option counts = %v, want A:2 B:1", counts)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/alert-responses?alertId=%d&limit=2", id), nil, env.admin)
	expectStatus(t, w, http.StatusOK)
	body := decode(t, w)
	if rows := body["data"].([]interface{}); len(rows) != 2 {
		t.Fatalf("page size = %d, want 2", len(rows))
	}
	pagination := body["pagination"].(map[string]interface{})
	if pagination["total"] != float64(3) || pagination["totalPages"] != float64(2) {
		t.Fatalf("pagination = %v", pagination)
	}

	w = env.do(t, http.MethodGet, "/api/alert-responses/mine", nil, env.finance)
	expectStatus(t, w, http.StatusOK)
	if got := decode(t, w)["count"]; got != float64(1) {
		t.Fatalf("mine count = %v, want 1", got)
	}
}

func TestSurveyLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/surveys", map[string]interface{}{"title": "Empty"}, env.admin)
	expectError(t, w, http.StatusBadRequest, "At least one question is required")

	w = env.do(t, http.MethodPost, "/api/surveys", map[string]interface{}{
		"title":       "Member satisfaction",
		"isPublished": true,
		"questions": []map[string]interface{}{
			{"id": "r1", "type": "rating", "text": "How satisfied are you?", "required": true},
			{"id": "t1", "type": "text", "text": "Anything else?"},
		},
	}, env.admin)
	expectStatus(t, w, http.StatusCreated)
	id := dataID(t, w)
	if n := env.mailer.count(); n != 2 {
		t.Fatalf("emails = %d, want 2", n)
	}

	w = env.do(t, http.MethodPost, "/api/survey-responses", map[string]interface{}{
		"surveyId": id,
		"answers":  map[string]interface{}{"r1": 9},
	}, env.healthcare)
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodPost, "/api/survey-responses", map[string]interface{}{
		"surveyId": id,
		"answers":  map[string]interface{}{"r1": 4, "t1": "Great newsletter"},
	}, env.healthcare)
	expectStatus(t, w, http.StatusCreated)

	w = env.do(t, http.MethodPost, "/api/survey-responses", map[string]interface{}{
		"surveyId": id,
		"answers":  map[string]interface{}{"r1": 5},
	}, env.healthcare)
	expectError(t, w, http.StatusBadRequest, "Your organization has already responded to this survey")

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/surveys/%d", id), map[string]interface{}{
		"questions": []map[string]interface{}{{"id": "x", "type": "text", "text": "Replaced"}},
	}, env.admin)
	expectError(t, w, http.StatusBadRequest, "Questions cannot be changed after responses have been submitted")

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/surveys/%d/summary", id), nil, env.admin)
	expectStatus(t, w, http.StatusOK)
	summary := decode(t, w)["data"].(map[string]interface{})["summary"].(map[string]interface{})
	if summary["totalResponses"] != float64(1) {
		t.Fatalf("totalResponses = %v, want 1", summary["totalResponses"])
	}

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/surveys/%d", id), nil, env.admin)
	expectStatus(t, w, http.StatusOK)
	if status := decode(t, w)["data"].(map[string]interface{})["status"]; status != "CLOSED" {
		t.Fatalf("status = %v, want CLOSED", status)
	}

	w = env.do(t, http.MethodPost, "/api/survey-responses", map[string]interface{}{
		"surveyId": id,
		"answers":  map[string]interface{}{"r1": 3},
	}, env.finance)
	expectStatus(t, w, http.StatusBadRequest)
}
