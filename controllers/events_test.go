package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func (env *testEnv) createEvent(t *testing.T, fields map[string]interface{}) uint {
	t.Helper()
	body := map[string]interface{}{
		"title":       "Policy briefing",
		"location":    "Town hall",
		"startsAt":    time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"isPublished": true,
	}
	for k, v := range fields {
		body[k] = v
	}
	w := env.do(t, http.MethodPost, "/api/events", body, env.admin)
	expectStatus(t, w, http.StatusCreated)
	return dataID(t, w)
}

func TestDeleteEventHardAndSoft(t *testing.T) {
	env := newTestEnv(t)

	empty := env.createEvent(t, nil)
	w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/events/%d", empty), nil, env.admin)
	expectStatus(t, w, http.StatusOK)
	if msg := decode(t, w)["message"]; msg != "Event deleted successfully" {
		t.Fatalf("message = %v", msg)
	}
	expectStatus(t, env.do(t, http.MethodGet, fmt.Sprintf("/api/events/%d", empty), nil, env.admin), http.StatusNotFound)

	booked := env.createEvent(t, nil)
	expectStatus(t, env.do(t, http.MethodPost, fmt.Sprintf("/api/events/%d/rsvp", booked), nil, env.healthcare), http.StatusCreated)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/events/%d", booked), nil, env.admin)
	expectStatus(t, w, http.StatusOK)
	body := decode(t, w)
	if body["message"] != "Event cancelled because it has existing RSVPs" {
		t.Fatalf("message = %v", body["message"])
	}
	if status := body["data"].(map[string]interface{})["status"]; status != "CANCELLED" {
		t.Fatalf("status = %v, want CANCELLED", status)
	}

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/events/%d/rsvp", booked), nil, env.finance)
	expectError(t, w, http.StatusBadRequest, "Event has been cancelled")
}

func TestEventCapacity(t *testing.T) {
	env := newTestEnv(t)
	id := env.createEvent(t, map[string]interface{}{"maxAttendees": 1})

	expectStatus(t, env.do(t, http.MethodPost, fmt.Sprintf("/api/events/%d/rsvp", id), nil, env.healthcare), http.StatusCreated)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/events/%d/rsvp", id), nil, env.healthcare)
	expectError(t, w, http.StatusBadRequest, "Your organization has already RSVPed to this event")

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/events/%d/rsvp", id), nil, env.finance)
	expectError(t, w, http.StatusBadRequest, "Event is full")

	expectStatus(t, env.do(t, http.MethodDelete, fmt.Sprintf("/api/events/%d/rsvp", id), nil, env.healthcare), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPost, fmt.Sprintf("/api/events/%d/rsvp", id), nil, env.finance), http.StatusCreated)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/events/%d", id), nil, env.admin)
	expectStatus(t, w, http.StatusOK)
	if got := decode(t, w)["confirmedAttendees"]; got != float64(1) {
		t.Fatalf("confirmedAttendees = %v, want 1", got)
	}
}

func TestEventRSVPHonoursAudience(t *testing.T) {
	env := newTestEnv(t)
	tagged := env.createEvent(t, map[string]interface{}{"tags": []string{"healthcare"}})
	if got := env.mailer.recipients(); len(got) != 1 || got[0] != env.healthcare.Email {
		t.Fatalf("recipients = %v", got)
	}

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/events/%d/rsvp", tagged), nil, env.finance)
	expectError(t, w, http.StatusNotFound, "Event not found")

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/events/%d/rsvp", tagged), map[string]interface{}{"attendees": 80}, env.healthcare)
	expectError(t, w, http.StatusBadRequest, "Attendees must be between 1 and 50")
}

func TestPublicEventsAndRSVP(t *testing.T) {
	env := newTestEnv(t)
	open := env.createEvent(t, nil)
	members := env.createEvent(t, map[string]interface{}{"tags": []string{"finance"}})
	env.createEvent(t, map[string]interface{}{"isPublished": false})

	w := env.do(t, http.MethodGet, "/api/events/public", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode(t, w)["count"]; got != float64(1) {
		t.Fatalf("public count = %v, want 1", got)
	}
	expectStatus(t, env.do(t, http.MethodGet, fmt.Sprintf("/api/events/public/%d", members), nil, nil), http.StatusNotFound)

	rsvp := map[string]interface{}{"name": "Dana Guest", "email": "Dana@Example.org", "attendees": 2}
	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/events/public/%d/rsvp", open), rsvp, nil)
	expectStatus(t, w, http.StatusCreated)
	if code, _ := decode(t, w)["confirmationCode"].(string); code == "" {
		t.Fatalf("missing confirmation code: %s", w.Body.String())
	}

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/events/public/%d/rsvp", open), rsvp, nil)
	expectError(t, w, http.StatusBadRequest, "This email has already RSVPed to this event")

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/events/public/%d/rsvp", members), rsvp, nil)
	expectError(t, w, http.StatusNotFound, "Event not found")

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/events/public/%d", open), nil, nil)
	expectStatus(t, w, http.StatusOK)
}

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/events", map[string]interface{}{"title": "No date"}, env.admin)
	expectError(t, w, http.StatusBadRequest, "Title and start time are required")

	start := time.Now().Add(48 * time.Hour).UTC()
	w = env.do(t, http.MethodPost, "/api/events", map[string]interface{}{
		"title":    "Backwards",
		"startsAt": start.Format(time.RFC3339),
		"endsAt":   start.Add(-time.Hour).Format(time.RFC3339),
	}, env.admin)
	expectError(t, w, http.StatusBadRequest, "End time must be after start time")
}
