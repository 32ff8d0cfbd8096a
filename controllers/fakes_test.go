package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"coalition-api/cache"
	"coalition-api/middleware"
	"coalition-api/models"
	"coalition-api/repository"
	"coalition-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// memDB is an in-memory stand-in for the gorm repositories. Reads and
// writes copy rows so handlers cannot mutate stored state without Update.
type memDB struct {
	mu     sync.Mutex
	nextID uint
	// membersErr fails ListActiveMembers when set.
	membersErr error

	orgs            map[uint]*models.Organization
	alerts          map[uint]*models.Alert
	announcements   map[uint]*models.Announcement
	events          map[uint]*models.Event
	rsvps           map[uint]*models.EventRSVP
	surveys         map[uint]*models.Survey
	alertResponses  map[uint]*models.AlertResponse
	surveyResponses map[uint]*models.SurveyResponse
	emails          map[uint]*models.EmailHistory
	pages           map[uint]*models.PageContent
}

func newMemDB() *memDB {
	return &memDB{
		orgs:            map[uint]*models.Organization{},
		alerts:          map[uint]*models.Alert{},
		announcements:   map[uint]*models.Announcement{},
		events:          map[uint]*models.Event{},
		rsvps:           map[uint]*models.EventRSVP{},
		surveys:         map[uint]*models.Survey{},
		alertResponses:  map[uint]*models.AlertResponse{},
		surveyResponses: map[uint]*models.SurveyResponse{},
		emails:          map[uint]*models.EmailHistory{},
		pages:           map[uint]*models.PageContent{},
	}
}

func (m *memDB) store() *repository.Store {
	return &repository.Store{
		Organizations: memOrganizations{m},
		Alerts:        memAlerts{m},
		Announcements: memAnnouncements{m},
		Events:        memEvents{m},
		Surveys:       memSurveys{m},
		Responses:     memResponses{m},
		Emails:        memEmails{m},
		PageContent:   memPages{m},
	}
}

func (m *memDB) id() uint {
	m.nextID++
	return m.nextID
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func alertState(a *models.Alert) *models.PublishState { return &a.PublishState }
func announcementState(a *models.Announcement) *models.PublishState { return &a.PublishState }
func eventState(e *models.Event) *models.PublishState { return &e.PublishState }
func surveyState(s *models.Survey) *models.PublishState { return &s.PublishState }

// updateContent replaces a content row but keeps its stored notification
// time, like the gorm update that omits notified_at.
func updateContent[T any](rows map[uint]*T, id uint, v *T, state func(*T) *models.PublishState) error {
	stored, ok := rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	next := clone(v)
	state(next).NotifiedAt = state(stored).NotifiedAt
	rows[id] = next
	return nil
}

func publishContent[T any](rows map[uint]*T, id uint, at time.Time, state func(*T) *models.PublishState) (bool, error) {
	row, ok := rows[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	return state(row).MarkPublished(at), nil
}

func claimContent[T any](rows map[uint]*T, id uint, at time.Time, state func(*T) *models.PublishState) (bool, error) {
	row, ok := rows[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !state(row).NeedsNotification() {
		return false, nil
	}
	state(row).MarkNotified(at)
	return true, nil
}

func sortedIDs[T any](rows map[uint]*T) []uint {
	ids := make([]uint, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func find[T any](rows map[uint]*T, id uint) (*T, error) {
	row, ok := rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(row), nil
}

func replace[T any](rows map[uint]*T, id uint, v *T) error {
	if _, ok := rows[id]; !ok {
		return repository.ErrNotFound
	}
	rows[id] = clone(v)
	return nil
}

func remove[T any](rows map[uint]*T, id uint) error {
	if _, ok := rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(rows, id)
	return nil
}

func paginate[T any](rows []T, page models.PageRequest) []T {
	start := page.Offset()
	if start >= len(rows) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

/* organizations */

type memOrganizations struct{ *memDB }

func (r memOrganizations) Create(_ context.Context, org *models.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orgs {
		if strings.EqualFold(existing.Email, org.Email) {
			return repository.ErrDuplicate
		}
	}
	org.ID = r.id()
	org.CreatedAt = time.Now()
	r.orgs[org.ID] = clone(org)
	return nil
}

func (r memOrganizations) FindByID(_ context.Context, id uint) (*models.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return find(r.orgs, id)
}

func (r memOrganizations) FindByEmail(_ context.Context, email string) (*models.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, org := range r.orgs {
		if strings.EqualFold(org.Email, email) {
			return clone(org), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memOrganizations) List(_ context.Context, filter repository.OrganizationFilter) ([]models.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Organization{}
	for _, id := range sortedIDs(r.orgs) {
		org := r.orgs[id]
		if filter.Status != "" && org.Status != filter.Status {
			continue
		}
		if filter.Role != "" && org.Role != filter.Role {
			continue
		}
		if filter.Tag != "" && !services.TagsIntersect(org.Tags, []string{filter.Tag}) {
			continue
		}
		if filter.Region != "" && org.Region != filter.Region {
			continue
		}
		if filter.Size != "" && org.Size != filter.Size {
			continue
		}
		out = append(out, *org)
	}
	return out, nil
}

func (r memOrganizations) ListActiveMembers(ctx context.Context) ([]models.Organization, error) {
	r.mu.Lock()
	err := r.membersErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.List(ctx, repository.OrganizationFilter{Status: models.OrganizationActive, Role: models.RoleMember})
}

func (r memOrganizations) Update(_ context.Context, org *models.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return replace(r.orgs, org.ID, org)
}

func (r memOrganizations) CountByStatus(context.Context) (map[models.OrganizationStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[models.OrganizationStatus]int64{}
	for _, org := range r.orgs {
		counts[org.Status]++
	}
	return counts, nil
}

/* alerts */

type memAlerts struct{ *memDB }

func (r memAlerts) Create(_ context.Context, a *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.id()
	r.alerts[a.ID] = clone(a)
	return nil
}

func (r memAlerts) FindByID(_ context.Context, id uint) (*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return find(r.alerts, id)
}

func (r memAlerts) List(_ context.Context, filter repository.AlertFilter) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Alert{}
	for _, id := range sortedIDs(r.alerts) {
		a := r.alerts[id]
		if filter.PublishedOnly && !a.Published {
			continue
		}
		if filter.Priority != "" && a.Priority != filter.Priority {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r memAlerts) Update(_ context.Context, a *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return updateContent(r.alerts, a.ID, a, alertState)
}

func (r memAlerts) Publish(_ context.Context, id uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return publishContent(r.alerts, id, at, alertState)
}

func (r memAlerts) ClaimNotification(_ context.Context, id uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return claimContent(r.alerts, id, at, alertState)
}

func (r memAlerts) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return remove(r.alerts, id)
}

func (r memAlerts) CountPublished(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.alerts {
		if a.Published {
			n++
		}
	}
	return n, nil
}

/* announcements */

type memAnnouncements struct{ *memDB }

func (r memAnnouncements) Create(_ context.Context, a *models.Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.id()
	r.announcements[a.ID] = clone(a)
	return nil
}

func (r memAnnouncements) FindByID(_ context.Context, id uint) (*models.Announcement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return find(r.announcements, id)
}

func (r memAnnouncements) List(_ context.Context, publishedOnly bool) ([]models.Announcement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Announcement{}
	for _, id := range sortedIDs(r.announcements) {
		a := r.announcements[id]
		if publishedOnly && !a.Published {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r memAnnouncements) Update(_ context.Context, a *models.Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return updateContent(r.announcements, a.ID, a, announcementState)
}

func (r memAnnouncements) Publish(_ context.Context, id uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return publishContent(r.announcements, id, at, announcementState)
}

func (r memAnnouncements) ClaimNotification(_ context.Context, id uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return claimContent(r.announcements, id, at, announcementState)
}

func (r memAnnouncements) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return remove(r.announcements, id)
}

func (r memAnnouncements) CountPublished(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.announcements {
		if a.Published {
			n++
		}
	}
	return n, nil
}

/* events */

type memEvents struct{ *memDB }

func (r memEvents) Create(_ context.Context, e *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = r.id()
	r.events[e.ID] = clone(e)
	return nil
}

func (r memEvents) FindByID(_ context.Context, id uint) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return find(r.events, id)
}

func (r memEvents) List(_ context.Context, filter repository.EventFilter) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Event{}
	for _, id := range sortedIDs(r.events) {
		e := r.events[id]
		if filter.PublishedOnly && !e.Published {
			continue
		}
		if filter.UpcomingFrom != nil && e.StartsAt.Before(*filter.UpcomingFrom) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r memEvents) Update(_ context.Context, e *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return updateContent(r.events, e.ID, e, eventState)
}

func (r memEvents) Publish(_ context.Context, id uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return publishContent(r.events, id, at, eventState)
}

func (r memEvents) ClaimNotification(_ context.Context, id uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return claimContent(r.events, id, at, eventState)
}

func (r memEvents) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return remove(r.events, id)
}

func (r memEvents) CountPublished(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.events {
		if e.Published {
			n++
		}
	}
	return n, nil
}

func (r memEvents) CreateRSVP(_ context.Context, rsvp *models.EventRSVP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rsvps {
		if existing.EventID != rsvp.EventID {
			continue
		}
		sameOrg := existing.OrganizationID != nil && rsvp.OrganizationID != nil &&
			*existing.OrganizationID == *rsvp.OrganizationID
		if sameOrg || strings.EqualFold(existing.Email, rsvp.Email) {
			return repository.ErrDuplicate
		}
	}
	rsvp.ID = r.id()
	r.rsvps[rsvp.ID] = clone(rsvp)
	return nil
}

func (r memEvents) FindRSVPByOrganization(_ context.Context, eventID, orgID uint) (*models.EventRSVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rsvp := range r.rsvps {
		if rsvp.EventID == eventID && rsvp.OrganizationID != nil && *rsvp.OrganizationID == orgID {
			return clone(rsvp), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memEvents) FindRSVPByEmail(_ context.Context, eventID uint, email string) (*models.EventRSVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rsvp := range r.rsvps {
		if rsvp.EventID == eventID && strings.EqualFold(rsvp.Email, email) {
			return clone(rsvp), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memEvents) UpdateRSVP(_ context.Context, rsvp *models.EventRSVP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return replace(r.rsvps, rsvp.ID, rsvp)
}

func (r memEvents) ListRSVPs(_ context.Context, eventID uint) ([]models.EventRSVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.EventRSVP{}
	for _, id := range sortedIDs(r.rsvps) {
		if r.rsvps[id].EventID == eventID {
			out = append(out, *r.rsvps[id])
		}
	}
	return out, nil
}

func (r memEvents) CountRSVPs(_ context.Context, eventID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rsvp := range r.rsvps {
		if rsvp.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (r memEvents) ConfirmedAttendees(_ context.Context, eventID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rsvp := range r.rsvps {
		if rsvp.EventID == eventID && rsvp.Status == models.RSVPConfirmed {
			n += int64(rsvp.Attendees)
		}
	}
	return n, nil
}

/* surveys */

type memSurveys struct{ *memDB }

func (r memSurveys) Create(_ context.Context, s *models.Survey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.id()
	r.surveys[s.ID] = clone(s)
	return nil
}

func (r memSurveys) FindByID(_ context.Context, id uint) (*models.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return find(r.surveys, id)
}

func (r memSurveys) List(_ context.Context, publishedOnly bool) ([]models.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Survey{}
	for _, id := range sortedIDs(r.surveys) {
		s := r.surveys[id]
		if publishedOnly && !s.Published {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r memSurveys) Update(_ context.Context, s *models.Survey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return updateContent(r.surveys, s.ID, s, surveyState)
}

func (r memSurveys) Publish(_ context.Context, id uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return publishContent(r.surveys, id, at, surveyState)
}

func (r memSurveys) ClaimNotification(_ context.Context, id uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return claimContent(r.surveys, id, at, surveyState)
}

func (r memSurveys) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return remove(r.surveys, id)
}

func (r memSurveys) CountPublished(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.surveys {
		if s.Published {
			n++
		}
	}
	return n, nil
}

/* responses */

type memResponses struct{ *memDB }

func (r memResponses) AlertResponseExists(_ context.Context, alertID, orgID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range r.alertResponses {
		if resp.AlertID == alertID && resp.OrganizationID == orgID {
			return true, nil
		}
	}
	return false, nil
}

func (r memResponses) CreateAlertResponse(ctx context.Context, resp *models.AlertResponse) error {
	if exists, _ := r.AlertResponseExists(ctx, resp.AlertID, resp.OrganizationID); exists {
		return repository.ErrDuplicate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	resp.ID = r.id()
	r.alertResponses[resp.ID] = clone(resp)
	return nil
}

func (r memResponses) alertRows(match func(*models.AlertResponse) bool) []models.AlertResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.AlertResponse{}
	for _, id := range sortedIDs(r.alertResponses) {
		if resp := r.alertResponses[id]; match(resp) {
			out = append(out, *resp)
		}
	}
	return out
}

func (r memResponses) ListAlertResponses(_ context.Context, alertID uint, page models.PageRequest) ([]models.AlertResponse, int64, error) {
	rows := r.alertRows(func(resp *models.AlertResponse) bool { return alertID == 0 || resp.AlertID == alertID })
	return paginate(rows, page), int64(len(rows)), nil
}

func (r memResponses) AllAlertResponses(_ context.Context, alertID uint) ([]models.AlertResponse, error) {
	return r.alertRows(func(resp *models.AlertResponse) bool { return resp.AlertID == alertID }), nil
}

func (r memResponses) AlertResponsesByOrganization(_ context.Context, orgID uint) ([]models.AlertResponse, error) {
	return r.alertRows(func(resp *models.AlertResponse) bool { return resp.OrganizationID == orgID }), nil
}

func (r memResponses) CountAlertResponses(ctx context.Context, alertID uint) (int64, error) {
	rows, _ := r.AllAlertResponses(ctx, alertID)
	return int64(len(rows)), nil
}

func (r memResponses) SurveyResponseExists(_ context.Context, surveyID, orgID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range r.surveyResponses {
		if resp.SurveyID == surveyID && resp.OrganizationID == orgID {
			return true, nil
		}
	}
	return false, nil
}

func (r memResponses) CreateSurveyResponse(ctx context.Context, resp *models.SurveyResponse) error {
	if exists, _ := r.SurveyResponseExists(ctx, resp.SurveyID, resp.OrganizationID); exists {
		return repository.ErrDuplicate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	resp.ID = r.id()
	r.surveyResponses[resp.ID] = clone(resp)
	return nil
}

func (r memResponses) surveyRows(match func(*models.SurveyResponse) bool) []models.SurveyResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.SurveyResponse{}
	for _, id := range sortedIDs(r.surveyResponses) {
		if resp := r.surveyResponses[id]; match(resp) {
			out = append(out, *resp)
		}
	}
	return out
}

func (r memResponses) ListSurveyResponses(_ context.Context, surveyID uint, page models.PageRequest) ([]models.SurveyResponse, int64, error) {
	rows := r.surveyRows(func(resp *models.SurveyResponse) bool { return surveyID == 0 || resp.SurveyID == surveyID })
	return paginate(rows, page), int64(len(rows)), nil
}

func (r memResponses) AllSurveyResponses(_ context.Context, surveyID uint) ([]models.SurveyResponse, error) {
	return r.surveyRows(func(resp *models.SurveyResponse) bool { return resp.SurveyID == surveyID }), nil
}

func (r memResponses) SurveyResponsesByOrganization(_ context.Context, orgID uint) ([]models.SurveyResponse, error) {
	return r.surveyRows(func(resp *models.SurveyResponse) bool { return resp.OrganizationID == orgID }), nil
}

func (r memResponses) CountSurveyResponses(ctx context.Context, surveyID uint) (int64, error) {
	rows, _ := r.AllSurveyResponses(ctx, surveyID)
	return int64(len(rows)), nil
}

func (r memResponses) CountAll(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.alertResponses) + len(r.surveyResponses)), nil
}

/* email history */

type memEmails struct{ *memDB }

func (r memEmails) Create(_ context.Context, h *models.EmailHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.ID = r.id()
	r.emails[h.ID] = clone(h)
	return nil
}

func (r memEmails) FindByID(_ context.Context, id uint) (*models.EmailHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return find(r.emails, id)
}

func (r memEmails) List(_ context.Context, status models.EmailStatus, page models.PageRequest) ([]models.EmailHistory, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := []models.EmailHistory{}
	for _, id := range sortedIDs(r.emails) {
		if status == "" || r.emails[id].Status == status {
			rows = append(rows, *r.emails[id])
		}
	}
	return paginate(rows, page), int64(len(rows)), nil
}

func (r memEmails) Update(_ context.Context, h *models.EmailHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return replace(r.emails, h.ID, h)
}

func (r memEmails) DeleteScheduled(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.emails[id]
	if !ok {
		return repository.ErrNotFound
	}
	if h.Status != models.EmailScheduled {
		return repository.ErrNotScheduled
	}
	delete(r.emails, id)
	return nil
}

func (r memEmails) DueScheduled(_ context.Context, now time.Time, limit int) ([]models.EmailHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.EmailHistory{}
	for _, id := range sortedIDs(r.emails) {
		h := r.emails[id]
		if h.Status == models.EmailScheduled && h.ScheduledFor != nil && !h.ScheduledFor.After(now) {
			out = append(out, *h)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r memEmails) Claim(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.emails[id]
	if !ok || h.Status != models.EmailScheduled {
		return false, nil
	}
	h.Status = models.EmailSending
	return true, nil
}

func (r memEmails) CountByStatus(_ context.Context, status models.EmailStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, h := range r.emails {
		if h.Status == status {
			n++
		}
	}
	return n, nil
}

/* page content */

type memPages struct{ *memDB }

func (r memPages) ListByPage(_ context.Context, page string) ([]models.PageContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.PageContent{}
	for _, id := range sortedIDs(r.pages) {
		if r.pages[id].Page == page {
			out = append(out, *r.pages[id])
		}
	}
	return out, nil
}

func (r memPages) FindByID(_ context.Context, id uint) (*models.PageContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return find(r.pages, id)
}

func (r memPages) Create(_ context.Context, pc *models.PageContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.pages {
		if existing.Page == pc.Page && existing.SectionKey == pc.SectionKey {
			return repository.ErrDuplicate
		}
	}
	pc.ID = r.id()
	r.pages[pc.ID] = clone(pc)
	return nil
}

func (r memPages) Update(_ context.Context, pc *models.PageContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return replace(r.pages, pc.ID, pc)
}

func (r memPages) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return remove(r.pages, id)
}

func (r memPages) BulkUpdate(_ context.Context, updates []repository.PageContentUpdate, updatedBy uint) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range updates {
		if _, ok := r.pages[u.ID]; !ok {
			return nil, repository.ErrNotFound
		}
	}
	seen := map[string]bool{}
	pages := []string{}
	for _, u := range updates {
		pc := r.pages[u.ID]
		pc.ContentValue = u.ContentValue
		pc.UpdatedBy = updatedBy
		if !seen[pc.Page] {
			seen[pc.Page] = true
			pages = append(pages, pc.Page)
		}
	}
	return pages, nil
}

/* mail */

type recordingMailer struct {
	mu   sync.Mutex
	sent []services.Message
}

func (m *recordingMailer) Send(_ context.Context, msg services.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.sent {
		out = append(out, msg.To...)
	}
	sort.Strings(out)
	return out
}

/* harness */

type testEnv struct {
	db     *memDB
	store  *repository.Store
	mailer *recordingMailer
	cache  *cache.Memory
	auth   *middleware.Authenticator
	ctl    *Controller
	router *gin.Engine

	admin      *models.Organization
	healthcare *models.Organization
	finance    *models.Organization
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})

	env := &testEnv{
		db:     newMemDB(),
		mailer: &recordingMailer{},
		cache:  cache.NewMemory(),
	}
	t.Cleanup(func() { env.cache.Close() })
	env.store = env.db.store()
	env.auth = middleware.NewAuthenticator("test-secret", time.Hour, env.store.Organizations)
	env.ctl = New(Deps{
		Store:    env.store,
		Cache:    env.cache,
		Notifier: services.NewNotifier(env.store.Organizations, env.mailer, nil, "http://app.test"),
		Emails:   services.NewEmailDispatcher(env.store.Emails, env.mailer),
		Tokens:   env.auth,
		Log:      log,
	})
	env.router = testRouter(env.ctl, env.auth)

	env.admin = env.addOrganization(t, "Coalition Office", "office@coalition.test", models.RoleAdmin, nil)
	env.healthcare = env.addOrganization(t, "Community Clinic", "clinic@example.org", models.RoleMember, []string{"healthcare"})
	env.finance = env.addOrganization(t, "Credit Union", "credit@example.org", models.RoleMember, []string{"finance"})
	return env
}

func (env *testEnv) addOrganization(t *testing.T, name, email string, role models.Role, tags []string) *models.Organization {
	t.Helper()
	org := &models.Organization{
		Name:   name,
		Email:  email,
		Role:   role,
		Status: models.OrganizationActive,
		Tags:   tags,
	}
	if err := env.store.Organizations.Create(context.Background(), org); err != nil {
		t.Fatalf("seed organization %s: %v", email, err)
	}
	return org
}

// testRouter mounts the handlers under the same paths and guards as the API.
func testRouter(ctl *Controller, auth *middleware.Authenticator) *gin.Engine {
	r := gin.New()
	admin := middleware.RequireRole(models.RoleAdmin)

	r.POST("/api/auth/register", ctl.Register)
	r.POST("/api/auth/login", ctl.Login)
	r.GET("/api/page-content/:page", ctl.GetPageContent)
	r.GET("/api/events/public", ctl.ListPublicEvents)
	r.GET("/api/events/public/:id", ctl.GetPublicEvent)
	r.POST("/api/events/public/:id/rsvp", ctl.PublicRSVP)

	p := r.Group("/api", auth.RequireAuth())
	p.GET("/auth/me", ctl.Me)
	p.POST("/organizations/:id/approve", admin, ctl.ApproveOrganization)
	p.PUT("/organizations/:id", ctl.UpdateOrganization)

	p.GET("/alerts", ctl.ListAlerts)
	p.GET("/alerts/:id", ctl.GetAlert)
	p.POST("/alerts", admin, ctl.CreateAlert)
	p.PUT("/alerts/:id", admin, ctl.UpdateAlert)
	p.DELETE("/alerts/:id", admin, ctl.DeleteAlert)
	p.POST("/alerts/:id/publish", admin, ctl.PublishAlert)
	p.GET("/alerts/:id/summary", admin, ctl.AlertSummary)

	p.GET("/announcements", ctl.ListAnnouncements)
	p.GET("/announcements/:id", ctl.GetAnnouncement)
	p.POST("/announcements", admin, ctl.CreateAnnouncement)
	p.PUT("/announcements/:id", admin, ctl.UpdateAnnouncement)
	p.POST("/announcements/:id/publish", admin, ctl.PublishAnnouncement)
	p.POST("/announcements/:id/unpublish", admin, ctl.UnpublishAnnouncement)

	p.GET("/events/:id", ctl.GetEvent)
	p.POST("/events", admin, ctl.CreateEvent)
	p.DELETE("/events/:id", admin, ctl.DeleteEvent)
	p.POST("/events/:id/publish", admin, ctl.PublishEvent)
	p.POST("/events/:id/rsvp", ctl.RSVPEvent)
	p.DELETE("/events/:id/rsvp", ctl.CancelRSVP)

	p.GET("/surveys/:id", ctl.GetSurvey)
	p.POST("/surveys", admin, ctl.CreateSurvey)
	p.PUT("/surveys/:id", admin, ctl.UpdateSurvey)
	p.DELETE("/surveys/:id", admin, ctl.DeleteSurvey)
	p.GET("/surveys/:id/summary", admin, ctl.SurveySummary)

	p.POST("/alert-responses", ctl.SubmitAlertResponse)
	p.GET("/alert-responses", admin, ctl.ListAlertResponses)
	p.GET("/alert-responses/mine", ctl.MyAlertResponses)
	p.POST("/survey-responses", ctl.SubmitSurveyResponse)

	p.POST("/page-content", admin, ctl.CreatePageContent)
	p.PUT("/page-content/bulk", admin, ctl.BulkUpdatePageContent)
	p.PUT("/page-content/items/:id", admin, ctl.UpdatePageContent)

	p.POST("/emails/recipients", admin, ctl.ResolveRecipients)
	p.POST("/emails/send", admin, ctl.SendEmail)
	p.DELETE("/emails/history/:id", admin, ctl.DeleteEmailHistory)

	p.GET("/dashboard/stats", admin, ctl.GetDashboardStats)
	return r
}

// do performs a request as org (anonymous when org is nil).
func (env *testEnv) do(t *testing.T, method, path string, body interface{}, org *models.Organization) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if org != nil {
		token, _, err := env.auth.GenerateToken(org)
		if err != nil {
			t.Fatalf("token for %s: %v", org.Email, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	expectStatus(t, w, status)
	if got := decode(t, w)["error"]; got != msg {
		t.Fatalf("error = %v, want %q", got, msg)
	}
}

// dataID returns data.id from a success response.
func dataID(t *testing.T, w *httptest.ResponseRecorder) uint {
	t.Helper()
	data, ok := decode(t, w)["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no data object: %s", w.Body.String())
	}
	id, ok := data["id"].(float64)
	if !ok {
		t.Fatalf("data has no id: %s", w.Body.String())
	}
	return uint(id)
}
