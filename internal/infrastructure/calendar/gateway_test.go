package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	goauth "golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/infrastructure/oauth2"
)

type fakeTokens struct {
	mu         sync.Mutex
	tokens     []string
	current    int
	renewCalls int
	renewErr   error
}

func (f *fakeTokens) client(companyID string) *oauth2.AuthorizedClient {
	tok := &goauth.Token{AccessToken: f.tokens[f.current], TokenType: "Bearer"}
	return &oauth2.AuthorizedClient{
		CompanyID:  companyID,
		Token:      tok,
		HTTPClient: goauth.NewClient(context.Background(), goauth.StaticTokenSource(tok)),
	}
}

func (f *fakeTokens) GetAuthorizedClient(_ context.Context, companyID string) (*oauth2.AuthorizedClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client(companyID), nil
}

func (f *fakeTokens) ForceRenew(_ context.Context, companyID string) (*oauth2.AuthorizedClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renewCalls++
	if f.renewErr != nil {
		return nil, f.renewErr
	}
	if f.current < len(f.tokens)-1 {
		f.current++
	}
	return f.client(companyID), nil
}

func (f *fakeTokens) AuthCodeURL(context.Context, string, string) (string, error) { return "", nil }
func (f *fakeTokens) ExchangeCode(context.Context, string, string) error         { return nil }

type fakeCalendarAPI struct {
	*httptest.Server
	mu          sync.Mutex
	validToken  string
	inserted    []gcal.Event
	insertQuery []string
	listQuery   string
	listBody    string
	listPages   map[string]string // by pageToken, "" is the first page
	listCalls   int
	failStatus  int
}

func newFakeCalendarAPI(t *testing.T, validToken string) *fakeCalendarAPI {
	t.Helper()
	api := &fakeCalendarAPI{validToken: validToken}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Close)
	return api
}

func (a *fakeCalendarAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "Bearer "+a.validToken {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
		return
	}
	if a.failStatus != 0 {
		w.WriteHeader(a.failStatus)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Bad Request"}}`))
		return
	}
	if !strings.HasSuffix(r.URL.Path, "/calendars/primary/events") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.listQuery = r.URL.RawQuery
		a.listCalls++
		if a.listPages != nil {
			_, _ = w.Write([]byte(a.listPages[r.URL.Query().Get("pageToken")]))
			return
		}
		_, _ = w.Write([]byte(a.listBody))
	case http.MethodPost:
		var ev gcal.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		a.inserted = append(a.inserted, ev)
		a.insertQuery = append(a.insertQuery, r.URL.RawQuery)
		ev.Id = "evt-1"
		ev.ConferenceData.EntryPoints = []*gcal.EntryPoint{
			{EntryPointType: "phone", Uri: "tel:+1-555"},
			{EntryPointType: "video", Uri: "https://meet.google.com/abc-defg-hij"},
		}
		_ = json.NewEncoder(w).Encode(ev)
	}
}

func newTestGateway(api *fakeCalendarAPI, tokens *fakeTokens) *gateway {
	cfg := &config.Config{
		Google: config.GoogleConfig{
			CalendarEndpoint:  api.URL + "/calendar/v3/",
			CalendarID:        "primary",
			MaxEvents:         1000,
			DefaultTimeZone:   "America/Bogota",
			RequestsPerSecond: 0,
		},
	}
	return NewGateway(cfg, tokens, zap.NewNop()).(*gateway)
}

func testDraft() entity.EventDraft {
	return entity.EventDraft{
		Summary:       "Mentoría con Ana",
		Description:   "Name: Ana",
		StartDateTime: "2025-01-06T14:00:00Z",
		EndDateTime:   "2025-01-06T15:00:00Z",
		Attendees:     []entity.Attendee{{Email: "mentor@example.com"}, {Email: "ana@example.com"}},
	}
}

func TestListEvents(t *testing.T) {
	api := newFakeCalendarAPI(t, "t1")
	api.listBody = `{"items":[
		{"id":"a","summary":"Busy","start":{"dateTime":"2025-01-06T14:00:00Z"},"end":{"dateTime":"2025-01-06T15:00:00Z"},"attendees":[{"email":"mentor@example.com"}]},
		{"id":"b","summary":"Holiday","start":{"date":"2025-01-07"},"end":{"date":"2025-01-08"}},
		{"id":"c","status":"cancelled","start":{"dateTime":"2025-01-06T16:00:00Z"},"end":{"dateTime":"2025-01-06T17:00:00Z"}}
	]}`
	g := newTestGateway(api, &fakeTokens{tokens: []string{"t1"}})

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	events, err := g.ListEvents(context.Background(), "acme", start, start.AddDate(0, 0, 8))

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, []string{"mentor@example.com"}, events[0].Attendees)
	assert.True(t, events[0].Start.Equal(time.Date(2025, 1, 6, 14, 0, 0, 0, time.UTC)))
	assert.True(t, events[1].AllDay)

	assert.Contains(t, api.listQuery, "singleEvents=true")
	assert.Contains(t, api.listQuery, "orderBy=startTime")
	assert.Contains(t, api.listQuery, "maxResults=1000")
	assert.Contains(t, api.listQuery, "timeMin=2025-01-06T00%3A00%3A00Z")
}

func TestListEvents_StopsAtMaxEvents(t *testing.T) {
	api := newFakeCalendarAPI(t, "t1")
	api.listPages = map[string]string{
		"": `{"nextPageToken":"p2","items":[
			{"id":"a","start":{"dateTime":"2025-01-06T14:00:00Z"},"end":{"dateTime":"2025-01-06T15:00:00Z"}},
			{"id":"b","start":{"dateTime":"2025-01-06T16:00:00Z"},"end":{"dateTime":"2025-01-06T17:00:00Z"}}
		]}`,
		"p2": `{"nextPageToken":"p3","items":[
			{"id":"c","start":{"dateTime":"2025-01-07T14:00:00Z"},"end":{"dateTime":"2025-01-07T15:00:00Z"}},
			{"id":"d","start":{"dateTime":"2025-01-07T16:00:00Z"},"end":{"dateTime":"2025-01-07T17:00:00Z"}}
		]}`,
		"p3": `{"items":[
			{"id":"e","start":{"dateTime":"2025-01-08T14:00:00Z"},"end":{"dateTime":"2025-01-08T15:00:00Z"}}
		]}`,
	}
	g := newTestGateway(api, &fakeTokens{tokens: []string{"t1"}})
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	t.Run("truncates at the cap", func(t *testing.T) {
		g.config.Google.MaxEvents = 3
		api.listCalls = 0

		events, err := g.ListEvents(context.Background(), "acme", start, start.AddDate(0, 0, 8))

		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "c", events[2].ID)
		assert.Equal(t, 2, api.listCalls)
	})

	t.Run("follows pages below the cap", func(t *testing.T) {
		g.config.Google.MaxEvents = 1000
		api.listCalls = 0

		events, err := g.ListEvents(context.Background(), "acme", start, start.AddDate(0, 0, 8))

		require.NoError(t, err)
		assert.Len(t, events, 5)
		assert.Equal(t, 3, api.listCalls)
		assert.Contains(t, api.listQuery, "pageToken=p3")
	})
}

func TestInsertEvent(t *testing.T) {
	api := newFakeCalendarAPI(t, "t1")
	g := newTestGateway(api, &fakeTokens{tokens: []string{"t1"}})

	created, err := g.InsertEvent(context.Background(), "acme", testDraft())

	require.NoError(t, err)
	assert.Equal(t, "evt-1", created.ID)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", created.MeetingLink)

	require.Len(t, api.inserted, 1)
	sent := api.inserted[0]
	assert.Contains(t, api.insertQuery[0], "conferenceDataVersion=1")
	assert.Equal(t, "public", sent.Visibility)
	assert.Equal(t, "America/Bogota", sent.Start.TimeZone)
	assert.Equal(t, "hangoutsMeet", sent.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
	assert.NotEmpty(t, sent.ConferenceData.CreateRequest.RequestId)
	require.Len(t, sent.Reminders.Overrides, 2)
	assert.Equal(t, int64(1440), sent.Reminders.Overrides[0].Minutes)
	assert.Equal(t, int64(10), sent.Reminders.Overrides[1].Minutes)
	assert.Len(t, sent.Attendees, 2)
}

func TestInsertEvent_InvalidDraft(t *testing.T) {
	api := newFakeCalendarAPI(t, "t1")
	g := newTestGateway(api, &fakeTokens{tokens: []string{"t1"}})

	draft := testDraft()
	draft.EndDateTime = "tomorrow"

	_, err := g.InsertEvent(context.Background(), "acme", draft)
	require.ErrorIs(t, err, entity.ErrInvalidEventDraft)
	assert.Empty(t, api.inserted)
}

func TestInsertEvent_RenewsOnceOn401(t *testing.T) {
	api := newFakeCalendarAPI(t, "t2")
	tokens := &fakeTokens{tokens: []string{"t1", "t2"}}
	g := newTestGateway(api, tokens)

	created, err := g.InsertEvent(context.Background(), "acme", testDraft())

	require.NoError(t, err)
	assert.Equal(t, "evt-1", created.ID)
	assert.Equal(t, 1, tokens.renewCalls)
	require.Len(t, api.inserted, 1)
}

func TestInsertEvent_FreshRequestIDPerAttempt(t *testing.T) {
	api := newFakeCalendarAPI(t, "t1")
	g := newTestGateway(api, &fakeTokens{tokens: []string{"t1"}})

	_, err := g.InsertEvent(context.Background(), "acme", testDraft())
	require.NoError(t, err)
	_, err = g.InsertEvent(context.Background(), "acme", testDraft())
	require.NoError(t, err)

	require.Len(t, api.inserted, 2)
	assert.NotEqual(t,
		api.inserted[0].ConferenceData.CreateRequest.RequestId,
		api.inserted[1].ConferenceData.CreateRequest.RequestId,
	)
}

func TestCall_Errors(t *testing.T) {
	t.Run("second 401 is unauthorized", func(t *testing.T) {
		api := newFakeCalendarAPI(t, "never")
		tokens := &fakeTokens{tokens: []string{"t1", "t2"}}
		g := newTestGateway(api, tokens)

		_, err := g.ListEvents(context.Background(), "acme", time.Now(), time.Now().Add(time.Hour))

		require.ErrorIs(t, err, entity.ErrUnauthorized)
		assert.Equal(t, 1, tokens.renewCalls)
	})

	t.Run("renewal failure propagates", func(t *testing.T) {
		api := newFakeCalendarAPI(t, "never")
		tokens := &fakeTokens{tokens: []string{"t1"}, renewErr: entity.ErrReauthenticationRequired}
		g := newTestGateway(api, tokens)

		_, err := g.InsertEvent(context.Background(), "acme", testDraft())

		require.ErrorIs(t, err, entity.ErrReauthenticationRequired)
	})

	t.Run("other failures are provider errors", func(t *testing.T) {
		api := newFakeCalendarAPI(t, "t1")
		api.failStatus = http.StatusBadRequest
		tokens := &fakeTokens{tokens: []string{"t1"}}
		g := newTestGateway(api, tokens)

		_, err := g.ListEvents(context.Background(), "acme", time.Now(), time.Now().Add(time.Hour))

		require.ErrorIs(t, err, entity.ErrProvider)
		assert.Contains(t, err.Error(), "status 400")
		assert.Equal(t, 0, tokens.renewCalls)
	})
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	r := NewRateLimiter(1, 1)
	r.RecordRateLimitError(30)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}
