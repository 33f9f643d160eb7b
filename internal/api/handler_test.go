package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helmai/voice-server/internal/agent"
	"github.com/helmai/voice-server/internal/dialogue"
	"github.com/helmai/voice-server/internal/domain"
	"github.com/helmai/voice-server/internal/intent"
	"github.com/helmai/voice-server/internal/session"
	"github.com/helmai/voice-server/internal/store"
)

type fakeInvoker struct {
	lastPrompt string
	lastUser   string
	result     agent.Result
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt, userID string) agent.Result {
	f.lastPrompt = prompt
	f.lastUser = userID
	return f.result
}

type fakeStatus struct {
	status agent.Status
}

func (f *fakeStatus) Status() agent.Status { return f.status }

type fakeProcessor struct {
	reply *dialogue.Reply
}

func (f *fakeProcessor) Process(_ context.Context, _, userID string) *dialogue.Reply {
	reply := *f.reply
	reply.UserID = userID
	return &reply
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

// fakeRepo implements store.Repository with scripted data.
type fakeRepo struct {
	flights   []domain.Flight
	users     []domain.User
	trips     []domain.Trip
	cancelOK  bool
	failWith  error
	cancelled []string
}

func (f *fakeRepo) SearchFlights(context.Context, string, string) ([]domain.Flight, error) {
	return f.flights, f.failWith
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == userID {
			return &u, nil
		}
	}
	return nil, f.failWith
}

func (f *fakeRepo) ListUsers(context.Context) ([]domain.User, error) {
	return f.users, f.failWith
}

func (f *fakeRepo) Login(_ context.Context, email, password string) (*domain.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.Email == email && password == "password123" {
			return &u, nil
		}
	}
	return nil, store.ErrInvalidCredentials
}

func (f *fakeRepo) ConfirmBooking(_ context.Context, userID, flightID string) (*domain.Booking, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &domain.Booking{
		BookingID: "BK1", UserID: userID, FlightNumber: flightID,
		Status: domain.BookingConfirmed,
	}, nil
}

func (f *fakeRepo) UpcomingTrips(context.Context, string) ([]domain.Trip, error) {
	return f.trips, f.failWith
}

func (f *fakeRepo) CancelBooking(_ context.Context, bookingID string) (bool, error) {
	f.cancelled = append(f.cancelled, bookingID)
	return f.cancelOK, f.failWith
}

func (f *fakeRepo) Ping(context.Context) error { return nil }
func (f *fakeRepo) Close() error               { return nil }

type testDeps struct {
	invoker   *fakeInvoker
	conn      *fakeStatus
	sessions  *session.Store
	processor *fakeProcessor
	matcher   *intent.Matcher
	repo      *fakeRepo
	router    chi.Router
}

func newTestHandler(t *testing.T) *testDeps {
	t.Helper()

	deps := &testDeps{
		invoker:  &fakeInvoker{result: agent.Result{Success: true, Response: "hi"}},
		conn:     &fakeStatus{status: agent.Status{Initialized: true, Healthy: true}},
		sessions: session.NewStore(),
		processor: &fakeProcessor{reply: &dialogue.Reply{
			Success: true, Intent: "flight_booking", ResponseText: "ok",
			Data: map[string]any{},
		}},
		matcher: intent.NewMatcher(stubEmbedder{}, intent.NewMemoryIndex(), 0.3, nil),
		repo:    &fakeRepo{cancelOK: true},
	}

	h := NewHandler(deps.invoker, deps.conn, deps.sessions, deps.processor, deps.matcher, deps.repo, nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	deps.router = r
	return deps
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Encode body failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var parsed map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("Decode response failed: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, parsed
}

func TestVoicePrompt(t *testing.T) {
	deps := newTestHandler(t)

	rec, got := doJSON(t, deps.router, http.MethodPost, "/api/voice/prompt",
		map[string]string{"prompt": "hello", "userId": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got["success"] != true || got["response"] != "hi" {
		t.Errorf("Unexpected body: %v", got)
	}
	if deps.invoker.lastPrompt != "hello" || deps.invoker.lastUser != "u1" {
		t.Errorf("Invoker saw %q/%q", deps.invoker.lastPrompt, deps.invoker.lastUser)
	}
}

func TestVoicePrompt_MissingPrompt(t *testing.T) {
	deps := newTestHandler(t)

	rec, got := doJSON(t, deps.router, http.MethodPost, "/api/voice/prompt",
		map[string]string{"userId": "u1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if got["success"] != false {
		t.Errorf("Expected failure envelope, got %v", got)
	}
}

func TestSessionInfo(t *testing.T) {
	deps := newTestHandler(t)
	deps.sessions.GetOrCreate("u1")

	rec, got := doJSON(t, deps.router, http.MethodGet, "/api/voice/session/u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	sess, ok := got["session"].(map[string]any)
	if !ok || sess["sessionId"] == "" {
		t.Errorf("Expected session payload, got %v", got)
	}

	rec, _ = doJSON(t, deps.router, http.MethodGet, "/api/voice/session/nobody", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestEndSession(t *testing.T) {
	deps := newTestHandler(t)
	deps.sessions.GetOrCreate("u1")

	rec, got := doJSON(t, deps.router, http.MethodDelete, "/api/voice/session/u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got["sessionEnded"] != true {
		t.Errorf("Expected sessionEnded true, got %v", got)
	}

	_, got = doJSON(t, deps.router, http.MethodDelete, "/api/voice/session/u1", nil)
	if got["sessionEnded"] != false {
		t.Errorf("Expected sessionEnded false on repeat, got %v", got)
	}
}

func TestServiceStatus(t *testing.T) {
	deps := newTestHandler(t)
	deps.sessions.GetOrCreate("u1")

	rec, got := doJSON(t, deps.router, http.MethodGet, "/api/voice/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	conn, ok := got["connection"].(map[string]any)
	if !ok || conn["connectionHealthy"] != true {
		t.Errorf("Expected connection status, got %v", got)
	}
	if got["activeSessions"] != float64(1) {
		t.Errorf("Expected 1 active session, got %v", got["activeSessions"])
	}
}

func TestVoiceProcess(t *testing.T) {
	deps := newTestHandler(t)

	rec, got := doJSON(t, deps.router, http.MethodPost, "/api/voice/process",
		map[string]string{"text": "book a flight", "userId": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got["intent"] != "flight_booking" || got["userId"] != "u1" {
		t.Errorf("Unexpected body: %v", got)
	}
}

func TestVoiceProcess_MissingText(t *testing.T) {
	deps := newTestHandler(t)

	rec, _ := doJSON(t, deps.router, http.MethodPost, "/api/voice/process",
		map[string]string{"userId": "u1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestRecognizeIntent(t *testing.T) {
	deps := newTestHandler(t)
	if err := deps.matcher.Add(context.Background(), intent.Document{
		ID: "1", Text: "book a flight", Intent: "flight_booking",
	}); err != nil {
		t.Fatalf("Seeding matcher failed: %v", err)
	}

	rec, got := doJSON(t, deps.router, http.MethodPost, "/api/intents/recognize",
		map[string]any{"text": "book a flight"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got["intent"] != "flight_booking" {
		t.Errorf("Expected flight_booking, got %v", got["intent"])
	}
}

func TestPopulateAndStatsAndClear(t *testing.T) {
	deps := newTestHandler(t)

	_, got := doJSON(t, deps.router, http.MethodPost, "/api/intents/populate",
		map[string]any{"documents": []map[string]string{
			{"id": "1", "text": "book a flight", "intent": "flight_booking"},
			{"id": "2", "text": "cancel my flight", "intent": "flight_cancellation"},
		}})
	if got["processed"] != float64(2) {
		t.Errorf("Expected 2 processed, got %v", got["processed"])
	}

	_, got = doJSON(t, deps.router, http.MethodGet, "/api/intents/stats", nil)
	stats, ok := got["stats"].(map[string]any)
	if !ok || stats["documentCount"] != float64(2) {
		t.Errorf("Expected 2 documents in stats, got %v", got)
	}

	rec, _ := doJSON(t, deps.router, http.MethodDelete, "/api/intents/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	_, got = doJSON(t, deps.router, http.MethodGet, "/api/intents/stats", nil)
	stats = got["stats"].(map[string]any)
	if stats["documentCount"] != float64(0) {
		t.Errorf("Expected empty index after clear, got %v", stats)
	}
}

func TestGetFlights(t *testing.T) {
	deps := newTestHandler(t)
	deps.repo.flights = []domain.Flight{{ID: "FL001", Airline: "SkyWings"}}

	rec, got := doJSON(t, deps.router, http.MethodGet, "/api/flights?departure=JFK", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got["totalResults"] != float64(1) {
		t.Errorf("Expected 1 result, got %v", got)
	}
}

func TestConfirmBooking(t *testing.T) {
	deps := newTestHandler(t)

	rec, got := doJSON(t, deps.router, http.MethodPost, "/api/bookings/confirm",
		map[string]string{"userId": "u1", "flightId": "FL001"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	data, ok := got["data"].(map[string]any)
	if !ok || data["status"] != "confirmed" {
		t.Errorf("Unexpected body: %v", got)
	}

	rec, _ = doJSON(t, deps.router, http.MethodPost, "/api/bookings/confirm",
		map[string]string{"userId": "u1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing flightId, got %d", rec.Code)
	}
}

func TestUpcomingTripsAndCancel(t *testing.T) {
	deps := newTestHandler(t)
	deps.repo.trips = []domain.Trip{
		{BookingID: "BK1", ConfirmationNumber: "ABC123",
			Date: time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)},
	}

	rec, got := doJSON(t, deps.router, http.MethodGet, "/api/bookings/trips/USER001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	trips, ok := got["trips"].([]any)
	if !ok || len(trips) != 1 {
		t.Fatalf("Expected 1 trip, got %v", got)
	}

	rec, got = doJSON(t, deps.router, http.MethodPost, "/api/bookings/BK1/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got["status"] != "cancelled" {
		t.Errorf("Expected cancelled status, got %v", got)
	}
	if len(deps.repo.cancelled) != 1 || deps.repo.cancelled[0] != "BK1" {
		t.Errorf("Expected BK1 cancelled, got %v", deps.repo.cancelled)
	}
}

func TestCancelBooking_NotFound(t *testing.T) {
	deps := newTestHandler(t)
	deps.repo.cancelOK = false

	rec, _ := doJSON(t, deps.router, http.MethodPost, "/api/bookings/BK9/cancel", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	deps := newTestHandler(t)
	deps.repo.users = []domain.User{{ID: "U001", Email: "john.doe@example.com", Name: "John Doe"}}

	rec, got := doJSON(t, deps.router, http.MethodPost, "/api/users/login",
		map[string]string{"email": "john.doe@example.com", "password": "password123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	data := got["data"].(map[string]any)
	if data["token"] == "" {
		t.Errorf("Expected token, got %v", data)
	}

	rec, _ = doJSON(t, deps.router, http.MethodPost, "/api/users/login",
		map[string]string{"email": "john.doe@example.com", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestGetFlights_RepoError(t *testing.T) {
	deps := newTestHandler(t)
	deps.repo.failWith = errors.New("db down")

	rec, _ := doJSON(t, deps.router, http.MethodGet, "/api/flights", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
}
