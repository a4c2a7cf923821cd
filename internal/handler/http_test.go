package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/club-portal/internal/auth"
	"github.com/club-portal/internal/config"
	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/roles"
	"github.com/club-portal/internal/service"
	"github.com/club-portal/internal/store"
	"github.com/club-portal/internal/tactics"
	"github.com/club-portal/internal/websocket"
	"golang.org/x/crypto/bcrypt"
)

// flakyStore fails queries on demand
type flakyStore struct {
	*store.Memory
	failQueries bool
}

func (f *flakyStore) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	if f.failQueries {
		return nil, domain.ErrPermissionDenied
	}
	return f.Memory.Query(ctx, q)
}

type testEnv struct {
	router  http.Handler
	docs    *flakyStore
	gateway *auth.Gateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	docs := &flakyStore{Memory: store.NewMemory()}
	accounts := auth.NewMemoryAccounts()
	tokens, err := auth.NewTokenIssuer("test-secret", "club-portal", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	gateway := auth.NewGateway(accounts, auth.NewMemorySessions(), docs, tokens, bcrypt.MinCost, logger)
	resolver := roles.NewResolver(docs, roles.NewMemoryCache(), logger)
	gateway.OnSessionChange(resolver.HandleSessionChange)

	feed := service.NewFeedService(docs, "United", logger)
	svc := Services{
		Gateway:     gateway,
		Resolver:    resolver,
		Feed:        feed,
		Roster:      service.NewRosterService(docs, logger),
		Leaderboard: service.NewLeaderboardService(docs, &config.LeaderboardConfig{PanelSize: 3}, logger),
		Dashboard:   service.NewDashboardService(docs, feed, logger),
		Tactics:     service.NewTacticsService(docs, tactics.NewMemoryDrafts(time.Hour), nil, logger),
		Admin:       service.NewAdminService(docs, accounts, nil, time.UTC, logger),
		Countdown:   websocket.NewCountdown(feed.NextMatch, logger),
	}
	return &testEnv{
		router:  NewHandler(svc, nil, logger).Router(),
		docs:    docs,
		gateway: gateway,
	}
}

func (e *testEnv) seed(t *testing.T, collection, id string, v any) {
	t.Helper()
	fields, err := store.Encode(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.docs.Set(context.Background(), collection, id, fields); err != nil {
		t.Fatal(err)
	}
}

// account registers a login and its users document, returning the identity id
func (e *testEnv) account(t *testing.T, email string, user domain.UserRecord) string {
	t.Helper()
	id, err := e.gateway.Register(context.Background(), email, "secret123", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	user.Email = email
	e.seed(t, domain.CollectionUsers, id.ID, user)
	return id.ID
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: email, Password: "secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data loginResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Data.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestNextMatchEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/next-match", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty status = %d", rec.Code)
	}
	var errBody map[string]string
	decodeBody(t, rec, &errBody)
	if errBody["error"] != "No upcoming matches" {
		t.Errorf("empty body = %v", errBody)
	}

	kickoff := time.Date(2030, 3, 9, 15, 0, 0, 0, time.UTC)
	env.seed(t, domain.CollectionMatches, "m1", domain.Match{Opponent: "Rovers", Venue: domain.VenueHome, Date: domain.NewTimestamp(kickoff)})
	env.seed(t, domain.CollectionMatches, "m0", domain.Match{Opponent: "Old", IsPast: true, Date: domain.NewTimestamp(kickoff.Add(-time.Hour))})

	rec = env.do(t, http.MethodGet, "/api/next-match", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["id"] != "m1" || body["opponent"] != "Rovers" || body["venue"] != "Home" || body["isPast"] != false {
		t.Errorf("body = %v", body)
	}
	if body["date"] != "2030-03-09T15:00:00.000Z" {
		t.Errorf("date = %v", body["date"])
	}
	if v, ok := body["score"]; !ok || v != nil {
		t.Errorf("score = %v (present %v)", v, ok)
	}

	env.docs.failQueries = true
	rec = env.do(t, http.MethodGet, "/api/next-match", "", nil)
	decodeBody(t, rec, &errBody)
	if rec.Code != http.StatusInternalServerError || errBody["error"] != "Server error" {
		t.Errorf("failure = %d %v", rec.Code, errBody)
	}
}

func TestLoginMeLogout(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "coach@club.test", domain.UserRecord{IsCoach: true})

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "coach@club.test", Password: "wrong"})
	var resp APIResponse
	decodeBody(t, rec, &resp)
	if rec.Code != http.StatusUnauthorized || resp.Error != domain.MessageInvalidCredentials {
		t.Errorf("bad password = %d %q", rec.Code, resp.Error)
	}

	token := env.login(t, "coach@club.test")

	rec = env.do(t, http.MethodGet, "/api/v1/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d body = %s", rec.Code, rec.Body.String())
	}
	var me struct {
		Data meResponse `json:"data"`
	}
	decodeBody(t, rec, &me)
	if me.Data.Role != roles.RoleCoach || me.Data.Dashboard == nil {
		t.Errorf("me = %+v", me.Data)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil); rec.Code != http.StatusOK {
		t.Errorf("logout status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/me", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d", rec.Code)
	}
}

func TestMeUnrecognizedAndUnverifiable(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "fan@club.test", domain.UserRecord{})
	token := env.login(t, "fan@club.test")

	rec := env.do(t, http.MethodGet, "/api/v1/me", token, nil)
	var me struct {
		Data meResponse `json:"data"`
	}
	decodeBody(t, rec, &me)
	if rec.Code != http.StatusOK || me.Data.Role != roles.RoleUnrecognized || me.Data.Message != domain.MessageUnlinkedAccount {
		t.Errorf("unrecognized = %d %+v", rec.Code, me.Data)
	}

	env.account(t, "other@club.test", domain.UserRecord{})
	env.docs.failQueries = true
	other := env.login(t, "other@club.test")
	rec = env.do(t, http.MethodGet, "/api/v1/me", other, nil)
	var resp APIResponse
	decodeBody(t, rec, &resp)
	if rec.Code != http.StatusServiceUnavailable || resp.Error != domain.MessageProfileError {
		t.Errorf("unverifiable = %d %q", rec.Code, resp.Error)
	}

	env.docs.failQueries = false
	if rec := env.do(t, http.MethodGet, "/api/v1/me", other, nil); rec.Code != http.StatusOK {
		t.Errorf("session should survive a failed resolution, got %d", rec.Code)
	}
}

func TestAdminLoginRejectsNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "player@club.test", domain.UserRecord{IsPlayer: true})
	env.account(t, "boss@club.test", domain.UserRecord{IsAdmin: true})

	rec := env.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", loginRequest{Email: "player@club.test", Password: "secret123"})
	var resp APIResponse
	decodeBody(t, rec, &resp)
	if rec.Code != http.StatusForbidden || resp.Error != domain.MessageAdminOnly {
		t.Errorf("non-admin = %d %q", rec.Code, resp.Error)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", loginRequest{Email: "boss@club.test", Password: "secret123"})
	if rec.Code != http.StatusOK {
		t.Errorf("admin = %d", rec.Code)
	}
}

func TestRoleGuards(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "fan@club.test", domain.UserRecord{})
	token := env.login(t, "fan@club.test")

	if rec := env.do(t, http.MethodGet, "/api/v1/coach/dashboard", token, nil); rec.Code != http.StatusForbidden {
		t.Errorf("coach route = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/admin/overview", token, nil); rec.Code != http.StatusForbidden {
		t.Errorf("admin route = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/tactics/board", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("board without token = %d", rec.Code)
	}
}

func TestAdminDeleteFlow(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "boss@club.test", domain.UserRecord{IsAdmin: true})
	token := env.login(t, "boss@club.test")
	env.seed(t, domain.CollectionNews, "n1", domain.NewsArticle{Title: "Hello", Summary: "x", Date: domain.NewTimestamp(time.Now())})

	if rec := env.do(t, http.MethodDelete, "/api/v1/admin/tabs/news/n1", token, nil); rec.Code != http.StatusPreconditionRequired {
		t.Errorf("unconfirmed = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/v1/admin/tabs/news/n1?confirm=true", token, nil); rec.Code != http.StatusOK {
		t.Errorf("confirmed = %d", rec.Code)
	}
	if _, err := env.docs.Get(context.Background(), domain.CollectionNews, "n1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("news still present: %v", err)
	}
	if rec := env.do(t, http.MethodDelete, "/api/v1/admin/tabs/users/x?confirm=true", token, nil); rec.Code != http.StatusForbidden {
		t.Errorf("users delete = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/admin/tabs/bogus", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown tab = %d", rec.Code)
	}
}

func TestDraftConflictOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "coach@club.test", domain.UserRecord{IsCoach: true})
	token := env.login(t, "coach@club.test")

	rec := env.do(t, http.MethodPost, "/api/v1/coach/drafts", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open draft = %d %s", rec.Code, rec.Body.String())
	}
	var opened struct {
		Data service.DraftView `json:"data"`
	}
	decodeBody(t, rec, &opened)
	path := "/api/v1/coach/drafts/" + opened.Data.Draft.ID
	gen := opened.Data.Draft.Generation

	change := map[string]any{"action": "bench", "playerId": "p1", "generation": gen}
	if rec := env.do(t, http.MethodPatch, path, token, change); rec.Code != http.StatusOK {
		t.Fatalf("first change = %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPatch, path, token, change); rec.Code != http.StatusConflict {
		t.Errorf("stale change = %d", rec.Code)
	}

	details := map[string]any{"action": "details", "matchId": "m1", "generation": gen + 1}
	rec = env.do(t, http.MethodPatch, path, token, details)
	if rec.Code != http.StatusOK {
		t.Fatalf("details = %d %s", rec.Code, rec.Body.String())
	}
	var changed struct {
		Data service.DraftView `json:"data"`
	}
	decodeBody(t, rec, &changed)

	if rec := env.do(t, http.MethodPost, path+"/save", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("save = %d %s", rec.Code, rec.Body.String())
	}
	afterSave := map[string]any{"action": "roster", "playerId": "p1", "generation": changed.Data.Draft.Generation}
	if rec := env.do(t, http.MethodPatch, path, token, afterSave); rec.Code != http.StatusOK {
		t.Errorf("change after save = %d %s", rec.Code, rec.Body.String())
	}
}

func TestLeaderboardTableRejectsUnknownColumn(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/api/v1/leaderboards/table?sort=goals,height", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/leaderboards/table?sort=goals", "", nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
