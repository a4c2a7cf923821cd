package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/club-portal/internal/admin"
	"github.com/club-portal/internal/auth"
	"github.com/club-portal/internal/config"
	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/leaderboard"
	"github.com/club-portal/internal/store"
	"github.com/club-portal/internal/tactics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seed(t *testing.T, docs *store.Memory, collection, id string, v any) {
	t.Helper()
	fields, err := store.Encode(v)
	if err != nil {
		t.Fatalf("encode %s/%s: %v", collection, id, err)
	}
	if err := docs.Set(context.Background(), collection, id, fields); err != nil {
		t.Fatalf("set %s/%s: %v", collection, id, err)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) last() domain.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return domain.ChangeEvent{}
	}
	return p.events[len(p.events)-1]
}

func (p *recordingPublisher) all() []domain.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ChangeEvent(nil), p.events...)
}

func coachSession(id string) domain.Session {
	return domain.Session{Token: "tok-" + id, Identity: domain.Identity{ID: id}, IsCoach: true}
}

func TestFilterRoster(t *testing.T) {
	players := []domain.Player{{ID: "p1", Name: "Alice Striker"}, {ID: "p2", Name: "Bea Keeper"}}
	coaches := []domain.Coach{{ID: "c1", Name: "Carl Gaffer"}}

	got := FilterRoster(players, coaches, RosterFilter{Search: "KEEP"})
	if len(got.Players) != 1 || got.Players[0].ID != "p2" || len(got.Coaches) != 0 {
		t.Errorf("search = %+v", got)
	}

	got = FilterRoster(players, coaches, RosterFilter{Category: CategoryCoaches})
	if len(got.Players) != 0 || len(got.Coaches) != 1 {
		t.Errorf("coaches category = %+v", got)
	}

	got = FilterRoster(players, coaches, RosterFilter{Search: "zed"})
	if want := `Your search for "zed" did not match any team members.`; got.Message != want {
		t.Errorf("message = %q, want %q", got.Message, want)
	}

	got = FilterRoster(players, nil, RosterFilter{Category: CategoryCoaches})
	if want := "There are no coaches to display."; got.Message != want {
		t.Errorf("message = %q, want %q", got.Message, want)
	}
	if got.Coaches == nil || got.Players == nil {
		t.Error("lists should be empty, not nil")
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory(""); err != nil || c != CategoryAll {
		t.Errorf("empty = %q, %v", c, err)
	}
	if _, err := ParseCategory("fans"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("unknown err = %v", err)
	}
}

func TestRosterLoadOrders(t *testing.T) {
	docs := store.NewMemory()
	seed(t, docs, domain.CollectionPlayers, "p1", domain.Player{Name: "Nine", Number: 9})
	seed(t, docs, domain.CollectionPlayers, "p2", domain.Player{Name: "One", Number: 1})
	seed(t, docs, domain.CollectionCoaches, "c1", domain.Coach{Name: "Zoe"})
	seed(t, docs, domain.CollectionCoaches, "c2", domain.Coach{Name: "Adam"})

	r, err := NewRosterService(docs, testLogger()).Load(context.Background(), RosterFilter{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Players[0].ID != "p2" || r.Coaches[0].ID != "c2" {
		t.Errorf("order players=%v coaches=%v", r.Players, r.Coaches)
	}
}

func TestFeedHome(t *testing.T) {
	docs := store.NewMemory()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	seed(t, docs, domain.CollectionMatches, "m1", domain.Match{
		Opponent: "Rovers", Venue: domain.VenueAway, Date: domain.NewTimestamp(now.Add(26 * time.Hour)),
	})
	seed(t, docs, domain.CollectionNews, "n1", domain.NewsArticle{Title: "Old", Date: domain.NewTimestamp(now.Add(-48 * time.Hour))})
	seed(t, docs, domain.CollectionNews, "n2", domain.NewsArticle{Title: "New", Date: domain.NewTimestamp(now.Add(-time.Hour))})

	feed := NewFeedService(docs, "United", testLogger())
	feed.now = func() time.Time { return now }

	home, err := feed.Home(context.Background())
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if home.NextMatch == nil || home.NextMatch.HomeTeam != "Rovers" || home.NextMatch.AwayTeam != "United" {
		t.Errorf("next match = %+v", home.NextMatch)
	}
	if home.Countdown == nil || home.Countdown.Days != 1 || home.Countdown.Hours != 2 {
		t.Errorf("countdown = %+v", home.Countdown)
	}
	if home.LatestNews == nil || home.LatestNews.Title != "New" {
		t.Errorf("latest news = %+v", home.LatestNews)
	}
}

func TestFeedHomeEmpty(t *testing.T) {
	home, err := NewFeedService(store.NewMemory(), "United", testLogger()).Home(context.Background())
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if home.NextMatch != nil || home.Countdown != nil || home.LatestNews != nil {
		t.Errorf("home = %+v", home)
	}
}

func TestLeaderboardTableReplaysClicks(t *testing.T) {
	docs := store.NewMemory()
	seed(t, docs, domain.CollectionPlayers, "a", domain.Player{Name: "a", Stats: domain.PlayerStats{Season: domain.StatLine{Goals: 1}}})
	seed(t, docs, domain.CollectionPlayers, "b", domain.Player{Name: "b", Stats: domain.PlayerStats{Season: domain.StatLine{Goals: 5}}})
	svc := NewLeaderboardService(docs, &config.LeaderboardConfig{PanelSize: 3}, testLogger())

	table, err := svc.Table(context.Background(), []leaderboard.SortKey{leaderboard.SortGoals, leaderboard.SortGoals})
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if table.Sort.Direction != leaderboard.Ascending || table.Rows[0].Player.Name != "a" {
		t.Errorf("table = %+v", table)
	}

	panels, err := svc.Panels(context.Background())
	if err != nil {
		t.Fatalf("Panels: %v", err)
	}
	if len(panels) != 3 || len(panels[0].Entries) != 2 || panels[0].Entries[0].Player.Name != "b" {
		t.Errorf("panels = %+v", panels)
	}
}

func TestCoachDashboard(t *testing.T) {
	docs := store.NewMemory()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	seed(t, docs, domain.CollectionMatches, "early", domain.Match{Opponent: "Athletic", Date: domain.NewTimestamp(now.Add(24 * time.Hour))})
	seed(t, docs, domain.CollectionMatches, "late", domain.Match{Opponent: "City", Date: domain.NewTimestamp(now.Add(72 * time.Hour))})
	seed(t, docs, domain.CollectionTactics, "t1", tactics.Tactics{MatchID: "early"})
	seed(t, docs, domain.CollectionTactics, "t2", tactics.Tactics{MatchID: "late"})
	seed(t, docs, domain.CollectionTactics, "t3", tactics.Tactics{MatchID: "gone"})
	seed(t, docs, domain.CollectionTraining, "s1", domain.TrainingSession{Focus: "past", Date: domain.NewTimestamp(now.Add(-time.Hour))})
	seed(t, docs, domain.CollectionTraining, "s2", domain.TrainingSession{Focus: "next", Date: domain.NewTimestamp(now.Add(time.Hour))})
	seed(t, docs, domain.CollectionPlayers, "p1", domain.Player{Name: "x"})

	dash := NewDashboardService(docs, NewFeedService(docs, "United", testLogger()), testLogger())
	dash.now = func() time.Time { return now }

	got, err := dash.Coach(context.Background())
	if err != nil {
		t.Fatalf("Coach: %v", err)
	}
	if len(got.Tactics) != 3 {
		t.Fatalf("tactics = %d", len(got.Tactics))
	}
	if got.Tactics[0].MatchInfo != "vs City" || got.Tactics[1].MatchInfo != "vs Athletic" || got.Tactics[2].MatchInfo != MatchNotFound {
		t.Errorf("order = %q %q %q", got.Tactics[0].MatchInfo, got.Tactics[1].MatchInfo, got.Tactics[2].MatchInfo)
	}
	if got.NextMatch == nil || got.NextMatch.ID != "early" {
		t.Errorf("next match = %+v", got.NextMatch)
	}
	if got.NextTraining == nil || got.NextTraining.Focus != "next" {
		t.Errorf("next training = %+v", got.NextTraining)
	}
	if got.TotalPlayers != 1 {
		t.Errorf("total players = %d", got.TotalPlayers)
	}
}

func newTacticsFixture(t *testing.T) (*TacticsService, *store.Memory, *recordingPublisher) {
	t.Helper()
	docs := store.NewMemory()
	seed(t, docs, domain.CollectionPlayers, "p1", domain.Player{Name: "One", Number: 1})
	seed(t, docs, domain.CollectionPlayers, "p2", domain.Player{Name: "Two", Number: 2})
	seed(t, docs, domain.CollectionMatches, "m1", domain.Match{Opponent: "Rovers", Date: domain.NewTimestamp(time.Now().Add(time.Hour))})
	pub := &recordingPublisher{}
	return NewTacticsService(docs, tactics.NewMemoryDrafts(time.Hour), pub, testLogger()), docs, pub
}

func TestDraftLifecycle(t *testing.T) {
	svc, docs, pub := newTacticsFixture(t)
	ctx := context.Background()
	coach := coachSession("c1")

	view, err := svc.OpenDraft(ctx, coach, "")
	if err != nil {
		t.Fatalf("OpenDraft: %v", err)
	}
	if len(view.Available) != 2 || len(view.Matches) != 1 {
		t.Fatalf("view = %+v", view)
	}
	draftID := view.Draft.ID

	view, err = svc.ChangeDraft(ctx, coach, draftID, view.Draft.Generation, DraftChange{Action: ActionDetails, MatchID: "m1"})
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	stale := view.Draft.Generation
	view, err = svc.ChangeDraft(ctx, coach, draftID, stale, DraftChange{Action: ActionPlace, PlayerID: "p1", Position: &tactics.Position{Top: 150, Left: 20}})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if got := view.Draft.Working.StartingXI; len(got) != 1 || got[0].Position.Top != 100 {
		t.Errorf("startingXI = %+v", got)
	}
	if len(view.Available) != 1 || view.Available[0].ID != "p2" {
		t.Errorf("available = %+v", view.Available)
	}

	if _, err := svc.ChangeDraft(ctx, coach, draftID, stale, DraftChange{Action: ActionBench, PlayerID: "p2"}); !errors.Is(err, domain.ErrDraftConflict) {
		t.Errorf("stale generation err = %v", err)
	}

	saved, err := svc.SaveDraft(ctx, coach, draftID)
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("saved id is empty")
	}
	if ev := pub.last(); ev.Action != domain.ActionCreate || ev.DocumentID != saved.ID || ev.Actor != "c1" {
		t.Errorf("event = %+v", ev)
	}

	again, err := svc.SaveDraft(ctx, coach, draftID)
	if err != nil {
		t.Fatalf("second SaveDraft: %v", err)
	}
	if again.ID != saved.ID || pub.last().Action != domain.ActionUpdate {
		t.Errorf("second save id=%s event=%+v", again.ID, pub.last())
	}

	// saving is not an edit: the generation the coach holds stays valid
	view, err = svc.ChangeDraft(ctx, coach, draftID, view.Draft.Generation, DraftChange{Action: ActionBench, PlayerID: "p2"})
	if err != nil {
		t.Fatalf("edit after save: %v", err)
	}
	if view.Draft.Working.ID != saved.ID {
		t.Errorf("draft working id = %q, want %q", view.Draft.Working.ID, saved.ID)
	}

	all, err := docs.Query(ctx, store.From(domain.CollectionTactics))
	if err != nil || len(all) != 1 {
		t.Errorf("stored tactics = %d, %v", len(all), err)
	}
}

func TestOverlappingSavesWriteOneDocument(t *testing.T) {
	svc, docs, pub := newTacticsFixture(t)
	ctx := context.Background()
	coach := coachSession("c1")

	view, err := svc.OpenDraft(ctx, coach, "")
	if err != nil {
		t.Fatalf("OpenDraft: %v", err)
	}
	if _, err := svc.ChangeDraft(ctx, coach, view.Draft.ID, 0, DraftChange{Action: ActionDetails, MatchID: "m1"}); err != nil {
		t.Fatalf("details: %v", err)
	}

	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, len(ids))
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			saved, err := svc.SaveDraft(ctx, coach, view.Draft.ID)
			ids[i], errs[i] = saved.ID, err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Errorf("save %d wrote %s, save 0 wrote %s", i, ids[i], ids[0])
		}
	}
	all, err := docs.Query(ctx, store.From(domain.CollectionTactics))
	if err != nil || len(all) != 1 {
		t.Errorf("stored tactics = %d, %v", len(all), err)
	}

	creates := 0
	for _, ev := range pub.all() {
		if ev.Action == domain.ActionCreate {
			creates++
		}
	}
	if creates != 1 {
		t.Errorf("create events = %d, want 1", creates)
	}
}

func TestDraftOwnership(t *testing.T) {
	svc, _, _ := newTacticsFixture(t)
	ctx := context.Background()

	view, err := svc.OpenDraft(ctx, coachSession("c1"), "")
	if err != nil {
		t.Fatalf("OpenDraft: %v", err)
	}
	if _, err := svc.Draft(ctx, coachSession("c2"), view.Draft.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign draft err = %v", err)
	}
	if _, err := svc.SaveDraft(ctx, coachSession("c1"), view.Draft.ID); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("save without match err = %v", err)
	}
	if _, err := svc.ChangeDraft(ctx, coachSession("c1"), view.Draft.ID, 0, DraftChange{Action: "spin"}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("unknown action err = %v", err)
	}
}

func TestDeleteTacticsNeedsConfirmation(t *testing.T) {
	svc, docs, pub := newTacticsFixture(t)
	ctx := context.Background()
	seed(t, docs, domain.CollectionTactics, "t1", tactics.Tactics{MatchID: "m1"})

	if err := svc.DeleteTactics(ctx, coachSession("c1"), "t1", false); !errors.Is(err, domain.ErrConfirmationNeeded) {
		t.Errorf("unconfirmed err = %v", err)
	}
	if _, err := docs.Get(ctx, domain.CollectionTactics, "t1"); err != nil {
		t.Errorf("document removed without confirmation: %v", err)
	}
	if err := svc.DeleteTactics(ctx, coachSession("c1"), "t1", true); err != nil {
		t.Fatalf("DeleteTactics: %v", err)
	}
	if _, err := docs.Get(ctx, domain.CollectionTactics, "t1"); !domain.IsNotFoundError(err) {
		t.Errorf("get after delete err = %v", err)
	}
	if pub.last().Action != domain.ActionDelete {
		t.Errorf("event = %+v", pub.last())
	}
}

func newAdminFixture(t *testing.T) (*AdminService, *store.Memory, *auth.MemoryAccounts, *recordingPublisher) {
	t.Helper()
	docs := store.NewMemory()
	accounts := auth.NewMemoryAccounts()
	pub := &recordingPublisher{}
	svc := NewAdminService(docs, accounts, pub, time.UTC, testLogger())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC) }
	return svc, docs, accounts, pub
}

func TestAdminCreateUpdateDelete(t *testing.T) {
	svc, docs, _, pub := newAdminFixture(t)
	ctx := context.Background()
	adminSess := domain.Session{Identity: domain.Identity{ID: "admin"}, IsAdmin: true}

	created, err := svc.Create(ctx, adminSess, admin.TabPlayers, admin.Form{Fields: map[string]any{"name": "Ada", "number": 7, "position": "Midfielder"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id, _ := created["id"].(string)
	if id == "" || pub.last().Action != domain.ActionCreate {
		t.Fatalf("created = %+v, event = %+v", created, pub.last())
	}

	if _, err := svc.Update(ctx, adminSess, admin.TabPlayers, id, admin.Form{Fields: map[string]any{"stats.season.goals": 3}}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	doc, err := docs.Get(ctx, domain.CollectionPlayers, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var p domain.Player
	if err := store.Decode(doc, &p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "Ada" || p.Number != 7 || p.Stats.Season.Goals != 3 {
		t.Errorf("player = %+v", p)
	}

	if err := svc.Delete(ctx, adminSess, admin.TabPlayers, id, false); !errors.Is(err, domain.ErrConfirmationNeeded) {
		t.Errorf("unconfirmed delete err = %v", err)
	}
	if err := svc.Delete(ctx, adminSess, admin.TabPlayers, id, true); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, adminSess, admin.TabUsers, "u1", true); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("user delete err = %v", err)
	}
}

func TestAdminCreateUserKeyedByAccount(t *testing.T) {
	svc, docs, accounts, _ := newAdminFixture(t)
	ctx := context.Background()
	if err := accounts.CreateAccount(ctx, domain.Account{ID: "acc-1", Email: "fan@club.test"}); err != nil {
		t.Fatal(err)
	}

	created, err := svc.Create(ctx, domain.Session{}, admin.TabUsers, admin.Form{Fields: map[string]any{"email": "fan@club.test", "isCoach": true}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created["id"] != "acc-1" {
		t.Errorf("id = %v", created["id"])
	}
	if _, err := docs.Get(ctx, domain.CollectionUsers, "acc-1"); err != nil {
		t.Errorf("users doc: %v", err)
	}

	_, err = svc.Create(ctx, domain.Session{}, admin.TabUsers, admin.Form{Fields: map[string]any{"email": "ghost@club.test"}})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("unknown account err = %v", err)
	}
}

func TestAdminGoalScorers(t *testing.T) {
	svc, docs, _, pub := newAdminFixture(t)
	ctx := context.Background()
	seed(t, docs, domain.CollectionMatches, "m1", domain.Match{Opponent: "Rovers", IsPast: true, Date: domain.NewTimestamp(time.Now())})

	m, err := svc.AddGoalScorer(ctx, domain.Session{}, "m1", admin.ScorerInput{Kind: admin.ScorerOpponent, OpponentName: "  Smith ", Minute: "12"})
	if err != nil {
		t.Fatalf("AddGoalScorer: %v", err)
	}
	if len(m.GoalScorers) != 1 || m.GoalScorers[0].PlayerName != "Smith" {
		t.Errorf("scorers = %+v", m.GoalScorers)
	}
	published := len(pub.events)

	m, err = svc.AddGoalScorer(ctx, domain.Session{}, "m1", admin.ScorerInput{Kind: admin.ScorerClub})
	if err != nil {
		t.Fatalf("empty AddGoalScorer: %v", err)
	}
	if len(m.GoalScorers) != 1 || len(pub.events) != published {
		t.Errorf("no-op changed state: %+v", m.GoalScorers)
	}

	m, err = svc.RemoveGoalScorer(ctx, domain.Session{}, "m1", 0)
	if err != nil {
		t.Fatalf("RemoveGoalScorer: %v", err)
	}
	doc, _ := docs.Get(ctx, domain.CollectionMatches, "m1")
	var stored domain.Match
	if err := store.Decode(doc, &stored); err != nil {
		t.Fatal(err)
	}
	if len(m.GoalScorers) != 0 || len(stored.GoalScorers) != 0 {
		t.Errorf("after remove = %+v / %+v", m.GoalScorers, stored.GoalScorers)
	}
}

func TestAdminOverviewAndUsers(t *testing.T) {
	svc, docs, _, _ := newAdminFixture(t)
	ctx := context.Background()
	seed(t, docs, domain.CollectionPlayers, "p1", domain.Player{Name: "Ada", UserID: "u1"})
	seed(t, docs, domain.CollectionCoaches, "c1", domain.Coach{Name: "Carl"})
	seed(t, docs, domain.CollectionMatches, "m1", domain.Match{Opponent: "A", IsPast: true})
	seed(t, docs, domain.CollectionMatches, "m2", domain.Match{Opponent: "B"})
	seed(t, docs, domain.CollectionUsers, "u1", domain.UserRecord{Email: "ada@club.test"})
	seed(t, docs, domain.CollectionUsers, "u2", domain.UserRecord{Email: "x@club.test"})

	ov, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov != (admin.Overview{TotalPlayers: 1, CoachingStaff: 1, UpcomingMatches: 1, NewsArticles: 0}) {
		t.Errorf("overview = %+v", ov)
	}

	rows, err := svc.Users(ctx)
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	names := map[string]string{}
	for _, r := range rows {
		names[r.ID] = r.DisplayName
	}
	if names["u1"] != "Ada" || names["u2"] != admin.NotLinked {
		t.Errorf("names = %v", names)
	}
}
