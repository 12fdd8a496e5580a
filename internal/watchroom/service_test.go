// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package watchroom

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/database"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/roomevents"
	"github.com/tomtom215/reelsync/internal/validation"
)

//nolint:gochecknoinits // init keeps test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

var testDBSemaphore = make(chan struct{}, 1)

type recordedEvents struct {
	mu     sync.Mutex
	events []roomevents.Event
}

func (r *recordedEvents) Publish(_ context.Context, ev roomevents.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordedEvents) types() []roomevents.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]roomevents.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recordedEvents) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type fixture struct {
	svc    *Service
	db     *database.DB
	events *recordedEvents
	alice  Identity
	bob    Identity
	carol  Identity
}

func testConfig() config.WatchRoomConfig {
	return config.WatchRoomConfig{
		DefaultHistoryLimit: 50,
		MaxHistoryLimit:     200,
		MaxMessageLength:    2000,
		ChatRatePerSecond:   5,
		ChatBurst:           10,
	}
}

func setup(t *testing.T) *fixture {
	t.Helper()
	testDBSemaphore <- struct{}{}
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		<-testDBSemaphore
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		<-testDBSemaphore
	})

	f := &fixture{db: db, events: &recordedEvents{}}
	f.svc = NewService(db, f.events, testConfig())
	f.alice = f.user(t, "alice@example.com", "Alice")
	f.bob = f.user(t, "bob@example.com", "Bob")
	f.carol = f.user(t, "carol@example.com", "Carol")
	return f
}

func (f *fixture) user(t *testing.T, email, name string) Identity {
	t.Helper()
	u, err := f.db.CreateUser(context.Background(), models.NewUser{
		Email: email, Name: name, PasswordHash: "x", Role: models.RoleUser,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return Identity{UserID: u.ID, Name: u.Name}
}

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateRoomCode()
		if err != nil {
			t.Fatalf("GenerateRoomCode: %v", err)
		}
		if !models.ValidRoomCode(code) {
			t.Fatalf("invalid code %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 190 {
		t.Errorf("only %d distinct codes out of 200", len(seen))
	}
}

func TestCreateJoinLeave(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	room, err := f.svc.CreateRoom(ctx, f.alice, "  ")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.Title != "Alice's room" || room.HostID != f.alice.UserID {
		t.Errorf("room = %+v", room)
	}

	joined, err := f.svc.JoinRoom(ctx, strings.ToLower(room.Code), f.bob)
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if len(joined.Participants) != 2 {
		t.Fatalf("participants = %+v", joined.Participants)
	}
	// Rejoining publishes nothing.
	if _, err := f.svc.JoinRoom(ctx, room.Code, f.bob); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != roomevents.ParticipantJoined {
		t.Errorf("events = %v", got)
	}

	// Host leaves: Bob is promoted.
	if err := f.svc.LeaveRoom(ctx, room.Code, f.alice); err != nil {
		t.Fatalf("LeaveRoom: %v", err)
	}
	after, err := f.svc.GetRoom(ctx, room.Code)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if after.HostID != f.bob.UserID || len(after.Participants) != 1 || after.Participants[0].Role != models.ParticipantHost {
		t.Errorf("after host left: %+v", after)
	}

	if err := f.svc.LeaveRoom(ctx, room.Code, f.alice); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("second leave = %v, want ErrNotParticipant", err)
	}
}

func TestJoinRoom_MovesUserOutOfOtherRoom(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, _ := f.svc.CreateRoom(ctx, f.alice, "First")
	second, _ := f.svc.CreateRoom(ctx, f.carol, "Second")
	if _, err := f.svc.JoinRoom(ctx, first.Code, f.bob); err != nil {
		t.Fatalf("join first: %v", err)
	}
	if _, err := f.svc.JoinRoom(ctx, second.Code, f.bob); err != nil {
		t.Fatalf("join second: %v", err)
	}

	r1, _ := f.svc.GetRoom(ctx, first.Code)
	if r1.HasParticipant(f.bob.UserID) {
		t.Error("bob should have left the first room")
	}
	r2, _ := f.svc.GetRoom(ctx, second.Code)
	if !r2.HasParticipant(f.bob.UserID) {
		t.Error("bob should be in the second room")
	}
}

func TestCreateRoom_MovesHostOutOfOtherRoom(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, _ := f.svc.CreateRoom(ctx, f.alice, "First")
	if _, err := f.svc.JoinRoom(ctx, first.Code, f.bob); err != nil {
		t.Fatalf("join first: %v", err)
	}
	second, err := f.svc.CreateRoom(ctx, f.bob, "Second")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	codes, err := f.db.OpenRoomCodesForUser(ctx, f.bob.UserID)
	if err != nil {
		t.Fatalf("OpenRoomCodesForUser: %v", err)
	}
	if len(codes) != 1 || codes[0] != second.Code {
		t.Errorf("bob's open rooms = %v, want [%s]", codes, second.Code)
	}
}

func TestJoinRoom_ConcurrentJoinsKeepOneRoom(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		a, _ := f.svc.CreateRoom(ctx, f.alice, "A")
		b, _ := f.svc.CreateRoom(ctx, f.bob, "B")

		var wg sync.WaitGroup
		for _, code := range []string{a.Code, b.Code} {
			wg.Add(1)
			go func(code string) {
				defer wg.Done()
				if _, err := f.svc.JoinRoom(ctx, code, f.carol); err != nil {
					t.Errorf("JoinRoom(%s): %v", code, err)
				}
			}(code)
		}
		wg.Wait()

		codes, err := f.db.OpenRoomCodesForUser(ctx, f.carol.UserID)
		if err != nil {
			t.Fatalf("OpenRoomCodesForUser: %v", err)
		}
		if len(codes) != 1 {
			t.Fatalf("iteration %d: carol is in %d open rooms (%v), want 1", i, len(codes), codes)
		}
	}
}

func TestJoinRoom_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.svc.JoinRoom(ctx, "ZZZZZZ", f.bob); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("unknown room = %v", err)
	}
	room, _ := f.svc.CreateRoom(ctx, f.alice, "Movie")
	if err := f.svc.CloseRoom(ctx, room.Code); err != nil {
		t.Fatalf("CloseRoom: %v", err)
	}
	if _, err := f.svc.JoinRoom(ctx, room.Code, f.bob); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("closed room = %v", err)
	}
	if err := f.svc.CloseRoom(ctx, room.Code); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("second close = %v", err)
	}
}

func TestUpdatePlayback(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room, _ := f.svc.CreateRoom(ctx, f.alice, "Movie")
	f.events.reset()

	tests := []struct {
		name    string
		who     Identity
		update  models.PlaybackUpdate
		wantErr error
		wantVal bool
	}{
		{name: "host updates", who: f.alice, update: models.PlaybackUpdate{MediaID: "603", MediaType: models.MediaTypeMovie, Position: 90}},
		{name: "non participant", who: f.bob, update: models.PlaybackUpdate{MediaID: "603"}, wantErr: ErrNotParticipant},
		{name: "missing media id", who: f.alice, update: models.PlaybackUpdate{Position: 1}, wantVal: true},
		{name: "negative position", who: f.alice, update: models.PlaybackUpdate{MediaID: "1", Position: -1}, wantVal: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := f.svc.UpdatePlayback(ctx, room.Code, tt.who, tt.update)
			switch {
			case tt.wantVal:
				var ve *validation.RequestValidationError
				if !errors.As(err, &ve) {
					t.Errorf("err = %v, want validation error", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("UpdatePlayback: %v", err)
				}
				if state.UpdatedBy != tt.who.UserID || state.Position != tt.update.Position {
					t.Errorf("state = %+v", state)
				}
			}
		})
	}

	stored, _ := f.svc.GetRoom(ctx, room.Code)
	if stored.Playback.MediaID != "603" || stored.Playback.Position != 90 {
		t.Errorf("stored playback = %+v", stored.Playback)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != roomevents.PlaybackUpdated {
		t.Errorf("events = %v", got)
	}
}

func TestPostMessageAndHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room, _ := f.svc.CreateRoom(ctx, f.alice, "Movie")

	if _, err := f.svc.PostMessage(ctx, room.Code, f.alice, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty = %v", err)
	}
	if _, err := f.svc.PostMessage(ctx, room.Code, f.alice, strings.Repeat("é", 2001)); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("too long = %v", err)
	}
	if _, err := f.svc.PostMessage(ctx, room.Code, f.alice, strings.Repeat("é", 2000)); err != nil {
		t.Errorf("2000 runes should be accepted: %v", err)
	}
	if _, err := f.svc.PostMessage(ctx, room.Code, f.bob, "hi"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("non participant = %v", err)
	}

	for i := 0; i < 5; i++ {
		msg, err := f.svc.PostMessage(ctx, room.Code, f.alice, " hello ")
		if err != nil {
			t.Fatalf("PostMessage: %v", err)
		}
		if msg.Body != "hello" || msg.Seq != int64(i+2) {
			t.Errorf("msg = %+v", msg)
		}
	}

	history, err := f.svc.ChatHistory(ctx, room.Code, 3)
	if err != nil {
		t.Fatalf("ChatHistory: %v", err)
	}
	if len(history) != 3 || history[0].Seq != 4 || history[2].Seq != 6 {
		t.Errorf("history seqs = %v", history)
	}
	if history[0].SenderName != "Alice" {
		t.Errorf("sender name = %q", history[0].SenderName)
	}
}

func TestPostMessage_ConcurrentSeqsAreUnique(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room, _ := f.svc.CreateRoom(ctx, f.alice, "Movie")
	if _, err := f.svc.JoinRoom(ctx, room.Code, f.bob); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		who := f.alice
		if i%2 == 1 {
			who = f.bob
		}
		wg.Add(1)
		go func(who Identity) {
			defer wg.Done()
			if _, err := f.svc.PostMessage(ctx, room.Code, who, "msg"); err != nil {
				errs <- err
			}
		}(who)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("PostMessage: %v", err)
	}

	history, _ := f.svc.ChatHistory(ctx, room.Code, 200)
	if len(history) != 20 {
		t.Fatalf("history len = %d", len(history))
	}
	for i, m := range history {
		if m.Seq != int64(i+1) {
			t.Fatalf("seq[%d] = %d, want %d", i, m.Seq, i+1)
		}
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := NewService(nil, nil, testConfig())
	tests := []struct{ in, want int }{
		{0, 50}, {-3, 50}, {1, 1}, {200, 200}, {201, 200}, {10000, 200},
	}
	for _, tt := range tests {
		if got := svc.HistoryLimit(tt.in); got != tt.want {
			t.Errorf("HistoryLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestInviteUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room, _ := f.svc.CreateRoom(ctx, f.alice, "Friday film")
	f.events.reset()

	n, err := f.svc.InviteUser(ctx, room.Code, f.alice, f.bob.UserID)
	if err != nil {
		t.Fatalf("InviteUser: %v", err)
	}
	if n.Kind != models.NotificationRoomInvite || n.Body != "Friday film" || !strings.HasSuffix(n.Link, room.Code) {
		t.Errorf("notification = %+v", n)
	}
	list, _ := f.db.ListNotifications(ctx, f.bob.UserID, 50)
	if len(list) != 1 {
		t.Errorf("bob notifications = %d", len(list))
	}
	f.events.mu.Lock()
	ev := f.events.events[0]
	f.events.mu.Unlock()
	if ev.Type != roomevents.UserNotification || ev.UserID != f.bob.UserID || ev.RoomCode != "" {
		t.Errorf("event = %+v", ev)
	}

	tests := []struct {
		name string
		from Identity
		to   string
		want error
	}{
		{"self", f.alice, f.alice.UserID, ErrSelfInvite},
		{"not participant", f.carol, f.bob.UserID, ErrNotParticipant},
		{"unknown user", f.alice, "00000000-0000-0000-0000-000000000000", ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.InviteUser(ctx, room.Code, tt.from, tt.to); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSearchInviteCandidates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"too short", " a ", nil},
		{"excludes requester", "example.com", []string{"Bob", "Carol"}},
		{"case insensitive name", "CAR", []string{"Carol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := f.svc.SearchInviteCandidates(ctx, f.alice, tt.query)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if users == nil {
				t.Fatal("result should be an empty slice, not nil")
			}
			if len(users) != len(tt.want) {
				t.Fatalf("users = %+v, want %v", users, tt.want)
			}
			for i, name := range tt.want {
				if users[i].Name != name {
					t.Errorf("users[%d] = %q, want %q", i, users[i].Name, name)
				}
			}
		})
	}
}
