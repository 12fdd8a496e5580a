// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package watchroom implements watch-together rooms: membership, shared
// playback state, chat and invitations. Every change is stored first and
// then published as a room event.
package watchroom

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/database"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/roomevents"
	"github.com/tomtom215/reelsync/internal/validation"
)

var (
	ErrRoomNotFound   = database.ErrRoomNotFound
	ErrRoomClosed     = database.ErrRoomClosed
	ErrUserNotFound   = database.ErrUserNotFound
	ErrNotParticipant = errors.New("not a participant of this room")
	ErrEmptyMessage   = errors.New("message body is empty")
	ErrMessageTooLong = errors.New("message body is too long")
	ErrSelfInvite     = errors.New("cannot invite yourself")
)

const (
	maxCodeAttempts = 5
	maxTitleRunes   = 100

	// MinSearchRunes is the shortest invite search query that hits the database.
	MinSearchRunes = 2
)

// Identity is the acting user.
type Identity struct {
	UserID string
	Name   string
}

// Store is the persistence the service needs. *database.DB implements it.
type Store interface {
	CreateRoom(ctx context.Context, room *models.Room, hostName string) error
	GetRoom(ctx context.Context, code string) (*models.Room, error)
	AddParticipant(ctx context.Context, code, userID string, role models.ParticipantRole, at time.Time) (bool, error)
	RemoveParticipant(ctx context.Context, code, userID string) (bool, error)
	TransferHost(ctx context.Context, code, newHostID string) error
	OpenRoomCodesForUser(ctx context.Context, userID string) ([]string, error)
	UpdatePlayback(ctx context.Context, code string, state models.PlaybackState) error
	CloseRoom(ctx context.Context, code string, at time.Time) error
	AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error
	ChatHistory(ctx context.Context, code string, limit int) ([]models.ChatMessage, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SearchUsers(ctx context.Context, query, excludeID string) ([]models.UserSummary, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Publisher sends room events. *roomevents.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, ev roomevents.Event) error
}

// Service coordinates room operations.
type Service struct {
	store  Store
	events Publisher
	cfg    config.WatchRoomConfig
	now    func() time.Time

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewService creates a Service. events may be nil to skip publishing.
func NewService(store Store, events Publisher, cfg config.WatchRoomConfig) *Service {
	return &Service{
		store:  store,
		events: events,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		locks:     make(map[string]*sync.Mutex),
		userLocks: make(map[string]*sync.Mutex),
	}
}

// roomLock serializes writes to one room within this process.
func (s *Service) roomLock(code string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[code]
	if !ok {
		l = &sync.Mutex{}
		s.locks[code] = l
	}
	return l
}

// userLock serializes membership moves of one user. It is always taken
// before any room lock.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// leaveOtherRooms removes who from every open room except keep. The caller
// holds who's user lock.
func (s *Service) leaveOtherRooms(ctx context.Context, who Identity, keep string) error {
	others, err := s.store.OpenRoomCodesForUser(ctx, who.UserID)
	if err != nil {
		return err
	}
	for _, other := range others {
		if other == keep {
			continue
		}
		if err := s.LeaveRoom(ctx, other, who); err != nil && !errors.Is(err, ErrNotParticipant) {
			return fmt.Errorf("failed to leave room %s: %w", other, err)
		}
	}
	return nil
}

func (s *Service) dropLock(code string) {
	s.mu.Lock()
	delete(s.locks, code)
	s.mu.Unlock()
}

// publish logs and swallows failures; the database is already updated.
func (s *Service) publish(ctx context.Context, ev roomevents.Event, err error) {
	if s.events == nil {
		return
	}
	if err == nil {
		err = s.events.Publish(ctx, ev)
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("event_type", string(ev.Type)).
			Str("room_code", ev.RoomCode).
			Msg("Failed to publish room event")
	}
}

// GenerateRoomCode returns a random code drawn from models.RoomCodeAlphabet.
func GenerateRoomCode() (string, error) {
	buf := make([]byte, models.RoomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	alphabet := models.RoomCodeAlphabet
	for i, b := range buf {
		// 256 is a multiple of len(alphabet), so there is no modulo bias.
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// CreateRoom opens a room with host as its first participant. The host
// leaves any other open room first.
func (s *Service) CreateRoom(ctx context.Context, host Identity, title string) (*models.Room, error) {
	ul := s.userLock(host.UserID)
	ul.Lock()
	defer ul.Unlock()
	if err := s.leaveOtherRooms(ctx, host, ""); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = host.Name + "'s room"
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = string([]rune(title)[:maxTitleRunes])
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := GenerateRoomCode()
		if err != nil {
			return nil, err
		}
		room := &models.Room{
			Code:      code,
			Title:     title,
			HostID:    host.UserID,
			CreatedAt: s.now(),
		}
		err = s.store.CreateRoom(ctx, room, host.Name)
		if errors.Is(err, database.ErrRoomCodeTaken) {
			logging.Ctx(ctx).Debug().Str("room_code", code).Int("attempt", attempt).Msg("Room code collision, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		metrics.RoomsCreated.Inc()
		logging.Ctx(ctx).Info().Str("room_code", code).Msg("Watch room created")
		return room, nil
	}
	return nil, fmt.Errorf("failed to allocate a unique room code after %d attempts", maxCodeAttempts)
}

// GetRoom returns a room with its participants.
func (s *Service) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	return s.store.GetRoom(ctx, models.NormalizeRoomCode(code))
}

// JoinRoom adds who to the room as a guest after leaving any other open
// room. Joining a room twice is a no-op.
func (s *Service) JoinRoom(ctx context.Context, code string, who Identity) (*models.Room, error) {
	code = models.NormalizeRoomCode(code)
	ul := s.userLock(who.UserID)
	ul.Lock()
	defer ul.Unlock()

	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.IsClosed() {
		return nil, ErrRoomClosed
	}
	if room.HasParticipant(who.UserID) {
		return room, nil
	}

	if err := s.leaveOtherRooms(ctx, who, code); err != nil {
		return nil, err
	}

	lock := s.roomLock(code)
	lock.Lock()
	added, err := s.store.AddParticipant(ctx, code, who.UserID, models.ParticipantGuest, s.now())
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	room, err = s.store.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if added {
		for _, p := range room.Participants {
			if p.UserID == who.UserID {
				ev, evErr := roomevents.NewRoomEvent(roomevents.ParticipantJoined, code, who.UserID, p)
				s.publish(ctx, ev, evErr)
				break
			}
		}
	}
	return room, nil
}

type participantLeft struct {
	UserID    string `json:"userId"`
	NewHostID string `json:"newHostId,omitempty"`
}

// LeaveRoom removes who from the room. When the host leaves, the
// earliest-joined remaining participant becomes host.
func (s *Service) LeaveRoom(ctx context.Context, code string, who Identity) error {
	code = models.NormalizeRoomCode(code)
	lock := s.roomLock(code)
	lock.Lock()
	defer lock.Unlock()

	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	removed, err := s.store.RemoveParticipant(ctx, code, who.UserID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotParticipant
	}

	payload := participantLeft{UserID: who.UserID}
	if room.HostID == who.UserID && !room.IsClosed() {
		for _, p := range room.Participants {
			if p.UserID == who.UserID {
				continue
			}
			if err := s.store.TransferHost(ctx, code, p.UserID); err != nil {
				return fmt.Errorf("failed to promote new host: %w", err)
			}
			payload.NewHostID = p.UserID
			break
		}
	}

	ev, evErr := roomevents.NewRoomEvent(roomevents.ParticipantLeft, code, who.UserID, payload)
	s.publish(ctx, ev, evErr)
	return nil
}

// UpdatePlayback replaces the room's playback state.
func (s *Service) UpdatePlayback(ctx context.Context, code string, who Identity, update models.PlaybackUpdate) (*models.PlaybackState, error) {
	if err := validation.ValidateStruct(&update); err != nil {
		return nil, err
	}
	code = models.NormalizeRoomCode(code)
	lock := s.roomLock(code)
	lock.Lock()
	defer lock.Unlock()

	if err := s.requireParticipant(ctx, code, who.UserID); err != nil {
		return nil, err
	}

	state := models.PlaybackState{
		MediaID:   update.MediaID,
		MediaType: update.MediaType,
		Position:  update.Position,
		Paused:    update.Paused,
		UpdatedBy: who.UserID,
		UpdatedAt: s.now(),
	}
	if err := s.store.UpdatePlayback(ctx, code, state); err != nil {
		return nil, err
	}
	metrics.PlaybackUpdatesTotal.Inc()

	ev, evErr := roomevents.NewRoomEvent(roomevents.PlaybackUpdated, code, who.UserID, state)
	s.publish(ctx, ev, evErr)
	return &state, nil
}

// PostMessage appends a chat message. The body is trimmed before the
// length checks.
func (s *Service) PostMessage(ctx context.Context, code string, who Identity, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > s.cfg.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	code = models.NormalizeRoomCode(code)
	lock := s.roomLock(code)
	lock.Lock()
	defer lock.Unlock()

	if err := s.requireParticipant(ctx, code, who.UserID); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		RoomCode:   code,
		SenderID:   who.UserID,
		SenderName: who.Name,
		Body:       body,
		CreatedAt:  s.now(),
	}
	if err := s.store.AppendChatMessage(ctx, msg); err != nil {
		return nil, err
	}
	metrics.ChatMessagesTotal.Inc()

	ev, evErr := roomevents.NewRoomEvent(roomevents.ChatMessage, code, who.UserID, msg)
	s.publish(ctx, ev, evErr)
	return msg, nil
}

// HistoryLimit applies the default and maximum to a requested limit.
func (s *Service) HistoryLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultHistoryLimit
	}
	if limit > s.cfg.MaxHistoryLimit {
		return s.cfg.MaxHistoryLimit
	}
	return limit
}

// ChatHistory returns the newest messages oldest-first.
func (s *Service) ChatHistory(ctx context.Context, code string, limit int) ([]models.ChatMessage, error) {
	return s.store.ChatHistory(ctx, models.NormalizeRoomCode(code), s.HistoryLimit(limit))
}

// InviteUser notifies toUserID that from invited them to the room.
func (s *Service) InviteUser(ctx context.Context, code string, from Identity, toUserID string) (*models.Notification, error) {
	if toUserID == from.UserID {
		return nil, ErrSelfInvite
	}
	code = models.NormalizeRoomCode(code)

	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.IsClosed() {
		return nil, ErrRoomClosed
	}
	if !room.HasParticipant(from.UserID) {
		return nil, ErrNotParticipant
	}
	if _, err := s.store.GetUserByID(ctx, toUserID); err != nil {
		return nil, err
	}

	n := &models.Notification{
		UserID: toUserID,
		Kind:   models.NotificationRoomInvite,
		Title:  from.Name + " invited you to watch together",
		Body:   room.Title,
		Link:   "/watch-room/" + code,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	ev, evErr := roomevents.NewUserEvent(roomevents.UserNotification, toUserID, n)
	s.publish(ctx, ev, evErr)
	logging.Ctx(ctx).Info().Str("room_code", code).Str("invitee", toUserID).Msg("Room invite sent")
	return n, nil
}

type roomClosed struct {
	Code     string    `json:"code"`
	ClosedAt time.Time `json:"closedAt"`
}

// CloseRoom closes the room and removes every participant.
func (s *Service) CloseRoom(ctx context.Context, code string) error {
	code = models.NormalizeRoomCode(code)
	lock := s.roomLock(code)
	lock.Lock()
	at := s.now()
	err := s.store.CloseRoom(ctx, code, at)
	lock.Unlock()
	if err != nil {
		return err
	}
	s.dropLock(code)
	metrics.RoomsClosed.Inc()

	ev, evErr := roomevents.NewRoomEvent(roomevents.RoomClosed, code, "", roomClosed{Code: code, ClosedAt: at})
	s.publish(ctx, ev, evErr)
	logging.Ctx(ctx).Info().Str("room_code", code).Msg("Watch room closed")
	return nil
}

// SearchInviteCandidates finds users to invite. Queries shorter than
// MinSearchRunes return an empty list.
func (s *Service) SearchInviteCandidates(ctx context.Context, requester Identity, query string) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchRunes {
		return []models.UserSummary{}, nil
	}
	users, err := s.store.SearchUsers(ctx, query, requester.UserID)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.UserSummary{}
	}
	return users, nil
}

// RequireParticipant returns nil when userID is in the open room.
func (s *Service) RequireParticipant(ctx context.Context, code, userID string) error {
	return s.requireParticipant(ctx, models.NormalizeRoomCode(code), userID)
}

func (s *Service) requireParticipant(ctx context.Context, code, userID string) error {
	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.IsClosed() {
		return ErrRoomClosed
	}
	if !room.HasParticipant(userID) {
		return ErrNotParticipant
	}
	return nil
}
