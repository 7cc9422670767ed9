// Package store implements the room metadata collaborators on BadgerDB.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"watchparty/internal/core"
	"watchparty/internal/domain"
)

const (
	roomKeyPrefix   = "room:"
	inviteKeyPrefix = "invite:"
)

// roomRecord is the persisted form of a room; it carries the password hash
// the public Room struct keeps out of JSON.
type roomRecord struct {
	domain.Room
	PasswordHash string `json:"password_hash,omitempty"`
}

// Open opens the room database. An empty path runs Badger in memory, which
// tests and local runs use.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

// BadgerStore is the Room Metadata Store backed by BadgerDB. Rooms live as
// JSON values under room:<id>, with an invite:<code> index pointing back.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// CreateRoomParams is the external room-creation flow's input.
type CreateRoomParams struct {
	Name              string
	AdminID           string
	IsPrivate         bool
	Password          string
	VideoURL          string
	SyncMode          domain.SyncMode
	AutoPlay          bool
	AllowGuestControl bool
}

func (s *BadgerStore) CreateRoom(ctx context.Context, params CreateRoomParams) (*domain.Room, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, fmt.Errorf("room name empty: %w", core.ErrUnauthorized)
	}
	if params.SyncMode == "" {
		params.SyncMode = domain.SyncStrict
	}

	room := domain.Room{
		ID:                domain.RoomID(uuid.NewString()),
		Name:              params.Name,
		AdminID:           params.AdminID,
		InviteCode:        newInviteCode(),
		IsActive:          true,
		CreatedAt:         time.Now().UTC(),
		IsPrivate:         params.IsPrivate,
		AllowGuestControl: params.AllowGuestControl,
		AutoPlay:          params.AutoPlay,
		SyncMode:          params.SyncMode,
		VideoURL:          params.VideoURL,
	}

	rec := roomRecord{Room: room}
	if params.IsPrivate {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash room password: %w", err)
		}
		rec.PasswordHash = string(hash)
		rec.Room.PasswordHash = string(hash)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal room: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(roomKey(room.ID), data); err != nil {
			return err
		}
		return txn.Set(inviteKey(room.InviteCode), []byte(room.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("persist room: %w", err)
	}

	log.Info().Str("module", "store.badger").Str("room", string(room.ID)).Str("invite", room.InviteCode).Msg("room created")
	return &rec.Room, nil
}

func (s *BadgerStore) GetRoom(_ context.Context, roomID domain.RoomID) (*domain.Room, error) {
	var rec roomRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("room %s: %w", roomID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	rec.Room.PasswordHash = rec.PasswordHash
	return &rec.Room, nil
}

func (s *BadgerStore) GetRoomByInviteCode(ctx context.Context, code string) (*domain.Room, error) {
	var roomID domain.RoomID
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(inviteKey(code))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			roomID = domain.RoomID(v)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("invite code %s: %w", code, core.ErrNotFound)
		}
		return nil, fmt.Errorf("resolve invite code: %w", err)
	}
	return s.GetRoom(ctx, roomID)
}

func (s *BadgerStore) IsAdmin(ctx context.Context, roomID domain.RoomID, userID string) (bool, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.AdminID == userID, nil
}

func (s *BadgerStore) ValidatePassword(ctx context.Context, roomID domain.RoomID, password string) (bool, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !room.IsPrivate {
		return true, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password))
	return err == nil, nil
}

func (s *BadgerStore) UpdatePlaybackState(_ context.Context, roomID domain.RoomID, position float64, isPlaying bool) error {
	return s.mutateRoom(roomID, func(rec *roomRecord) {
		rec.CurrentPosition = position
		rec.IsPlaying = isPlaying
	})
}

func (s *BadgerStore) UpdateVideo(_ context.Context, roomID domain.RoomID, videoURL string) error {
	return s.mutateRoom(roomID, func(rec *roomRecord) {
		rec.VideoURL = videoURL
		rec.CurrentPosition = 0
		rec.IsPlaying = rec.AutoPlay
	})
}

func (s *BadgerStore) EndRoom(_ context.Context, roomID domain.RoomID) error {
	now := time.Now().UTC()
	return s.mutateRoom(roomID, func(rec *roomRecord) {
		rec.IsActive = false
		rec.EndedAt = &now
	})
}

// mutateRoom is a read-modify-write on a single room inside one transaction.
func (s *BadgerStore) mutateRoom(roomID domain.RoomID, mutate func(*roomRecord)) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if err != nil {
			return err
		}
		var rec roomRecord
		if err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &rec)
		}); err != nil {
			return err
		}
		mutate(&rec)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(roomKey(roomID), data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("room %s: %w", roomID, core.ErrNotFound)
	}
	return err
}

func roomKey(roomID domain.RoomID) []byte {
	return []byte(roomKeyPrefix + string(roomID))
}

func inviteKey(code string) []byte {
	return []byte(inviteKeyPrefix + strings.ToUpper(code))
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
