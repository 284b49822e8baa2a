// Package store holds the dashboard collections in memory and persists
// them through a key/value Backend, one JSON array per collection.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	appLog "churchconnect/internal/log"
	"churchconnect/internal/model"
)

// Collection keys.
const (
	KeyEvents         = "events"
	KeyVolunteers     = "volunteers"
	KeyAttendees      = "attendees"
	KeyCommunications = "communications"
	KeyPayments       = "payments"
	KeyDonations      = "donations"
)

// Data is the full set of dashboard collections.
type Data struct {
	Events         []model.Event
	Volunteers     []model.Volunteer
	Attendees      []model.Attendee
	Communications []model.Communication
	Payments       []model.Payment
	Donations      []model.Donation
}

// Store guards Data and syncs it with a Backend.
type Store struct {
	backend Backend

	// saveMu orders writes to the backend; acquire it before mu.
	saveMu sync.Mutex

	mu   sync.RWMutex
	data Data
}

// New returns a Store starting from the seed data. Call Load to read the
// backend.
func New(backend Backend) *Store {
	return &Store{backend: backend, data: DefaultData()}
}

// Load reads every collection once. A collection that is missing or cannot
// be decoded falls back to its seed value; the failure is logged.
func (s *Store) Load(ctx context.Context) error {
	def := DefaultData()
	var next Data

	loadKey(ctx, s.backend, KeyEvents, &next.Events, def.Events)
	loadKey(ctx, s.backend, KeyVolunteers, &next.Volunteers, def.Volunteers)
	loadKey(ctx, s.backend, KeyAttendees, &next.Attendees, def.Attendees)
	loadKey(ctx, s.backend, KeyCommunications, &next.Communications, def.Communications)
	loadKey(ctx, s.backend, KeyPayments, &next.Payments, def.Payments)
	loadKey(ctx, s.backend, KeyDonations, &next.Donations, def.Donations)

	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return nil
}

func loadKey[T any](ctx context.Context, b Backend, key string, dst *[]T, fallback []T) {
	*dst = fallback
	raw, err := b.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		appLog.Error("store load failed, using defaults", err, "key", key)
		return
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		appLog.Error("store value corrupt, using defaults", err, "key", key)
		return
	}
	if out == nil {
		out = []T{}
	}
	*dst = out
}

// Save writes every collection to the backend. Saves run one at a time and
// each snapshots the collections only once it holds saveMu.
func (s *Store) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.save(ctx)
}

// UpdateAndSave runs fn with write access and, when fn succeeds, persists
// the result before any other save can run. A persistence error is
// returned; the in-memory change is kept.
func (s *Store) UpdateAndSave(ctx context.Context, fn func(d *Data) error) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.Update(fn); err != nil {
		return err
	}
	return s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	s.mu.RLock()
	values := []struct {
		key string
		v   any
	}{
		{KeyEvents, s.data.Events},
		{KeyVolunteers, s.data.Volunteers},
		{KeyAttendees, s.data.Attendees},
		{KeyCommunications, s.data.Communications},
		{KeyPayments, s.data.Payments},
		{KeyDonations, s.data.Donations},
	}
	encoded := make(map[string][]byte, len(values))
	for _, kv := range values {
		raw, err := json.Marshal(kv.v)
		if err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("store: encode %s: %w", kv.key, err)
		}
		encoded[kv.key] = raw
	}
	s.mu.RUnlock()

	for _, kv := range values {
		if err := s.backend.Put(ctx, kv.key, encoded[kv.key]); err != nil {
			appLog.Error("store save failed", err, "key", kv.key)
			return err
		}
	}
	return nil
}

// View runs fn with read access. fn must not retain or modify d.
func (s *Store) View(fn func(d *Data)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.data)
}

// Update runs fn with write access. Changes are not persisted until Save;
// commands that must persist use UpdateAndSave.
func (s *Store) Update(fn func(d *Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
