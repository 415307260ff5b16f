// Package subs is the in-memory subscription registry with write-through
// persistence. Memory is authoritative: a failed persist is logged and the
// in-memory change stands, so a flaky disk degrades durability, not behavior.
package subs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"palwatch/internal/storage"
	logx "palwatch/pkg/logx"
)

var (
	ErrEmptyKeyword     = errors.New("keyword is empty")
	ErrDuplicateKeyword = errors.New("keyword already subscribed")
	ErrKeywordNotFound  = errors.New("keyword not subscribed")
)

const persistTimeout = 5 * time.Second

// Store holds every subscriber's keyword list and preferred channel.
type Store struct {
	mu       sync.Mutex
	keywords map[int64][]string
	channels map[int64]int64

	backend storage.Backend
	log     logx.Logger
}

// Load builds the store from the backend's current contents.
func Load(ctx context.Context, backend storage.Backend, log logx.Logger) (*Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{
		keywords: map[int64][]string{},
		channels: map[int64]int64{},
		backend:  backend,
		log:      log,
	}
	if backend == nil {
		return s, nil
	}

	kws, err := backend.LoadKeywords(ctx)
	if err != nil {
		return nil, err
	}
	chans, err := backend.LoadChannels(ctx)
	if err != nil {
		return nil, err
	}
	if kws != nil {
		s.keywords = kws
	}
	if chans != nil {
		s.channels = chans
	}
	return s, nil
}

// AddKeyword subscribes user to kw. Duplicate checks are case-insensitive
// so "Zakum" and "zakum" cannot coexist, but the stored keyword keeps the
// user's original casing.
func (s *Store) AddKeyword(userID int64, kw string) error {
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return ErrEmptyKeyword
	}

	s.mu.Lock()
	for _, existing := range s.keywords[userID] {
		if strings.EqualFold(existing, kw) {
			s.mu.Unlock()
			return ErrDuplicateKeyword
		}
	}
	s.keywords[userID] = append(s.keywords[userID], kw)
	snapshot := s.copyKeywordsLocked()
	s.mu.Unlock()

	s.persistKeywords(snapshot)
	return nil
}

func (s *Store) RemoveKeyword(userID int64, kw string) error {
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return ErrEmptyKeyword
	}

	s.mu.Lock()
	list := s.keywords[userID]
	idx := -1
	for i, existing := range list {
		if strings.EqualFold(existing, kw) {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return ErrKeywordNotFound
	}
	// The record stays even when the list empties; the subscriber remains
	// known (and counted) until they are forgotten elsewhere.
	s.keywords[userID] = append(list[:idx], list[idx+1:]...)
	snapshot := s.copyKeywordsLocked()
	s.mu.Unlock()

	s.persistKeywords(snapshot)
	return nil
}

// Keywords returns a copy of the user's watch list in insertion order.
func (s *Store) Keywords(userID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.keywords[userID]
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// SetChannel records the user's preferred notification chat.
func (s *Store) SetChannel(userID, chatID int64) {
	s.mu.Lock()
	s.channels[userID] = chatID
	snapshot := s.copyChannelsLocked()
	s.mu.Unlock()

	s.persistChannels(snapshot)
}

// Channel returns the user's preferred chat, ok=false if none is set.
func (s *Store) Channel(userID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[userID]
	return ch, ok
}

// Snapshot returns a deep copy of every subscriber's keyword list,
// for iteration without holding the store lock.
func (s *Store) Snapshot() map[int64][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyKeywordsLocked()
}

// Counts returns (subscribers, total keywords).
func (s *Store) Counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, list := range s.keywords {
		total += len(list)
	}
	return len(s.keywords), total
}

func (s *Store) copyKeywordsLocked() map[int64][]string {
	out := make(map[int64][]string, len(s.keywords))
	for id, list := range s.keywords {
		cp := make([]string, len(list))
		copy(cp, list)
		out[id] = cp
	}
	return out
}

func (s *Store) copyChannelsLocked() map[int64]int64 {
	out := make(map[int64]int64, len(s.channels))
	for id, ch := range s.channels {
		out[id] = ch
	}
	return out
}

func (s *Store) persistKeywords(snapshot map[int64][]string) {
	if s.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.backend.SaveKeywords(ctx, snapshot); err != nil {
		s.log.Warn("keyword persist failed; memory state kept", logx.Err(err))
	}
}

func (s *Store) persistChannels(snapshot map[int64]int64) {
	if s.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.backend.SaveChannels(ctx, snapshot); err != nil {
		s.log.Warn("channel persist failed; memory state kept", logx.Err(err))
	}
}
