package subs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	logx "palwatch/pkg/logx"
)

// fakeBackend records saves and can be made to fail.
type fakeBackend struct {
	keywords map[int64][]string
	channels map[int64]int64
	saves    int
	fail     bool
}

func (f *fakeBackend) LoadKeywords(context.Context) (map[int64][]string, error) {
	return f.keywords, nil
}

func (f *fakeBackend) SaveKeywords(_ context.Context, m map[int64][]string) error {
	f.saves++
	if f.fail {
		return errors.New("disk on fire")
	}
	f.keywords = m
	return nil
}

func (f *fakeBackend) LoadChannels(context.Context) (map[int64]int64, error) {
	return f.channels, nil
}

func (f *fakeBackend) SaveChannels(_ context.Context, m map[int64]int64) error {
	f.saves++
	if f.fail {
		return errors.New("disk on fire")
	}
	f.channels = m
	return nil
}

func (f *fakeBackend) Close() error { return nil }

func TestAddRemoveKeyword(t *testing.T) {
	t.Parallel()
	be := &fakeBackend{}
	s, err := Load(context.Background(), be, logx.Nop())
	require.NoError(t, err)

	require.NoError(t, s.AddKeyword(42, "楓葉"))
	require.NoError(t, s.AddKeyword(42, "gloves"))
	require.Equal(t, []string{"楓葉", "gloves"}, s.Keywords(42))

	// Duplicates are rejected case-insensitively.
	require.ErrorIs(t, s.AddKeyword(42, "GLOVES"), ErrDuplicateKeyword)
	require.ErrorIs(t, s.AddKeyword(42, "  "), ErrEmptyKeyword)

	// Every successful mutation is written through.
	require.Equal(t, 2, be.saves)
	require.Equal(t, []string{"楓葉", "gloves"}, be.keywords[42])

	require.NoError(t, s.RemoveKeyword(42, "楓葉"))
	require.Equal(t, []string{"gloves"}, s.Keywords(42))
	require.ErrorIs(t, s.RemoveKeyword(42, "楓葉"), ErrKeywordNotFound)
	require.ErrorIs(t, s.RemoveKeyword(99, "anything"), ErrKeywordNotFound)
}

func TestRemoveLastKeywordKeepsRecord(t *testing.T) {
	t.Parallel()
	be := &fakeBackend{}
	s, err := Load(context.Background(), be, logx.Nop())
	require.NoError(t, err)

	require.NoError(t, s.AddKeyword(42, "楓葉"))
	require.NoError(t, s.RemoveKeyword(42, "楓葉"))

	// An emptied watch list does not erase the subscriber.
	users, total := s.Counts()
	require.Equal(t, 1, users)
	require.Equal(t, 0, total)
	require.Contains(t, s.Snapshot(), int64(42))
	require.Contains(t, be.keywords, int64(42))
}

func TestChannelPreference(t *testing.T) {
	t.Parallel()
	be := &fakeBackend{}
	s, err := Load(context.Background(), be, logx.Nop())
	require.NoError(t, err)

	_, ok := s.Channel(7)
	require.False(t, ok)

	s.SetChannel(7, -1001234)
	ch, ok := s.Channel(7)
	require.True(t, ok)
	require.EqualValues(t, -1001234, ch)
	require.EqualValues(t, -1001234, be.channels[7])
}

func TestPersistFailureKeepsMemory(t *testing.T) {
	t.Parallel()
	be := &fakeBackend{fail: true}
	s, err := Load(context.Background(), be, logx.Nop())
	require.NoError(t, err)

	// The mutation succeeds even though the backend fails.
	require.NoError(t, s.AddKeyword(1, "zakum"))
	require.Equal(t, []string{"zakum"}, s.Keywords(1))
	require.Empty(t, be.keywords)
}

func TestLoadExistingState(t *testing.T) {
	t.Parallel()
	be := &fakeBackend{
		keywords: map[int64][]string{5: {"a", "b"}},
		channels: map[int64]int64{5: -42},
	}
	s, err := Load(context.Background(), be, logx.Nop())
	require.NoError(t, err)

	require.Equal(t, []string{"a", "b"}, s.Keywords(5))
	ch, ok := s.Channel(5)
	require.True(t, ok)
	require.EqualValues(t, -42, ch)

	users, total := s.Counts()
	require.Equal(t, 1, users)
	require.Equal(t, 2, total)
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()
	s, err := Load(context.Background(), nil, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, s.AddKeyword(1, "x"))

	snap := s.Snapshot()
	snap[1][0] = "mutated"
	require.Equal(t, []string{"x"}, s.Keywords(1))
}
