package refcode

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCounter struct {
	counts map[string]int
	err    error
	calls  []string
}

func (s *stubCounter) CountByReferencePrefix(_ context.Context, prefix string) (int, error) {
	s.calls = append(s.calls, prefix)
	if s.err != nil {
		return 0, s.err
	}
	return s.counts[prefix], nil
}

func TestCountSequencerNext(t *testing.T) {
	counter := &stubCounter{counts: map[string]int{"OS20240105": 12}}
	seq := NewCountSequencer(counter)

	next, err := seq.Next(context.Background(), "OS20240105")
	require.NoError(t, err)
	assert.Equal(t, 13, next)

	next, err = seq.Next(context.Background(), "OS20240106")
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	assert.Equal(t, []string{"OS20240105", "OS20240106"}, counter.calls)
}

func TestCountSequencerPropagatesErrors(t *testing.T) {
	seq := NewCountSequencer(&stubCounter{err: errors.New("db down")})
	_, err := seq.Next(context.Background(), "OS20240105")
	assert.ErrorContains(t, err, "db down")
}

func TestNewWithoutRedisCounts(t *testing.T) {
	seq := New(nil, &stubCounter{}, zap.NewNop())
	_, ok := seq.(*CountSequencer)
	assert.True(t, ok)
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSequencerNext(t *testing.T) {
	const prefix = "OS20250310"

	tests := []struct {
		name       string
		stored     string
		count      int
		want       []int
		wantCounts int
	}{
		{name: "seeds from existing rows", count: 3, want: []int{4, 5}, wantCounts: 1},
		{name: "first code of the day", count: 0, want: []int{1, 2, 3}, wantCounts: 1},
		{name: "key seeded by another instance", stored: "7", count: 2, want: []int{8, 9}, wantCounts: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, client := newMiniRedis(t)
			if tt.stored != "" {
				require.NoError(t, mr.Set(keyPrefix+prefix, tt.stored))
			}
			counter := &stubCounter{counts: map[string]int{prefix: tt.count}}
			seq := NewRedisSequencer(client, counter, zap.NewNop())

			var got []int
			for range tt.want {
				next, err := seq.Next(context.Background(), prefix)
				require.NoError(t, err)
				got = append(got, next)
			}
			assert.Equal(t, tt.want, got)
			assert.Len(t, counter.calls, tt.wantCounts)
		})
	}
}

func TestRedisSequencerSeedsWithExpiry(t *testing.T) {
	mr, client := newMiniRedis(t)
	seq := NewRedisSequencer(client, &stubCounter{counts: map[string]int{"OS20250310": 3}}, zap.NewNop())

	_, err := seq.Next(context.Background(), "OS20250310")
	require.NoError(t, err)

	stored, err := mr.Get(keyPrefix + "OS20250310")
	require.NoError(t, err)
	assert.Equal(t, "4", stored)
	assert.Equal(t, keyTTL, mr.TTL(keyPrefix+"OS20250310"))
}

func TestRedisSequencerSeedCountError(t *testing.T) {
	mr, client := newMiniRedis(t)
	seq := NewRedisSequencer(client, &stubCounter{err: errors.New("db down")}, zap.NewNop())

	_, err := seq.Next(context.Background(), "OS20250310")
	assert.ErrorContains(t, err, "db down")
	assert.False(t, mr.Exists(keyPrefix+"OS20250310"))
}

func TestRedisSequencerDegradesToCounting(t *testing.T) {
	_, client := newMiniRedis(t)
	require.NoError(t, client.Close())

	counter := &stubCounter{counts: map[string]int{"OS20250310": 3}}
	seq := NewRedisSequencer(client, counter, zap.NewNop())

	next, err := seq.Next(context.Background(), "OS20250310")
	require.NoError(t, err)
	assert.Equal(t, 4, next)
	assert.Equal(t, []string{"OS20250310"}, counter.calls)
}

func TestNewWithRedisUsesRedisSequencer(t *testing.T) {
	_, client := newMiniRedis(t)
	seq := New(client, &stubCounter{}, zap.NewNop())
	_, ok := seq.(*RedisSequencer)
	assert.True(t, ok)
}
