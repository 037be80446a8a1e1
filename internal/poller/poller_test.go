package poller

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripted struct {
	calls chan chan result[[]string]
}

func newScripted() *scripted {
	return &scripted{calls: make(chan chan result[[]string], 16)}
}

func (s *scripted) fetch(ctx context.Context) ([]string, error) {
	reply := make(chan result[[]string], 1)
	select {
	case s.calls <- reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *scripted) next(t *testing.T) chan result[[]string] {
	t.Helper()
	select {
	case reply := <-s.calls:
		return reply
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not called")
		return nil
	}
}

func recv(t *testing.T, ch <-chan Snapshot[[]string]) Snapshot[[]string] {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "snapshot channel closed")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
		return Snapshot[[]string]{}
	}
}

func TestFailedTickKeepsDataAndSuccessClearsError(t *testing.T) {
	src := newScripted()
	p, err := New(Config{Interval: time.Hour}, src.fetch)
	require.NoError(t, err)

	ch, err := p.Start(context.Background())
	require.NoError(t, err)
	defer p.Stop()

	src.next(t) <- result[[]string]{data: []string{"a", "b"}}
	s := recv(t, ch)
	assert.True(t, s.Loaded)
	assert.NoError(t, s.Err)
	assert.Equal(t, []string{"a", "b"}, s.Data)

	p.Refresh()
	src.next(t) <- result[[]string]{err: errors.New("backend down")}
	s = recv(t, ch)
	assert.Error(t, s.Err)
	assert.Equal(t, []string{"a", "b"}, s.Data)
	assert.True(t, s.Loaded)

	p.Refresh()
	src.next(t) <- result[[]string]{data: []string{"c"}}
	s = recv(t, ch)
	assert.NoError(t, s.Err)
	assert.Equal(t, []string{"c"}, s.Data)
	assert.Equal(t, uint64(3), s.Seq)
}

func TestFirstFailureIsNotLoaded(t *testing.T) {
	src := newScripted()
	p, err := New(Config{Interval: time.Hour}, src.fetch)
	require.NoError(t, err)

	ch, err := p.Start(context.Background())
	require.NoError(t, err)
	defer p.Stop()

	src.next(t) <- result[[]string]{err: errors.New("refused")}
	s := recv(t, ch)
	assert.False(t, s.Loaded)
	assert.Error(t, s.Err)
	assert.Nil(t, s.Data)
}

func TestCompletionOrderWins(t *testing.T) {
	src := newScripted()
	p, err := New(Config{Interval: time.Hour}, src.fetch)
	require.NoError(t, err)

	ch, err := p.Start(context.Background())
	require.NoError(t, err)
	defer p.Stop()

	first := src.next(t)
	p.Refresh()
	second := src.next(t)

	second <- result[[]string]{data: []string{"second"}}
	assert.Equal(t, []string{"second"}, recv(t, ch).Data)

	first <- result[[]string]{data: []string{"first"}}
	assert.Equal(t, []string{"first"}, recv(t, ch).Data)
}

func TestNoSnapshotAfterStop(t *testing.T) {
	src := newScripted()
	p, err := New(Config{Interval: time.Hour}, src.fetch)
	require.NoError(t, err)

	ch, err := p.Start(context.Background())
	require.NoError(t, err)

	pending := src.next(t)
	p.Stop()
	pending <- result[[]string]{data: []string{"late"}}

	select {
	case s, ok := <-ch:
		assert.False(t, ok, "unexpected snapshot %+v", s)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after stop")
	}
}

func TestTickerFetchesAgain(t *testing.T) {
	src := newScripted()
	p, err := New(Config{Interval: 10 * time.Millisecond}, src.fetch)
	require.NoError(t, err)

	ch, err := p.Start(context.Background())
	require.NoError(t, err)
	defer p.Stop()

	src.next(t) <- result[[]string]{data: []string{"1"}}
	recv(t, ch)
	src.next(t) <- result[[]string]{data: []string{"2"}}
	assert.Equal(t, []string{"2"}, recv(t, ch).Data)
}

func TestStartTwice(t *testing.T) {
	p, err := New(Config{Interval: time.Hour}, func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	_, err = p.Start(context.Background())
	require.NoError(t, err)
	defer p.Stop()
	_, err = p.Start(context.Background())
	assert.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	_, err := New[int](Config{Interval: time.Second}, nil)
	assert.Error(t, err)
	_, err = New(Config{}, func(ctx context.Context) (int, error) { return 0, nil })
	assert.Error(t, err)
}
