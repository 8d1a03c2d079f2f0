package normalizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadron-mkt/hadron/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	byTicker map[string]int64
	nextID   int64
	failLookupOnce bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{byTicker: make(map[string]int64)}
}

func (f *fakeStore) Lookup(ctx context.Context, source, ticker string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLookupOnce {
		f.failLookupOnce = false
		return 0, false, errors.New("transient")
	}
	id, ok := f.byTicker[source+"|"+ticker]
	return id, ok, nil
}

func (f *fakeStore) Insert(ctx context.Context, inst domain.Instrument) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := inst.PrimarySource + "|" + inst.Ticker
	if id, ok := f.byTicker[key]; ok {
		return id, false, nil
	}
	f.nextID++
	f.byTicker[key] = f.nextID
	return f.nextID, true, nil
}

func TestResolveAutoCreatesUnseenInstrument(t *testing.T) {
	store := newFakeStore()
	n := New(store, nil, 10, nil)

	id, err := n.resolve(context.Background(), "polygon", "AAPL", "equity")
	require.NoError(t, err)
	assert.Positive(t, id)

	again, err := n.resolve(context.Background(), "polygon", "AAPL", "equity")
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestResolveRetriesTransientLookupErrorOnce(t *testing.T) {
	store := newFakeStore()
	store.failLookupOnce = true
	store.byTicker["polygon|AAPL"] = 5
	n := New(store, nil, 10, nil)

	id, err := n.resolve(context.Background(), "polygon", "AAPL", "equity")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}

func TestRunPublishesTranslatedTicks(t *testing.T) {
	store := newFakeStore()
	n := New(store, nil, 10, nil)
	n.RegisterTranslator("polygon", PolygonTranslator{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	raw := make(chan domain.RawEvent, 1)
	sub := n.Broadcaster().Subscribe()
	defer sub.Close()

	go n.Run(ctx, raw)

	raw <- domain.RawEvent{
		Source:     "polygon",
		Venue:      "polygon_ws_realtime",
		ReceivedAt: time.Now(),
		Payload:    []byte(`{"ev":"T","sym":"AAPL","p":10,"s":1}`),
	}

	recvCtx, recvCancel := context.WithTimeout(context.Background(), time.Second)
	defer recvCancel()
	tick, err := sub.Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, domain.TickTrade, tick.TickType)
}

func TestHandleDropsEventsWithNoRegisteredTranslator(t *testing.T) {
	store := newFakeStore()
	n := New(store, nil, 10, nil)

	sub := n.Broadcaster().Subscribe()
	defer sub.Close()

	n.handle(context.Background(), domain.RawEvent{Source: "unknown"})

	recvCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := sub.Recv(recvCtx)
	assert.Error(t, err)
}
