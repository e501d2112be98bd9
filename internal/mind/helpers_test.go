package mind

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/WickedDevTeam/discord-agent/internal/ai"
	"github.com/WickedDevTeam/discord-agent/internal/media"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stubRand returns a fixed float and lets tests pick IntN results.
type stubRand struct {
	float float64
	intN  func(n int) int
}

func (s stubRand) Float64() float64 { return s.float }

func (s stubRand) IntN(n int) int {
	if s.intN != nil {
		return s.intN(n)
	}
	return 0
}

// lowRand always draws the bottom of every range and passes every coin flip.
func lowRand() stubRand { return stubRand{} }

// highRand always draws the top of every range and fails every coin flip.
func highRand() stubRand {
	return stubRand{float: 0.999999, intN: func(n int) int { return n - 1 }}
}

type fakeTransport struct {
	mu         sync.Mutex
	sent       []Reply
	sendErrs   []error
	typing     int
	denied     bool
	history    []HistoryEntry
	historyErr error
}

func (f *fakeTransport) SendReply(ctx context.Context, channelID string, reply Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, reply)
	return nil
}

func (f *fakeTransport) ShowTyping(ctx context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeTransport) HasPermission(ctx context.Context, channelID, identityID string) bool {
	return !f.denied
}

func (f *fakeTransport) FetchHistory(ctx context.Context, channelID string, limit int) ([]HistoryEntry, error) {
	return f.history, f.historyErr
}

func (f *fakeTransport) Sent() []Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Reply(nil), f.sent...)
}

func (f *fakeTransport) Typing() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.typing
}

type fakeInference struct {
	mu      sync.Mutex
	result  ai.Result
	err     error
	calls   int
	persona string
	history []ai.Message
	filter  bool
}

func (f *fakeInference) Infer(ctx context.Context, persona string, history []ai.Message, filter bool) (ai.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.persona = persona
	f.history = history
	f.filter = filter
	return f.result, f.err
}

func (f *fakeInference) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeMedia serves ids from next; an empty id means "nothing".
type fakeMedia struct {
	mu    sync.Mutex
	next  func(call int) (string, error)
	calls int
}

func (f *fakeMedia) FetchRandomItem(ctx context.Context, topics []string, allowAdult bool) (*media.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	id, err := f.next(f.calls)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return &media.Item{ID: id, Title: id, Topic: topics[0], Payload: []byte(id)}, nil
}

func (f *fakeMedia) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sameID(id string) *fakeMedia {
	return &fakeMedia{next: func(int) (string, error) { return id, nil }}
}

func sequentialIDs() *fakeMedia {
	return &fakeMedia{next: func(call int) (string, error) { return fmt.Sprintf("img-%d", call), nil }}
}

func failingMedia() *fakeMedia {
	return &fakeMedia{next: func(int) (string, error) { return "", errors.New("source down") }}
}

// sleepRecorder replaces real waits in runner tests.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) All() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}
