package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/blocklist"
	"github.com/proofofcorn/farmer-fred/internal/utils"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// memKV is a minimal KVStore for tests; expiry follows the now func
type memKV struct {
	mu      sync.Mutex
	data    map[string]memEntry
	now     func() time.Time
	failPut bool
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]memEntry), now: time.Now}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok || (!e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errors.New("store unavailable")
	}
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k, e := range m.data {
		if strings.HasPrefix(k, prefix) && (e.expiresAt.IsZero() || m.now().Before(e.expiresAt)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memKV) has(key string) bool {
	_, err := m.Get(context.Background(), key)
	return err == nil
}

// recordingTransport captures outbound mail
type recordingTransport struct {
	mu   sync.Mutex
	sent []*OutboundMail
	err  error
}

func (r *recordingTransport) Send(_ context.Context, mail *OutboundMail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, mail)
	return nil
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// stubCompleter returns a canned reply and remembers what it was asked
type stubCompleter struct {
	reply   string
	err     error
	systems []string
	prompts []string
}

func (s *stubCompleter) Complete(_ context.Context, system string, messages []Message) (string, error) {
	s.systems = append(s.systems, system)
	for _, m := range messages {
		s.prompts = append(s.prompts, m.Content)
	}
	return s.reply, s.err
}

// stubWeather returns fixed readings per region, failing for regions listed in fail
type stubWeather struct {
	temps map[string]float64
	fail  map[string]bool
}

func (s *stubWeather) FetchRegion(_ context.Context, region Region) (*RegionWeather, error) {
	if s.fail[region.Name] {
		return nil, errors.New("weather api down")
	}
	return NewRegionWeather(region.Name, s.temps[region.Name], 50, "clear sky", time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)), nil
}

var testRegions = []Region{
	{Name: "Iowa", Lat: 41.878, Lon: -93.098, Status: "active", PlantingWindow: "April 15 - May 15"},
	{Name: "South Texas", Lat: 26.2, Lon: -98.2, Status: "evaluating", PlantingWindow: "February - March"},
}

// fixture wires every core service over one memKV with a controllable clock
type fixture struct {
	kv        *memKV
	clock     time.Time
	transport *recordingTransport
	completer *stubCompleter
	tasks     *TaskBoard
	inbox     *Inbox
	journal   *Journal
	limiter   *RateLimiter
	followUps *FollowUpScheduler
	alerts    *AlertDispatcher
	learnings *LearningStore
	feedback  *FeedbackStore
	triage    *TriageService
	farmer    *FarmerService
	replies   *ReplyService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		kv:        newMemKV(),
		clock:     time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC),
		transport: &recordingTransport{},
		completer: &stubCompleter{},
	}
	now := func() time.Time { return f.clock }
	f.kv.now = now

	checker, err := blocklist.NewChecker(blocklist.DefaultPatterns, []string{"fred@proofofcorn.com"}, logger)
	require.NoError(t, err)

	f.tasks = NewTaskBoard(f.kv, logger)
	f.tasks.now = now
	f.inbox = NewInbox(f.kv, logger)
	f.journal = NewJournal(f.kv, logger)
	f.journal.now = now
	f.limiter = NewRateLimiter(f.kv, logger)
	f.limiter.now = now
	f.followUps = NewFollowUpScheduler(f.kv, f.tasks, checker, logger)
	f.followUps.now = now
	f.alerts = NewAlertDispatcher(f.kv, f.transport, "Farmer Fred", "fred@proofofcorn.com", "operator@proofofcorn.com", 0, logger)
	f.alerts.now = now
	f.learnings = NewLearningStore(f.kv, f.journal, logger)
	f.learnings.now = now
	f.feedback = NewFeedbackStore(f.kv, f.journal, logger)
	f.feedback.now = now
	f.triage = NewTriageService(f.inbox, f.limiter, f.followUps, f.alerts, f.tasks, f.learnings, utils.NewTextProcessor(logger), logger, 0)
	f.triage.now = now

	constitution := NewConstitution("Farmer Fred", "1.0.0", testRegions)
	agent := NewAgent(f.completer, constitution, logger)
	weather := NewWeatherService(&stubWeather{temps: map[string]float64{"Iowa": 40, "South Texas": 75}}, testRegions, logger)
	f.farmer = NewFarmerService(agent, weather, f.inbox, f.tasks, f.journal, f.followUps, f.learnings, f.kv, logger)
	f.farmer.now = now
	f.replies = NewReplyService(agent, f.inbox, f.tasks, f.journal, f.followUps, f.transport, logger)

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}
