package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"arbsim/internal/config"
	"arbsim/internal/engine"
	"arbsim/internal/eventlog"
	"arbsim/internal/ledger"
	"arbsim/internal/model"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) LogTrade(ctx context.Context, trade model.Trade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

type fixedVenue struct {
	name  string
	price float64
}

func (f *fixedVenue) Name() string { return f.name }

func (f *fixedVenue) FetchPrice(_ context.Context) (float64, error) {
	return f.price, nil
}

// cancellingVenue stops the session from inside its Nth fetch, so the number
// of completed cycles is deterministic.
type cancellingVenue struct {
	name   string
	price  float64
	after  int
	calls  int
	cancel context.CancelFunc
}

func (c *cancellingVenue) Name() string { return c.name }

func (c *cancellingVenue) FetchPrice(_ context.Context) (float64, error) {
	c.calls++
	if c.calls == c.after {
		c.cancel()
	}
	return c.price, nil
}

// flakyVenue fails its first failures calls, then serves the price.
type flakyVenue struct {
	name     string
	price    float64
	failures int
	calls    int
}

func (f *flakyVenue) Name() string { return f.name }

func (f *flakyVenue) FetchPrice(_ context.Context) (float64, error) {
	f.calls++
	if f.calls <= f.failures {
		return 0, &feedDown{venue: f.name}
	}
	return f.price, nil
}

type feedDown struct{ venue string }

func (e *feedDown) Error() string { return e.venue + " feed down" }

func testConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Session: config.SessionConfig{
			Mode:            mode,
			StartingCapital: 1000.0,
			PollSeconds:     0.001,
			TradeUSD:        100.0,
			MinEdge:         0.003,
			BuyFeePct:       0.0015,
			SellFeePct:      0.0015,
		},
		Window: config.WindowConfig{Start: "09:00", End: "16:50", Timezone: "UTC"},
		Output: config.OutputConfig{
			LogFile: filepath.Join(dir, "trades.log"),
			CSVFile: filepath.Join(dir, "trades.csv"),
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventNames(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var rec struct {
			Event string `json:"event"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		names = append(names, rec.Event)
	}
	return names
}

func fixedClock(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, 5, 17, hour, 30, 0, 0, time.UTC)
	}
}

func TestSession_Run_SimModeTradesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t, config.ModeSim)
	clock := fixedClock(11)

	vA := &fixedVenue{name: "SIM_A", price: 1.30}
	vB := &cancellingVenue{name: "SIM_B", price: 1.306, after: 3, cancel: cancel}

	book := ledger.New([]string{"SIM_A", "SIM_B"}, cfg.Session.StartingCapital)
	eng := engine.New(discardLogger(), book, vA, vB, cfg.Session, clock)

	var logBuf, out bytes.Buffer
	events := eventlog.NewWriter(&logBuf)

	repo := new(MockRepository)
	repo.On("LogTrade", mock.Anything, mock.Anything).Return(nil)

	sess, err := New(discardLogger(), events, eng, book, cfg, repo, &out, clock)
	require.NoError(t, err)

	require.NoError(t, sess.Run(ctx))

	assert.Equal(t, StateEnded, sess.State())
	assert.Len(t, eng.Trades(), 3)
	repo.AssertNumberOfCalls(t, "LogTrade", 3)

	names := eventNames(t, &logBuf)
	require.NotEmpty(t, names)
	assert.Equal(t, "START", names[0])
	assert.Equal(t, "END", names[len(names)-1])
	assert.Contains(t, names, "TRADE")

	assert.Contains(t, out.String(), "SESSION SUMMARY")
	assert.Contains(t, out.String(), "END-OF-DAY TRADE REPORT")

	csvBytes, err := os.ReadFile(cfg.Output.CSVFile)
	require.NoError(t, err)
	lines := bytes.Count(bytes.TrimSpace(csvBytes), []byte("\n")) + 1
	assert.Equal(t, 4, lines) // header + three trades
}

func TestSession_Run_LiveModeOutsideWindowEndsImmediately(t *testing.T) {
	cfg := testConfig(t, config.ModeLive)
	clock := fixedClock(20) // well past the 16:50 close

	vA := &fixedVenue{name: "COINBASE", price: 1.0}
	vB := &fixedVenue{name: "BITSTAMP", price: 2.0}

	book := ledger.New([]string{"COINBASE", "BITSTAMP"}, cfg.Session.StartingCapital)
	eng := engine.New(discardLogger(), book, vA, vB, cfg.Session, clock)

	var logBuf, out bytes.Buffer
	sess, err := New(discardLogger(), eventlog.NewWriter(&logBuf), eng, book, cfg, nil, &out, clock)
	require.NoError(t, err)

	require.NoError(t, sess.Run(context.Background()))

	assert.Equal(t, StateEnded, sess.State())
	assert.Empty(t, eng.Trades())

	names := eventNames(t, &logBuf)
	assert.Equal(t, []string{"START", "END"}, names)

	assert.Contains(t, out.String(), "Outside trading window")
	assert.Contains(t, out.String(), "No trades executed today.")
	assert.Contains(t, out.String(), "Trades executed: 0")

	csvBytes, err := os.ReadFile(cfg.Output.CSVFile)
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(bytes.TrimSpace(csvBytes), []byte("\n"))+1)
}

func TestSession_Run_FeedFailureIsRecovered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t, config.ModeSim)
	clock := fixedClock(11)

	vA := &flakyVenue{name: "SIM_A", price: 1.30, failures: 1}
	vB := &cancellingVenue{name: "SIM_B", price: 1.306, after: 2, cancel: cancel}

	book := ledger.New([]string{"SIM_A", "SIM_B"}, cfg.Session.StartingCapital)
	eng := engine.New(discardLogger(), book, vA, vB, cfg.Session, clock)

	var logBuf, out bytes.Buffer
	sess, err := New(discardLogger(), eventlog.NewWriter(&logBuf), eng, book, cfg, nil, &out, clock)
	require.NoError(t, err)

	require.NoError(t, sess.Run(ctx))

	names := eventNames(t, &logBuf)
	assert.Contains(t, names, "PRICE_ERROR")
	assert.Contains(t, names, "TRADE")
	assert.Len(t, eng.Trades(), 1)
}

func TestSession_New_RejectsBadWindow(t *testing.T) {
	cfg := testConfig(t, config.ModeSim)
	cfg.Window.Start = "junk"

	_, err := New(discardLogger(), eventlog.NewWriter(&bytes.Buffer{}), nil, nil, cfg, nil, io.Discard, nil)
	assert.Error(t, err)

	cfg = testConfig(t, config.ModeSim)
	cfg.Window.Timezone = "Not/AZone"
	_, err = New(discardLogger(), eventlog.NewWriter(&bytes.Buffer{}), nil, nil, cfg, nil, io.Discard, nil)
	assert.Error(t, err)
}
