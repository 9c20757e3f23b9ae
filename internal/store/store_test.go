package store

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/footfall/mot"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "footfall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(zone string, objectID, position, crowd int, at time.Time) mot.CrossingEvent {
	return mot.CrossingEvent{
		ID:        uuid.New(),
		ObjectID:  objectID,
		Direction: mot.DirectionIn,
		Crowd:     crowd,
		Position:  position,
		EntryExit: position,
		Time:      at,
		Zone:      zone,
		Band:      "middle",
	}
}

func exit(zone string, objectID, position, crowd int, at time.Time, dwell time.Duration, matched bool) mot.CrossingEvent {
	frames := dwell.Seconds() * mot.DefaultFrameRateCorrection
	return mot.CrossingEvent{
		ID:        uuid.New(),
		ObjectID:  objectID,
		Direction: mot.DirectionOut,
		Crowd:     crowd,
		Position:  position,
		EntryExit: position,
		Dwell: &mot.Dwell{
			Duration:        dwell,
			Matched:         matched,
			FrameEquivalent: frames,
			Actual:          frames / mot.DefaultAssumedFrameRate,
		},
		Time: at,
		Zone: zone,
		Band: "middle",
	}
}

func TestNewStoreRunsMigrations(t *testing.T) {
	s := newTestStore(t)

	var name string
	err := s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		"crossing_events",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "crossing_events", name)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Reopening an up to date database is a no-op
	require.NoError(t, s.MigrateUp())
}

func TestMigrateDownAndUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footfall.db")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	assert.Equal(t, path, s.Path())

	require.NoError(t, s.MigrateDown())
	version, _, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	var count int
	require.NoError(t, s.DB().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='crossing_events'",
	).Scan(&count))
	assert.Equal(t, 0, count)

	require.NoError(t, s.MigrateUp())
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestEventRepositoryWriteAndList(t *testing.T) {
	s := newTestStore(t)
	repo := s.Events()
	ctx := context.Background()

	at := time.Date(2024, time.March, 15, 10, 15, 30, 0, time.UTC)
	in := entry("main_entrance", 4, 1, 1, at)
	out := exit("main_entrance", 9, 1, 0, at.Add(45*time.Second), 45*time.Second, true)
	other := entry("back_door", 2, 1, 1, at)

	for _, ev := range []mot.CrossingEvent{in, out, other} {
		require.NoError(t, repo.Write(ctx, ev))
	}

	events, err := repo.ListByZone(ctx, "main_entrance")
	require.NoError(t, err)

	dwellText := "45s"
	seconds := 45.0
	frames := 45.0 * mot.DefaultFrameRateCorrection
	actual := frames / mot.DefaultAssumedFrameRate
	matched := true
	expected := []Event{
		{
			UUID: in.ID, Date: "2024-03-15", Time: "10:15:30", ObjectID: 4, Direction: "In",
			Crowd: 1, Position: 1, EntryExit: 1, StoreArea: "main_entrance", Band: "middle", RecordedAt: at,
		},
		{
			UUID: out.ID, Date: "2024-03-15", Time: "10:16:15", ObjectID: 9, Direction: "Out",
			Crowd: 0, Position: 1, EntryExit: 1,
			DwellText: &dwellText, DwellSeconds: &seconds, FramesNum: &frames, ActualTime: &actual, DwellMatched: &matched,
			StoreArea: "main_entrance", Band: "middle", RecordedAt: at.Add(45 * time.Second),
		},
	}
	opts := []cmp.Option{
		cmpopts.IgnoreFields(Event{}, "ID"),
		cmpopts.EquateApprox(0, 1e-9),
		cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
	}
	if diff := cmp.Diff(expected, events, opts...); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.NotZero(t, events[0].ID)
	assert.Less(t, events[0].ID, events[1].ID)

	zones, err := repo.Zones(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"back_door", "main_entrance"}, zones)
}

func TestEventRepositoryDuplicateUUID(t *testing.T) {
	s := newTestStore(t)
	repo := s.Events()
	ev := entry("main_entrance", 1, 1, 1, time.Now())
	require.NoError(t, repo.Write(context.Background(), ev))
	assert.Error(t, repo.Write(context.Background(), ev))
}

func TestHourlySummary(t *testing.T) {
	s := newTestStore(t)
	repo := s.Events()
	ctx := context.Background()

	day := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	events := []mot.CrossingEvent{
		entry("main_entrance", 0, 1, 1, day.Add(9*time.Hour+5*time.Minute)),
		entry("main_entrance", 1, 2, 2, day.Add(9*time.Hour+20*time.Minute)),
		exit("main_entrance", 0, 1, 1, day.Add(9*time.Hour+50*time.Minute), 45*time.Minute, true),
		entry("main_entrance", 2, 3, 2, day.Add(11*time.Hour)),
		exit("main_entrance", 1, 2, 1, day.Add(11*time.Hour+30*time.Minute), 2*time.Hour, true),
		exit("main_entrance", 2, 3, 0, day.Add(11*time.Hour+40*time.Minute), 40*time.Minute, true),
		entry("back_door", 0, 1, 1, day.Add(9*time.Hour)),
	}
	for _, ev := range events {
		require.NoError(t, repo.Write(ctx, ev))
	}

	summary, err := repo.HourlySummary(ctx, "main_entrance")
	require.NoError(t, err)
	expected := []HourlyCount{
		{Zone: "main_entrance", Date: "2024-03-15", Hour: 9, In: 2, Out: 1, Crowd: 1},
		{Zone: "main_entrance", Date: "2024-03-15", Hour: 11, In: 1, Out: 2, Crowd: 0},
	}
	if diff := cmp.Diff(expected, summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	at := time.Date(2024, time.March, 15, 10, 15, 30, 0, time.UTC)

	sink, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), entry("main_entrance", 4, 1, 1, at)))
	require.NoError(t, sink.Close())

	// Reopen: header must not be repeated
	sink, err = NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), exit("main_entrance", 4, 1, 0, at.Add(20*time.Second), 20*time.Second, true)))
	require.NoError(t, sink.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	expected := [][]string{
		csvHeader,
		{"2024-03-15", "10:15:30", "4", "In", "1", "1", "1", "", "", "", "", "main_entrance"},
		{"2024-03-15", "10:15:50", "4", "Out", "0", "1", "1", "20s", "20.000", "27.000", "0.900", "main_entrance"},
	}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}
