package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/footfall/mot"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "footfall.json", `{
  "log_level": "debug",
  "database_path": "events.db",
  "dwell": {"pairing": "track"},
  "zones": [
    {"label": "main_entrance", "source": "entrance.mp4"},
    {"label": "back_door", "source": "1", "mode": "dual", "band_half_width": 15, "matching": "hungarian", "kalman": 0.04}
  ]
}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "events.db", cfg.DatabasePath)
	// Omitted fields keep defaults
	assert.Equal(t, "footfall_report.html", cfg.ReportPath)
	assert.Equal(t, 0.6, cfg.Detector.ConfThreshold)
	assert.Equal(t, 0.4, cfg.Detector.NMSThreshold)
	assert.Equal(t, 416, cfg.Detector.InputWidth)
	assert.Equal(t, mot.DefaultFrameRateCorrection, cfg.Dwell.FrameRateCorrection)
	assert.Equal(t, mot.DefaultAssumedFrameRate, cfg.Dwell.AssumedFrameRate)

	pairing, err := cfg.Dwell.PairingPolicy()
	require.NoError(t, err)
	assert.Equal(t, mot.PairByTrack, pairing)

	require.Len(t, cfg.Zones, 2)

	entrance := &cfg.Zones[0]
	assert.False(t, entrance.IsDual())
	assert.Equal(t, 30, entrance.GetBandHalfWidth())
	assert.Equal(t, 40, entrance.GetMaxDisappeared())
	assert.Equal(t, 50.0, entrance.GetMaxDistance())
	assert.Empty(t, entrance.TrackerOptions())
	_, isDevice := entrance.Device()
	assert.False(t, isDevice)
	boundary := entrance.Boundary()
	assert.Equal(t, "main_entrance", boundary.Label)
	require.Len(t, boundary.Bands, 1)
	assert.Nil(t, boundary.EntryZone)

	backDoor := &cfg.Zones[1]
	assert.True(t, backDoor.IsDual())
	assert.Equal(t, 15, backDoor.GetBandHalfWidth())
	assert.Len(t, backDoor.TrackerOptions(), 2)
	device, isDevice := backDoor.Device()
	assert.True(t, isDevice)
	assert.Equal(t, 1, device)
	boundary = backDoor.Boundary()
	require.Len(t, boundary.Bands, 2)
	assert.NotNil(t, boundary.EntryZone)
	assert.Equal(t, 15, boundary.Bands[0].HalfWidth)

	assert.True(t, cfg.NeedsDetector())
}

func TestLoadErrors(t *testing.T) {
	t.Run("extension", func(t *testing.T) {
		_, err := Load(writeConfig(t, "footfall.yaml", `{}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".json extension")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
	})

	t.Run("too-large", func(t *testing.T) {
		_, err := Load(writeConfig(t, "big.json", strings.Repeat(" ", 1024*1024+1)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := Load(writeConfig(t, "broken.json", `{"zones": [`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Zones = []Zone{{Label: "main_entrance", Source: "entrance.mp4"}}
		return cfg
	}
	negative := -1
	zero := 0.0

	cases := []struct {
		name   string
		mutate func(cfg *Config)
		errMsg string
	}{
		{"no-zones", func(cfg *Config) { cfg.Zones = nil }, "at least one zone"},
		{"no-database", func(cfg *Config) { cfg.DatabasePath = "" }, "database_path"},
		{"confidence", func(cfg *Config) { cfg.Detector.ConfThreshold = 1.5 }, "conf_threshold"},
		{"pairing", func(cfg *Config) { cfg.Dwell.Pairing = "fifo" }, "dwell.pairing"},
		{"frame-rate", func(cfg *Config) { cfg.Dwell.AssumedFrameRate = 0 }, "assumed_frame_rate"},
		{"label", func(cfg *Config) { cfg.Zones[0].Label = "" }, "label"},
		{"source", func(cfg *Config) { cfg.Zones[0].Source = "" }, "source or replay_path"},
		{"mode", func(cfg *Config) { cfg.Zones[0].Mode = "triple" }, "mode"},
		{"matching", func(cfg *Config) { cfg.Zones[0].Matching = "iou" }, "matching"},
		{"half-width", func(cfg *Config) { cfg.Zones[0].BandHalfWidth = &negative }, "band_half_width"},
		{"max-distance", func(cfg *Config) { cfg.Zones[0].MaxDistance = &zero }, "max_distance"},
		{"duplicate", func(cfg *Config) { cfg.Zones = append(cfg.Zones, cfg.Zones[0]) }, "duplicate label"},
	}

	require.NoError(t, valid().Validate())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestNewSession(t *testing.T) {
	cfg := Default()
	zone := Zone{Label: "main_entrance", Source: "entrance.mp4"}
	session, err := cfg.NewSession(&zone, mot.SystemClock{})
	require.NoError(t, err)
	snapshot := session.Snapshot()
	assert.Equal(t, "main_entrance", snapshot.Boundary.Label)
	assert.Empty(t, snapshot.Tracks)
}

func TestNeedsDetector(t *testing.T) {
	cfg := Default()
	cfg.Zones = []Zone{{Label: "replayed", ReplayPath: "boxes.jsonl"}}
	assert.False(t, cfg.NeedsDetector())
}
