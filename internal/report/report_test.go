package report

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/footfall/internal/store"
)

type fakeSource struct {
	summaries map[string][]store.HourlyCount
	err       error
}

func (f *fakeSource) Zones(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	zones := make([]string, 0, len(f.summaries))
	for zone := range f.summaries {
		zones = append(zones, zone)
	}
	return zones, nil
}

func (f *fakeSource) HourlySummary(_ context.Context, zone string) ([]store.HourlyCount, error) {
	return f.summaries[zone], nil
}

func TestRender(t *testing.T) {
	src := &fakeSource{summaries: map[string][]store.HourlyCount{
		"main_entrance": {
			{Zone: "main_entrance", Date: "2024-03-15", Hour: 9, In: 2, Out: 1, Crowd: 1},
			{Zone: "main_entrance", Date: "2024-03-15", Hour: 11, In: 1, Out: 2, Crowd: 0},
		},
		"empty": nil,
	}}

	var buf bytes.Buffer
	require.NoError(t, Render(context.Background(), src, &buf))
	html := buf.String()
	assert.Contains(t, html, "main_entrance: entries and exits")
	assert.Contains(t, html, "main_entrance: crowd")
	assert.Contains(t, html, "2024-03-15 09:00")
	assert.NotContains(t, html, "empty: crowd")
}

func TestRenderError(t *testing.T) {
	src := &fakeSource{err: errors.New("database is locked")}
	var buf bytes.Buffer
	err := Render(context.Background(), src, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestHourLabels(t *testing.T) {
	labels := hourLabels([]store.HourlyCount{{Date: "2024-03-15", Hour: 7}, {Date: "2024-03-16", Hour: 23}})
	assert.Equal(t, []string{"2024-03-15 07:00", "2024-03-16 23:00"}, labels)
}
