package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LdDl/footfall/mot"
)

// Event is a crossing event as it is persisted.
// Dwell columns are nil for entries.
type Event struct {
	ID           int64
	UUID         uuid.UUID
	Date         string
	Time         string
	ObjectID     int
	Direction    string
	Crowd        int
	Position     int
	EntryExit    int
	DwellText    *string
	DwellSeconds *float64
	FramesNum    *float64
	ActualTime   *float64
	DwellMatched *bool
	StoreArea    string
	Band         string
	RecordedAt   time.Time
}

// NewEvent flattens crossing event into storage row
func NewEvent(ev mot.CrossingEvent) Event {
	row := Event{
		UUID:       ev.ID,
		Date:       ev.Date(),
		Time:       ev.TimeOfDay(),
		ObjectID:   ev.ObjectID,
		Direction:  ev.Direction.String(),
		Crowd:      ev.Crowd,
		Position:   ev.Position,
		EntryExit:  ev.EntryExit,
		StoreArea:  ev.Zone,
		Band:       ev.Band,
		RecordedAt: ev.Time,
	}
	if ev.Dwell != nil {
		text := ev.Dwell.String()
		seconds := ev.Dwell.Seconds()
		frames := ev.Dwell.FrameEquivalent
		actual := ev.Dwell.Actual
		matched := ev.Dwell.Matched
		row.DwellText = &text
		row.DwellSeconds = &seconds
		row.FramesNum = &frames
		row.ActualTime = &actual
		row.DwellMatched = &matched
	}
	return row
}

// EventRepository provides persistence of crossing events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Write persists a single crossing event.
func (r *EventRepository) Write(ctx context.Context, ev mot.CrossingEvent) error {
	row := NewEvent(ev)
	return r.Insert(ctx, &row)
}

// Close is a no-op: the connection belongs to the Store.
func (r *EventRepository) Close() error {
	return nil
}

// Insert inserts a row and fills its ID.
func (r *EventRepository) Insert(ctx context.Context, e *Event) error {
	var matched sql.NullInt64
	if e.DwellMatched != nil {
		matched.Valid = true
		if *e.DwellMatched {
			matched.Int64 = 1
		}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO crossing_events (event_uuid, date, time, object_id, direction, crowd, position, entry_exit,
			time_difference_str, time_difference_sec, frames_num, actual_time, dwell_matched, store_area, band, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UUID.String(), e.Date, e.Time, e.ObjectID, e.Direction, e.Crowd, e.Position, e.EntryExit,
		nullString(e.DwellText), nullFloat(e.DwellSeconds), nullFloat(e.FramesNum), nullFloat(e.ActualTime), matched,
		e.StoreArea, e.Band, e.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert crossing event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get crossing event id: %w", err)
	}
	e.ID = id
	return nil
}

// ListByZone returns events of the store area in insertion order.
func (r *EventRepository) ListByZone(ctx context.Context, zone string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_uuid, date, time, object_id, direction, crowd, position, entry_exit,
			time_difference_str, time_difference_sec, frames_num, actual_time, dwell_matched, store_area, band, recorded_at
		 FROM crossing_events WHERE store_area = ? ORDER BY id`,
		zone,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query crossing events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			eventUUID  string
			dwellText  sql.NullString
			seconds    sql.NullFloat64
			frames     sql.NullFloat64
			actual     sql.NullFloat64
			matched    sql.NullInt64
			recordedAt string
		)
		err := rows.Scan(&e.ID, &eventUUID, &e.Date, &e.Time, &e.ObjectID, &e.Direction, &e.Crowd, &e.Position, &e.EntryExit,
			&dwellText, &seconds, &frames, &actual, &matched, &e.StoreArea, &e.Band, &recordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crossing event: %w", err)
		}
		if e.UUID, err = uuid.Parse(eventUUID); err != nil {
			return nil, fmt.Errorf("crossing event %d: bad uuid: %w", e.ID, err)
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("crossing event %d: bad timestamp: %w", e.ID, err)
		}
		if dwellText.Valid {
			e.DwellText = &dwellText.String
		}
		if seconds.Valid {
			e.DwellSeconds = &seconds.Float64
		}
		if frames.Valid {
			e.FramesNum = &frames.Float64
		}
		if actual.Valid {
			e.ActualTime = &actual.Float64
		}
		if matched.Valid {
			m := matched.Int64 == 1
			e.DwellMatched = &m
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Zones returns distinct store areas with at least one event.
func (r *EventRepository) Zones(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT store_area FROM crossing_events ORDER BY store_area`)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	var zones []string
	for rows.Next() {
		var zone string
		if err := rows.Scan(&zone); err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		zones = append(zones, zone)
	}
	return zones, rows.Err()
}

// HourlyCount aggregates events of a single store area within one hour
type HourlyCount struct {
	Zone string
	Date string
	Hour int
	In   int
	Out  int
	// Crowd reported by the last event of the hour
	Crowd int
}

// HourlySummary returns per-hour entries, exits and closing crowd of the store area.
func (r *EventRepository) HourlySummary(ctx context.Context, zone string) ([]HourlyCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.store_area, e.date, CAST(substr(e.time, 1, 2) AS INTEGER) AS hour,
			SUM(CASE WHEN e.direction = 'In' THEN 1 ELSE 0 END),
			SUM(CASE WHEN e.direction = 'Out' THEN 1 ELSE 0 END),
			(SELECT last.crowd FROM crossing_events last
			  WHERE last.store_area = e.store_area AND last.date = e.date
			    AND substr(last.time, 1, 2) = substr(e.time, 1, 2)
			  ORDER BY last.id DESC LIMIT 1)
		 FROM crossing_events e
		 WHERE e.store_area = ?
		 GROUP BY e.store_area, e.date, hour
		 ORDER BY e.date, hour`,
		zone,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly summary: %w", err)
	}
	defer rows.Close()

	var summary []HourlyCount
	for rows.Next() {
		var h HourlyCount
		if err := rows.Scan(&h.Zone, &h.Date, &h.Hour, &h.In, &h.Out, &h.Crowd); err != nil {
			return nil, fmt.Errorf("failed to scan hourly summary: %w", err)
		}
		summary = append(summary, h)
	}
	return summary, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
