package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/LdDl/footfall/mot"
)

var csvHeader = []string{
	"date", "time", "object_id", "direction", "crowd", "position", "entry_exit",
	"time_difference_str", "time_difference_sec", "frames_num", "actual_time", "store_area",
}

// CSVSink appends crossing events to a CSV file. The header is written once, when the file is empty.
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink opens (or creates) the CSV file for appending.
func NewCSVSink(path string) (*CSVSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat csv file: %w", err)
	}
	sink := &CSVSink{
		file:   file,
		writer: csv.NewWriter(file),
	}
	if info.Size() == 0 {
		if err := sink.writer.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write csv header: %w", err)
		}
		sink.writer.Flush()
		if err := sink.writer.Error(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	return sink, nil
}

// Write appends a single crossing event.
func (s *CSVSink) Write(_ context.Context, ev mot.CrossingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := []string{
		ev.Date(),
		ev.TimeOfDay(),
		strconv.Itoa(ev.ObjectID),
		ev.Direction.String(),
		strconv.Itoa(ev.Crowd),
		strconv.Itoa(ev.Position),
		strconv.Itoa(ev.EntryExit),
		"", "", "", "",
		ev.Zone,
	}
	if ev.Dwell != nil {
		record[7] = ev.Dwell.String()
		record[8] = strconv.FormatFloat(ev.Dwell.Seconds(), 'f', 3, 64)
		record[9] = strconv.FormatFloat(ev.Dwell.FrameEquivalent, 'f', 3, 64)
		record[10] = strconv.FormatFloat(ev.Dwell.Actual, 'f', 3, 64)
	}
	if err := s.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write csv record: %w", err)
	}
	s.writer.Flush()
	return s.writer.Error()
}

// Close flushes and closes the file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
