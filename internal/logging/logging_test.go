package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tellme/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Format: "json", Level: slog.LevelInfo, Output: &buf})

	logger.Debug("hidden")
	logger.Info("shown", "component", "test")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.Contains(t, entry, "timestamp")
	assert.NotContains(t, entry, "time")
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Format: "text", Level: slog.LevelDebug, Output: &buf})
	logger.Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

type fakeSlots struct{ slots []core.Slot }

func (f fakeSlots) ListSlots(ctx context.Context, providerID, serviceID core.ID, date string) []core.Slot {
	return f.slots
}

type fakeSubmitter struct {
	conf *core.Confirmation
	err  error
}

func (f fakeSubmitter) Submit(ctx context.Context, req core.BookingRequest) (*core.Confirmation, error) {
	return f.conf, f.err
}

type fakeToggler struct {
	saved bool
	err   error
}

func (f fakeToggler) Toggle(ctx context.Context, serviceID core.ID) (bool, error) {
	return f.saved, f.err
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return NewLogger(LoggerConfig{Format: "text", Level: slog.LevelDebug, Output: buf})
}

func TestSlotSourceLogger(t *testing.T) {
	var buf bytes.Buffer
	src := NewSlotSourceLogger(fakeSlots{slots: []core.Slot{{Label: "9:00 AM - 10:00 AM"}}}, testLogger(&buf))

	slots := src.ListSlots(context.Background(), "1", "2", "2025-03-10")
	assert.Len(t, slots, 1)
	assert.Contains(t, buf.String(), "ListSlots called")
	assert.Contains(t, buf.String(), "count=1")
	assert.Contains(t, buf.String(), "interface=SlotSource")
}

func TestSubmitterLogger(t *testing.T) {
	var buf bytes.Buffer
	ok := NewSubmitterLogger(fakeSubmitter{conf: &core.Confirmation{ID: "7", Status: "pending"}}, testLogger(&buf))

	conf, err := ok.Submit(context.Background(), core.BookingRequest{ServiceID: "2", Date: "2025-03-10"})
	require.NoError(t, err)
	assert.Equal(t, core.ID("7"), conf.ID)
	assert.Contains(t, buf.String(), "Submit completed")

	buf.Reset()
	boom := errors.New("boom")
	failing := NewSubmitterLogger(fakeSubmitter{err: boom}, testLogger(&buf))
	_, err = failing.Submit(context.Background(), core.BookingRequest{ServiceID: "2"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "Submit failed")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestTogglerLogger(t *testing.T) {
	var buf bytes.Buffer
	toggler := NewTogglerLogger(fakeToggler{saved: true}, testLogger(&buf))

	saved, err := toggler.Toggle(context.Background(), "4")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Contains(t, buf.String(), "saved=true")

	buf.Reset()
	failing := NewTogglerLogger(fakeToggler{err: core.ErrNotAuthenticated}, testLogger(&buf))
	_, err = failing.Toggle(context.Background(), "4")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.Contains(t, buf.String(), "Toggle failed")
}
