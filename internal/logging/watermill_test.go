// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// enableAllLevels lifts the process-wide zerolog level so per-logger levels
// decide what is written.
func enableAllLevels(t *testing.T) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}

func TestWatermillLogger_Levels(t *testing.T) {
	enableAllLevels(t)

	tests := []struct {
		name      string
		log       func(w watermill.LoggerAdapter)
		wantLevel string
	}{
		{
			name:      "error",
			log:       func(w watermill.LoggerAdapter) { w.Error("publish failed", errors.New("broker down"), nil) },
			wantLevel: `"level":"error"`,
		},
		{
			name:      "info is demoted to debug",
			log:       func(w watermill.LoggerAdapter) { w.Info("subscriber started", nil) },
			wantLevel: `"level":"debug"`,
		},
		{
			name:      "debug",
			log:       func(w watermill.LoggerAdapter) { w.Debug("sending message", nil) },
			wantLevel: `"level":"debug"`,
		},
		{
			name:      "trace",
			log:       func(w watermill.LoggerAdapter) { w.Trace("ack", nil) },
			wantLevel: `"level":"trace"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWatermillLogger(NewTestLogger(&buf).Level(zerolog.TraceLevel))
			tt.log(w)
			if !strings.Contains(buf.String(), tt.wantLevel) {
				t.Errorf("expected %s, got: %s", tt.wantLevel, buf.String())
			}
		})
	}
}

func TestWatermillLogger_ErrorIncludesErr(t *testing.T) {
	enableAllLevels(t)

	var buf bytes.Buffer
	w := NewWatermillLogger(NewTestLogger(&buf))
	w.Error("publish failed", errors.New("broker down"), watermill.LogFields{"topic": "plantingsites.site.edited"})

	out := buf.String()
	if !strings.Contains(out, `"error":"broker down"`) {
		t.Errorf("expected error field, got: %s", out)
	}
	if !strings.Contains(out, `"topic":"plantingsites.site.edited"`) {
		t.Errorf("expected topic field, got: %s", out)
	}
}

func TestWatermillLogger_With(t *testing.T) {
	enableAllLevels(t)

	var buf bytes.Buffer
	base := NewWatermillLogger(NewTestLogger(&buf).Level(zerolog.DebugLevel))
	child := base.With(watermill.LogFields{"pubsub": "gochannel"})
	child.Debug("closing", watermill.LogFields{"subscribers": 2})

	out := buf.String()
	if !strings.Contains(out, `"pubsub":"gochannel"`) {
		t.Errorf("expected inherited field, got: %s", out)
	}
	if !strings.Contains(out, `"subscribers":2`) {
		t.Errorf("expected call field, got: %s", out)
	}

	buf.Reset()
	base.Debug("plain", nil)
	if strings.Contains(buf.String(), "pubsub") {
		t.Errorf("expected parent logger unchanged, got: %s", buf.String())
	}
}
