package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		level   zapcore.Level
		wantErr bool
	}{
		{"Defaults", Config{}, zapcore.InfoLevel, false},
		{"Debug console", Config{Level: "debug", Format: "console"}, zapcore.DebugLevel, false},
		{"Warn json", Config{Level: "warn", Format: "json"}, zapcore.WarnLevel, false},
		{"Bad level", Config{Level: "loud"}, 0, true},
		{"Bad format", Config{Format: "xml"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			if !logger.Core().Enabled(tt.level) {
				t.Errorf("level %v should be enabled", tt.level)
			}
			if tt.level > zapcore.DebugLevel && logger.Core().Enabled(tt.level-1) {
				t.Errorf("level %v should be disabled", tt.level-1)
			}
		})
	}
}
