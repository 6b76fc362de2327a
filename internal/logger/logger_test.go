package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestVerboseLogger_Info(t *testing.T) {
	tests := []struct {
		name      string
		verbosity Verbosity
		wantLog   bool
	}{
		{
			name:      "Basic level does not log Info messages",
			verbosity: LevelBasic,
			wantLog:   false,
		},
		{
			name:      "Normal level logs Info messages",
			verbosity: LevelNormal,
			wantLog:   true,
		},
		{
			name:      "Detailed level logs Info messages",
			verbosity: LevelDetailed,
			wantLog:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			zapLogger := zap.New(core)

			vlogger := New(zapLogger, tt.verbosity)
			vlogger.Info("test message")

			if tt.wantLog && logs.Len() == 0 {
				t.Errorf("expected log output but got none")
			}
			if !tt.wantLog && logs.Len() > 0 {
				t.Errorf("expected no log output but got %d logs", logs.Len())
			}
		})
	}
}

func TestVerboseLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		verbosity Verbosity
		wantLog   bool
	}{
		{
			name:      "Basic level does not log Debug messages",
			verbosity: LevelBasic,
			wantLog:   false,
		},
		{
			name:      "Normal level does not log Debug messages",
			verbosity: LevelNormal,
			wantLog:   false,
		},
		{
			name:      "Detailed level logs Debug messages",
			verbosity: LevelDetailed,
			wantLog:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Use DebugLevel to capture Debug logs
			core, logs := observer.New(zap.DebugLevel)
			zapLogger := zap.New(core)

			vlogger := New(zapLogger, tt.verbosity)
			vlogger.Debug("test message")

			if tt.wantLog && logs.Len() == 0 {
				t.Errorf("expected log output but got none")
			}
			if !tt.wantLog && logs.Len() > 0 {
				t.Errorf("expected no log output but got %d logs", logs.Len())
			}
		})
	}
}

func TestVerboseLogger_Error(t *testing.T) {
	// Error should always be logged regardless of verbosity
	levels := []Verbosity{LevelBasic, LevelNormal, LevelDetailed}

	for _, level := range levels {
		t.Run(level.String(), func(t *testing.T) {
			core, logs := observer.New(zap.ErrorLevel)
			zapLogger := zap.New(core)

			vlogger := New(zapLogger, level)
			vlogger.Error("error message")

			if logs.Len() == 0 {
				t.Errorf("expected Error to always be logged at %s level", level)
			}
		})
	}
}

func TestVerboseLogger_Warn(t *testing.T) {
	// Warn should always be logged regardless of verbosity
	levels := []Verbosity{LevelBasic, LevelNormal, LevelDetailed}

	for _, level := range levels {
		t.Run(level.String(), func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			zapLogger := zap.New(core)

			vlogger := New(zapLogger, level)
			vlogger.Warn("warn message")

			if logs.Len() == 0 {
				t.Errorf("expected Warn to always be logged at %s level", level)
			}
		})
	}
}

func TestVerboseLogger_IsNormal(t *testing.T) {
	tests := []struct {
		verbosity Verbosity
		want      bool
	}{
		{LevelBasic, false},
		{LevelNormal, true},
		{LevelDetailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.verbosity.String(), func(t *testing.T) {
			vlogger := New(zap.NewNop(), tt.verbosity)
			if got := vlogger.IsNormal(); got != tt.want {
				t.Errorf("IsNormal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerboseLogger_IsDetailed(t *testing.T) {
	tests := []struct {
		verbosity Verbosity
		want      bool
	}{
		{LevelBasic, false},
		{LevelNormal, false},
		{LevelDetailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.verbosity.String(), func(t *testing.T) {
			vlogger := New(zap.NewNop(), tt.verbosity)
			if got := vlogger.IsDetailed(); got != tt.want {
				t.Errorf("IsDetailed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		input string
		want  Verbosity
	}{
		{"basic", LevelBasic},
		{"normal", LevelNormal},
		{"detailed", LevelDetailed},
		{"", LevelNormal},
		{"bogus", LevelNormal},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseVerbosity(tt.input); got != tt.want {
				t.Errorf("ParseVerbosity(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestVerboseLogger_Underlying(t *testing.T) {
	zapLogger := zap.NewNop()
	vlogger := New(zapLogger, LevelNormal)

	if got := vlogger.Underlying(); got != zapLogger {
		t.Error("Underlying() should return the wrapped zap.Logger")
	}
}
