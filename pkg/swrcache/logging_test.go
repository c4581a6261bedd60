package swrcache

import "testing"

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevelNone, "NONE"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Fatalf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestDefaultLoggerWith(t *testing.T) {
	base := NewDefaultLogger(LogLevelDebug)
	derived := base.With(F("component", "store"))

	if derived == nil {
		t.Fatal("With returned nil")
	}
	// The original logger keeps its own field set.
	if len(base.fields) != 0 {
		t.Fatalf("base logger gained fields: %v", base.fields)
	}
}

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()
	logger.Debug("msg", F("k", "v"))
	logger.Info("msg")
	logger.Warn("msg")
	logger.Error("msg")

	if logger.With(F("k", "v")) != logger {
		t.Fatal("NoOpLogger.With should return itself")
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusIdle, "idle"},
		{StatusLoading, "loading"},
		{StatusSuccess, "success"},
		{StatusError, "error"},
		{StatusRefreshing, "refreshing"},
		{StatusMutating, "mutating"},
		{StatusMutateError, "mutate-error"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Fatalf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatusSettled(t *testing.T) {
	settled := []Status{StatusSuccess, StatusError, StatusMutateError}
	for _, s := range settled {
		if !s.Settled() {
			t.Fatalf("%v.Settled() = false, want true", s)
		}
	}

	unsettled := []Status{StatusIdle, StatusLoading, StatusRefreshing, StatusMutating}
	for _, s := range unsettled {
		if s.Settled() {
			t.Fatalf("%v.Settled() = true, want false", s)
		}
	}
}
