package utils

import (
	"errors"
	"testing"
)

func TestAppErrorFormatting(t *testing.T) {
	bare := NewAppError("engine.Generate", "anomaly window is invalid", nil)
	if bare.Error() != "engine.Generate: anomaly window is invalid" {
		t.Fatalf("unexpected message: %q", bare.Error())
	}

	cause := errors.New("connection refused")
	wrapped := NewAppError("repo.FetchLogs", "log source unreachable", cause)
	if wrapped.Error() != "repo.FetchLogs: log source unreachable: connection refused" {
		t.Fatalf("unexpected message: %q", wrapped.Error())
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("wrapped cause must be reachable via errors.Is")
	}
}

func TestAppErrorLogValue(t *testing.T) {
	err := &AppError{Op: "stats.Insights", Msg: "degraded", Err: errors.New("boom")}

	attrs := err.LogValue().Group()
	got := make(map[string]string, len(attrs))
	for _, a := range attrs {
		got[a.Key] = a.Value.String()
	}
	if got["op"] != "stats.Insights" || got["msg"] != "degraded" || got["cause"] != "boom" {
		t.Fatalf("log attributes incomplete: %v", got)
	}

	bare := &AppError{Op: "engine.Generate", Msg: "invalid"}
	if n := len(bare.LogValue().Group()); n != 2 {
		t.Fatalf("nil cause must be omitted from log attributes, got %d attrs", n)
	}
}
