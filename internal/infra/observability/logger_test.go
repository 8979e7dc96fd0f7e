package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerMiddlewareLevels(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		core, logs := observer.New(zapcore.DebugLevel)
		logger := zap.New(core)

		handler := ZapLoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		req := httptest.NewRequest(http.MethodGet, "/v1/bills/lookup", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		entries := logs.All()
		if len(entries) != 1 {
			t.Fatalf("status %d: %d log entries, want 1", tt.status, len(entries))
		}
		entry := entries[0]
		if entry.Level != tt.level {
			t.Errorf("status %d logged at %s, want %s", tt.status, entry.Level, tt.level)
		}
		fields := entry.ContextMap()
		if fields["status"] != int64(tt.status) {
			t.Errorf("status field = %v, want %d", fields["status"], tt.status)
		}
		if fields["path"] != "/v1/bills/lookup" {
			t.Errorf("path field = %v", fields["path"])
		}
	}
}
