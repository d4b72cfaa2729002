package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/update", "/update"},
		{"/update/ws", "/update/ws"},
		{"/greeting/label", "/{key}/label"},
		{"/some-long-derived-key/label", "/{key}/label"},
		{"/value_changed/name", "/value_changed/{key}"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRecordersAreNoopsBeforeInit(t *testing.T) {
	// Must not panic when Prometheus() has never run.
	RecordScriptRun(nil)
	RecordReconcile(true, 0)
	RecordReconcile(false, 3)
	RecordValueChange()

	// The engine-facing adapter goes through the same recorders.
	var rec Recorder
	rec.ScriptRun(errors.New("script failed"))
	rec.Reconcile(false, 2)
	rec.ValueChange()
}

func TestPrometheusMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	mw := Prometheus(WithRegistry(registry), WithNamespace("test"))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/update", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, middleware altered the response", w.Code)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("no metrics registered after a request")
	}
}

func TestStatusWriterDefaultsTo200(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	sw.Write([]byte("ok"))
	if sw.status != http.StatusOK {
		t.Errorf("status = %d, want 200", sw.status)
	}

	rec = httptest.NewRecorder()
	sw = &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	sw.WriteHeader(http.StatusNotFound)
	sw.WriteHeader(http.StatusOK)
	if sw.status != http.StatusNotFound {
		t.Errorf("status = %d, first WriteHeader wins", sw.status)
	}
}
