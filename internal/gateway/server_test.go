package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vigil-agent/vigil/internal/events"
	"github.com/vigil-agent/vigil/internal/mode"
)

func testManager(t *testing.T, allowManual bool) (*mode.Manager, *events.Bus) {
	t.Helper()

	bus := events.NewBus(16)
	t.Cleanup(bus.Close)

	sys := &mode.SystemConfig{
		DefaultMode: "default",
		Modes: map[string]*mode.Mode{
			"default": {Name: "default", DisplayName: "Default"},
			"focus":   {Name: "focus", DisplayName: "Focus", TimeoutSeconds: 300},
		},
		Rules: []mode.TransitionRule{
			{From: "default", To: "focus", Type: mode.TransitionInputTriggered, Keywords: []string{"focus"}, Priority: 1},
		},
		AllowManualSwitching: allowManual,
	}

	m, err := mode.NewManager(mode.ManagerConfig{System: sys, Bus: bus})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, bus
}

func testServer(t *testing.T, allowManual bool, reload ReloadFunc) *Server {
	t.Helper()
	m, bus := testManager(t, allowManual)
	return NewServer(bus, m, reload, "127.0.0.1", 0)
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t, true, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body: %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := testServer(t, true, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	var st statusJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.CurrentMode != "default" {
		t.Errorf("current_mode: got %q", st.CurrentMode)
	}
	if st.IsTransitioning {
		t.Error("expected not transitioning")
	}
}

func TestModesEndpoint(t *testing.T) {
	s := testServer(t, true, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/modes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var modes []mode.Mode
	if err := json.Unmarshal(rec.Body.Bytes(), &modes); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(modes) != 2 {
		t.Fatalf("modes: got %d, want 2", len(modes))
	}
	// Sorted by name
	if modes[0].Name != "default" || modes[1].Name != "focus" {
		t.Errorf("order: %s, %s", modes[0].Name, modes[1].Name)
	}
}

func TestRulesEndpoint(t *testing.T) {
	s := testServer(t, true, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rules", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var rules []mode.TransitionRule
	if err := json.Unmarshal(rec.Body.Bytes(), &rules); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("rules: got %d, want 1", len(rules))
	}
	if rules[0].To != "focus" {
		t.Errorf("rule target: got %q", rules[0].To)
	}
}

func TestSwitchEndpoint(t *testing.T) {
	s := testServer(t, true, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/switch", strings.NewReader(`{"mode":"focus"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	var result mode.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !result.Transitioned || result.To != "focus" {
		t.Errorf("result: %+v", result)
	}

	// Follow-up status read reflects the switch
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var st statusJSON
	json.Unmarshal(rec.Body.Bytes(), &st)
	if st.CurrentMode != "focus" {
		t.Errorf("current_mode after switch: got %q", st.CurrentMode)
	}
}

func TestSwitchErrorStatuses(t *testing.T) {
	tests := []struct {
		name        string
		allowManual bool
		body        string
		wantStatus  int
	}{
		{"unknown mode", true, `{"mode":"nope"}`, http.StatusBadRequest},
		{"empty mode", true, `{"mode":""}`, http.StatusBadRequest},
		{"manual disabled", false, `{"mode":"focus"}`, http.StatusForbidden},
		{"malformed body", true, `{not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(t, tt.allowManual, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/switch", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestReloadEndpoint(t *testing.T) {
	called := false
	s := testServer(t, true, func(ctx context.Context) error {
		called = true
		return nil
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reload", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !called {
		t.Error("reload func not invoked")
	}
}

func TestReloadConflict(t *testing.T) {
	s := testServer(t, true, func(ctx context.Context) error {
		return fmt.Errorf("apply config: %w", mode.ErrReloadConflict)
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reload", nil))

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}
}

func TestReloadNotConfigured(t *testing.T) {
	s := testServer(t, true, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reload", nil))

	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", rec.Code)
	}
}
