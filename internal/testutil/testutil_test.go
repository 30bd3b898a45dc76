package testutil

import (
	"math"
	"net/http"
	"path/filepath"
	"testing"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestAssertInDelta(t *testing.T) {
	t.Parallel()
	AssertInDelta(t, "close", 1.0000001, 1.0, 1e-6)
	AssertInDelta(t, "inf", math.Inf(1), math.Inf(1), 0)
}

func TestTempDBPath(t *testing.T) {
	t.Parallel()
	p := TempDBPath(t)
	if filepath.Base(p) != "riskplan.db" {
		t.Errorf("TempDBPath() = %q", p)
	}
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()
	req := NewTestRequest(http.MethodGet, "/runs")
	if req.Method != http.MethodGet || req.URL.Path != "/runs" {
		t.Errorf("request = %s %s", req.Method, req.URL.Path)
	}
	if rec := NewTestRecorder(); rec.Code != http.StatusOK {
		t.Errorf("recorder default code = %d", rec.Code)
	}
}
