package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/vinylscout/vinylscout/internal/testutil"
	"github.com/vinylscout/vinylscout/pkg/record"
)

func newTestRouter(t *testing.T) (*mux.Router, *testutil.MockMarketplace) {
	t.Helper()

	svc, _, mock := newTestService(t)
	router := mux.NewRouter()
	NewHandler(svc).RegisterRoutes(router)
	return router, mock
}

func doRequest(router *mux.Router, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetRecords_MissingStyle(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, "/records")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error payload: %v", err)
	}
	if body["error"] == "" {
		t.Error("error payload must carry a message")
	}
}

func TestGetRecords_InvalidPhase(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, "/records?style=Techno&phase=partial")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetRecords_NotFound(t *testing.T) {
	router, mock := newTestRouter(t)
	mock.SetSearchResults(nil)

	w := doRequest(router, "/records?style=Nonexistent")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetRecords_UpstreamFailure(t *testing.T) {
	router, mock := newTestRouter(t)
	mock.SetResponse("/database/search", testutil.NewServerErrorResponse())

	w := doRequest(router, "/records?style=Techno")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestGetRecords_BareArrayResponse(t *testing.T) {
	router, mock := newTestRouter(t)
	seedHappyUpstream(mock)

	w := doRequest(router, "/records?style=Techno")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var records []record.Record
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("non-phased response must be a bare array: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestGetRecords_PhasedFlow(t *testing.T) {
	router, mock := newTestRouter(t)
	seedHappyUpstream(mock)

	w := doRequest(router, "/records?style=Techno&phase=basic")
	if w.Code != http.StatusOK {
		t.Fatalf("basic status = %d, want 200", w.Code)
	}

	var basic phasedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &basic); err != nil {
		t.Fatalf("invalid phased payload: %v", err)
	}
	if basic.IsComplete {
		t.Error("basic phase must report isComplete=false")
	}
	if basic.Sample == "" {
		t.Fatal("basic phase must include a sample handle")
	}

	w = doRequest(router, "/records?style=Techno&phase=complete&sample="+basic.Sample)
	if w.Code != http.StatusOK {
		t.Fatalf("complete status = %d, want 200", w.Code)
	}

	var complete phasedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &complete); err != nil {
		t.Fatalf("invalid phased payload: %v", err)
	}
	if !complete.IsComplete {
		t.Error("complete phase must report isComplete=true")
	}
	if len(complete.Records) != len(basic.Records) {
		t.Errorf("complete returned %d records, want %d", len(complete.Records), len(basic.Records))
	}
}

func TestGetRecords_StaleHeader(t *testing.T) {
	svc, store, mock := newTestService(t)
	router := mux.NewRouter()
	NewHandler(svc).RegisterRoutes(router)

	store.SetClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })
	store.Put(context.Background(), "Techno", []record.Record{{ID: 1, Artist: "X"}})
	store.SetClock(time.Now)
	mock.SetResponse("/database/search", testutil.NewServerErrorResponse())

	w := doRequest(router, "/records?style=Techno")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (degraded, not failed)", w.Code)
	}
	if w.Header().Get(StaleHeader) != "stale" {
		t.Errorf("%s = %q, want stale", StaleHeader, w.Header().Get(StaleHeader))
	}
}
