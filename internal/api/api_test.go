package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jponter/proxyforge/internal/apperr"
	"github.com/jponter/proxyforge/internal/catalog"
	"github.com/jponter/proxyforge/internal/checksum"
	"github.com/jponter/proxyforge/internal/imaging"
	"github.com/jponter/proxyforge/internal/importer"
	"github.com/jponter/proxyforge/internal/resolver"
	"github.com/jponter/proxyforge/internal/testutil"
)

// testEnv sets up a temp catalog, stub-backed import service, and router.
// An empty authToken means disabled auth mode.
func testEnv(t *testing.T, stub *testutil.StubFetcher, authToken string) (*catalog.DB, http.Handler) {
	t.Helper()
	db := testutil.TestCatalog(t)
	svc := importer.NewService(resolver.New(stub), db, importer.Config{BleedDefault: true, MaxConcurrent: 2}, nil)
	router := NewRouter(RouterConfig{
		Service:     svc,
		Store:       db,
		Bitmaps:     imaging.NewBitmapCache(8),
		JPEGQuality: 85,
		AuthEnabled: authToken != "",
		AuthToken:   authToken,
	})
	return db, router
}

func do(t *testing.T, router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportOrder_CreatesAndLists(t *testing.T) {
	stub := &testutil.StubFetcher{Responses: map[string][]byte{
		"001": testutil.PNG(t, 1),
		"002": testutil.PNG(t, 2),
	}}
	_, router := testEnv(t, stub, "")

	w := do(t, router, http.MethodPost, "/orders", testutil.OrderXML("001", "002"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var imp ImportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &imp); err != nil {
		t.Fatal(err)
	}
	if imp.Resolved != 2 || imp.Failed != 0 {
		t.Errorf("import response = %+v", imp)
	}

	w = do(t, router, http.MethodGet, "/orders", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list OrderListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || len(list.Orders) != 1 {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodGet, fmt.Sprintf("/orders/%d", imp.OrderID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var detail OrderDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if len(detail.Cards) != 2 || detail.Cards[0].CardID != "001" || detail.Cards[1].CardID != "002" {
		t.Errorf("cards = %+v", detail.Cards)
	}
}

func TestImportOrder_MalformedXML(t *testing.T) {
	_, router := testEnv(t, &testutil.StubFetcher{}, "")
	w := do(t, router, http.MethodPost, "/orders", []byte("<order>no fronts</order>"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	_, router := testEnv(t, &testutil.StubFetcher{}, "")
	w := do(t, router, http.MethodGet, "/orders/999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodGet, "/orders/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-numeric id", w.Code)
	}
}

func TestCardStatus_ReportsFailure(t *testing.T) {
	stub := &testutil.StubFetcher{
		Errs: map[string]error{"001": &apperr.TransientFetchError{Cause: errors.New("down")}},
	}
	_, router := testEnv(t, stub, "")

	w := do(t, router, http.MethodPost, "/orders", testutil.OrderXML("001"))
	var imp ImportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &imp)

	w = do(t, router, http.MethodGet, fmt.Sprintf("/orders/%d/cards/001", imp.OrderID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var status CardStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.ImageDownloaded {
		t.Error("failed card must report ImageDownloaded=false")
	}
	if status.Card.Failure == "" {
		t.Error("failure reason missing from response")
	}
}

func TestReResolveCard_RecoversFailedCard(t *testing.T) {
	stub := &testutil.StubFetcher{
		Errs: map[string]error{"001": &apperr.TransientFetchError{Cause: errors.New("down")}},
	}
	_, router := testEnv(t, stub, "")

	w := do(t, router, http.MethodPost, "/orders", testutil.OrderXML("001"))
	var imp ImportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &imp)

	// Service recovers.
	stub.Errs = nil
	stub.Responses = map[string][]byte{"001": testutil.PNG(t, 5)}

	w = do(t, router, http.MethodPost, fmt.Sprintf("/orders/%d/cards/001/resolve", imp.OrderID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, fmt.Sprintf("/orders/%d/cards/001", imp.OrderID), nil)
	var status CardStatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &status)
	if !status.ImageDownloaded {
		t.Error("re-resolved card should report ImageDownloaded=true")
	}
}

func TestServeImage_AndThumbnail(t *testing.T) {
	img := testutil.PNG(t, 3)
	stub := &testutil.StubFetcher{Responses: map[string][]byte{"001": img}}
	_, router := testEnv(t, stub, "")

	do(t, router, http.MethodPost, "/orders", testutil.OrderXML("001"))

	fp := checksum.Fingerprint(img)
	w := do(t, router, http.MethodGet, "/images/"+fp, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("image status = %d", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), img) {
		t.Error("served bytes differ from fetched bytes")
	}

	w = do(t, router, http.MethodGet, "/images/"+fp+"/thumbnail?size=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("thumbnail status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("thumbnail content type = %q", ct)
	}
}

func TestServeImage_InvalidAndMissingFingerprint(t *testing.T) {
	_, router := testEnv(t, &testutil.StubFetcher{}, "")

	w := do(t, router, http.MethodGet, "/images/not-a-digest", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed fingerprint", w.Code)
	}

	missing := checksum.Fingerprint([]byte("nothing stored under this"))
	w = do(t, router, http.MethodGet, "/images/"+missing, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown fingerprint", w.Code)
	}
}

func TestAuth_TokenEnforced(t *testing.T) {
	_, router := testEnv(t, &testutil.StubFetcher{}, "secret")

	w := do(t, router, http.MethodGet, "/orders", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without token", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with token", rec.Code)
	}
}
