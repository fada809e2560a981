package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fatture/internal/services"
	"fatture/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewInvoiceService(storage.NewMemoryRepository(), nil)
	s := NewServer(":0", svc)
	t.Cleanup(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		if s.cacheMgr != nil {
			s.cacheMgr.Stop()
		}
	})
	return s
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const createBody = `{
	"creation_date": "2024-03-15",
	"company_name": "Acme S.r.l.",
	"customers": [
		{"name": "Rossi", "items": [
			{"description": "Consulting", "quantity": 2, "unit_price": 50.00}
		]}
	]
}`

func TestCreateAndGetInvoice(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/invoices", createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created["invoice_number"] != 1001 {
		t.Fatalf("assigned number = %d, want 1001", created["invoice_number"])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/invoices/1001", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"total_amount":100.00`) {
		t.Fatalf("derived total missing from %s", body)
	}
	if !strings.Contains(body, `"company_name":"Acme S.r.l."`) {
		t.Fatalf("company missing from %s", body)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{not json`, http.StatusBadRequest},
		{"missing company", `{"creation_date":"2024-01-01","customers":[{"name":"X","items":[{"description":"i"}]}]}`, http.StatusBadRequest},
		{"bad date", `{"creation_date":"01/01/2024","company_name":"A","customers":[{"name":"X","items":[{"description":"i"}]}]}`, http.StatusBadRequest},
		{"no customers", `{"creation_date":"2024-01-01","company_name":"A","customers":[]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/invoices", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tc.want, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Fatalf("error body missing: %s", rec.Body.String())
			}
		})
	}
}

func TestCreateConflict(t *testing.T) {
	s := newTestServer(t)

	withNumber := strings.Replace(createBody, `"creation_date"`, `"invoice_number": 2000, "creation_date"`, 1)
	if rec := doJSON(t, s, http.MethodPost, "/api/invoices", withNumber); rec.Code != http.StatusCreated {
		t.Fatalf("first create = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodPost, "/api/invoices", withNumber); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create = %d, want 409", rec.Code)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestServer(t)

	if rec := doJSON(t, s, http.MethodPost, "/api/invoices", createBody); rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}

	updated := strings.Replace(createBody, "Acme S.r.l.", "Acme SpA", 1)
	rec := doJSON(t, s, http.MethodPut, "/api/invoices/1001", updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("update body: %s", rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPut, "/api/invoices/9999", updated)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("update missing = %d, want 404", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/invoices/1001", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/invoices/1001", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rec.Code)
	}
}

func TestListInvoices(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/invoices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list body = %s, want []", rec.Body.String())
	}

	doJSON(t, s, http.MethodPost, "/api/invoices", createBody)
	rec = doJSON(t, s, http.MethodGet, "/api/invoices", "")
	var list []json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("list length = %d, want 1", len(list))
	}
}

func TestCategorizeEndpoint(t *testing.T) {
	s := newTestServer(t)

	jan := strings.Replace(createBody, "2024-03-15", "2024-01-05", 1)
	doJSON(t, s, http.MethodPost, "/api/invoices", jan)
	doJSON(t, s, http.MethodPost, "/api/invoices", createBody)

	rec := doJSON(t, s, http.MethodGet, "/api/invoices/categorize?period=month", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("categorize = %d", rec.Code)
	}
	body := rec.Body.String()
	iMar, iJan := strings.Index(body, `"2024-03"`), strings.Index(body, `"2024-01"`)
	if iMar < 0 || iJan < 0 || iMar > iJan {
		t.Fatalf("month keys wrong or out of order: %s", body)
	}

	// Unknown period falls back to year.
	rec = doJSON(t, s, http.MethodGet, "/api/invoices/categorize?period=week", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"2024"`) {
		t.Fatalf("fallback categorize = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestInvoicePDFEndpoint(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/invoices", createBody)

	rec := doJSON(t, s, http.MethodGet, "/api/invoices/1001/pdf", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %s", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("body is not a PDF")
	}

	// Second fetch comes from the render cache and must be identical.
	again := doJSON(t, s, http.MethodGet, "/api/invoices/1001/pdf", "")
	if !bytes.Equal(rec.Body.Bytes(), again.Body.Bytes()) {
		t.Fatal("cached PDF differs from rendered one")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/invoices/9999/pdf", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing pdf = %d, want 404", rec.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/invoices/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["success"] != true {
		t.Fatalf("reset body: %v", body)
	}
	if body["lastInvoiceNumber"] != float64(1000) {
		t.Fatalf("empty store lastInvoiceNumber = %v, want 1000", body["lastInvoiceNumber"])
	}

	doJSON(t, s, http.MethodPost, "/api/invoices", createBody)
	rec = doJSON(t, s, http.MethodPost, "/api/invoices/reset", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["lastInvoiceNumber"] != float64(1001) {
		t.Fatalf("lastInvoiceNumber = %v, want 1001", body["lastInvoiceNumber"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Fatalf("health body: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"database":"connected"`) {
		t.Fatalf("health body: %s", rec.Body.String())
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}
}
