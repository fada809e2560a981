// Package http exposes the invoice service as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"fatture/internal/cache"
	applog "fatture/internal/log"
	"fatture/internal/middleware/ratelimit"
	"fatture/internal/middleware/security"
	"fatture/internal/middleware/trace"
	"fatture/internal/services"
)

type Server struct {
	http.Server
	invoices    *services.InvoiceService
	rateLimiter *ratelimit.Limiter

	// Rendered PDFs keyed by invoice number, invalidated on update/delete.
	pdfCache *cache.LRUCache[[]byte]
	cacheMgr *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Mutating methods are rate limited per client IP; reads are not.
func NewServer(addr string, invoices *services.InvoiceService) *Server {
	s := &Server{
		invoices:    invoices,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		pdfCache:    cache.NewLRUCache[[]byte](100, 5*time.Minute),
		cacheMgr:    cache.NewManager(),
	}
	s.cacheMgr.Register(s.pdfCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/invoices", s.handleListInvoices).Methods(http.MethodGet)
	api.HandleFunc("/invoices", s.handleCreateInvoice).Methods(http.MethodPost)
	api.HandleFunc("/invoices/categorize", s.handleCategorizeInvoices).Methods(http.MethodGet)
	api.HandleFunc("/invoices/reset", s.handleResetInvoiceNumber).Methods(http.MethodPost)
	api.HandleFunc("/invoices/{number:[0-9]+}", s.handleGetInvoice).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{number:[0-9]+}", s.handleUpdateInvoice).Methods(http.MethodPut)
	api.HandleFunc("/invoices/{number:[0-9]+}", s.handleDeleteInvoice).Methods(http.MethodDelete)
	api.HandleFunc("/invoices/{number:[0-9]+}/pdf", s.handleInvoicePDF).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	extractor := security.NewIPExtractor()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(extractor.ExtractClientIP)
	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)

	r.Use(applog.Middleware(logger))
	r.Use(tracer.Middleware)
	r.Use(headers.Middleware)
	r.Use(s.rateLimiter.Middleware(extractor.ExtractClientIP,
		http.MethodPost, http.MethodPut, http.MethodDelete))

	s.Server = http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		if s.cacheMgr != nil {
			s.cacheMgr.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
