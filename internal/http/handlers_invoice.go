package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fatture/internal/core"
	applog "fatture/internal/log"
	"fatture/internal/pdf"
)

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.invoices.List(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "List invoices failed",
			applog.NewFields().WithOperation(applog.OpList).WithError(err).ToSlice()...)
		writeError(w, err)
		return
	}
	if invoices == nil {
		invoices = []core.Invoice{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var inv core.Invoice
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", core.ErrValidation))
		return
	}

	number, err := s.invoices.Create(r.Context(), inv)
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Create invoice failed",
				applog.NewFields().WithOperation(applog.OpCreate).WithError(err).ToSlice()...)
		}
		writeError(w, err)
		return
	}

	norm := inv.Normalize()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Invoice created",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithInvoice(number, norm.CompanyName, len(norm.Customers), norm.ComputeTotal().Cents).
			ToSlice()...)

	writeJSON(w, http.StatusCreated, map[string]int64{"invoice_number": number})
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	number := pathNumber(r)

	inv, err := s.invoices.Get(r.Context(), number)
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			applog.FromContext(r.Context()).ErrorCtx(r.Context(), "Get invoice failed", err, applog.FieldInvoiceNumber, number)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	number := pathNumber(r)

	var inv core.Invoice
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", core.ErrValidation))
		return
	}

	if err := s.invoices.Update(r.Context(), number, inv); err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			applog.FromContext(r.Context()).ErrorCtx(r.Context(), "Update invoice failed", err, applog.FieldInvoiceNumber, number)
		}
		writeError(w, err)
		return
	}

	s.pdfCache.Delete(pdfCacheKey(number))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	number := pathNumber(r)

	if err := s.invoices.Delete(r.Context(), number); err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			applog.FromContext(r.Context()).ErrorCtx(r.Context(), "Delete invoice failed", err, applog.FieldInvoiceNumber, number)
		}
		writeError(w, err)
		return
	}

	s.pdfCache.Delete(pdfCacheKey(number))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCategorizeInvoices(w http.ResponseWriter, r *http.Request) {
	period := core.ParsePeriod(r.URL.Query().Get("period"))

	grouped, err := s.invoices.Categorize(r.Context(), period)
	if err != nil {
		applog.FromContext(r.Context()).ErrorCtx(r.Context(), "Categorize invoices failed", err, applog.FieldPeriod, string(period))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

func (s *Server) handleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	number := pathNumber(r)

	doc, cached := s.pdfCache.Get(pdfCacheKey(number))
	if !cached {
		inv, err := s.invoices.Get(r.Context(), number)
		if err != nil {
			if errorStatus(err) == http.StatusInternalServerError {
				applog.FromContext(r.Context()).ErrorCtx(r.Context(), "Get invoice for PDF failed", err, applog.FieldInvoiceNumber, number)
			}
			writeError(w, err)
			return
		}

		doc, err = pdf.Render(inv)
		if err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Render invoice PDF failed",
				applog.NewFields().WithOperation(applog.OpRender).WithError(err).ToSlice()...)
			writeError(w, err)
			return
		}
		s.pdfCache.Set(pdfCacheKey(number), doc)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice_%d.pdf", number))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		applog.FromContext(r.Context()).ErrorCtx(r.Context(), "Failed to stream PDF", err, applog.FieldInvoiceNumber, number)
	}
}

func (s *Server) handleResetInvoiceNumber(w http.ResponseWriter, r *http.Request) {
	last, err := s.invoices.LastNumber(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorCtx(r.Context(), "Reset invoice number failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"lastInvoiceNumber": last,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.invoices.Ping(r.Context()); err != nil {
		applog.FromContext(r.Context()).ErrorCtx(r.Context(), "Health check failed", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "connected",
	})
}

// pathNumber reads the {number} path variable. The route pattern constrains
// it to digits, so parse errors cannot happen for routed requests.
func pathNumber(r *http.Request) int64 {
	n, _ := strconv.ParseInt(mux.Vars(r)["number"], 10, 64)
	return n
}

func pdfCacheKey(number int64) string {
	return strconv.FormatInt(number, 10)
}
