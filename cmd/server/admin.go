package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/prakamrit/storefront/internal/notify"
	"github.com/prakamrit/storefront/internal/orders"
	"github.com/prakamrit/storefront/internal/quotation"
)

const maxQuotationUpload = 10 << 20

// handleAdminOrders lists orders matching the free text "q" and, when
// given, the "status" filter.
func (s *server) handleAdminOrders(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	var status orders.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := orders.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = parsed
	}
	list, err := s.orders.List(r.Context(), query, status)
	if err != nil {
		s.internalError(w, r, "failed to load orders", err)
		return
	}
	counts, err := s.orders.CountByStatus(r.Context())
	if err != nil {
		s.internalError(w, r, "failed to count orders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":  query,
		"status": status,
		"orders": list,
		"counts": counts,
	})
}

func (s *server) handleAdminOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// handleAdminQuotationUpload records a quotation prepared outside the
// system. The file name comes from a multipart "file" part or a "fileName"
// form value.
func (s *server) handleAdminQuotationUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name, err := uploadedFileName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := s.orders.SendQuotation(r.Context(), id, name)
	if err != nil {
		s.writeOrderError(w, r, err)
		return
	}
	s.metrics.ObserveStatusChange(string(order.Status))
	s.logger.Info().Str("order_id", id).Str("file", name).Str("admin", adminFromContext(r.Context())).Msg("quotation uploaded")
	writeJSON(w, http.StatusOK, order)
}

func uploadedFileName(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxQuotationUpload); err != nil {
			return "", fmt.Errorf("invalid upload: %w", err)
		}
		if file, header, err := r.FormFile("file"); err == nil {
			file.Close()
			return filepath.Base(header.Filename), nil
		}
	} else if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("invalid form: %w", err)
	}

	name := strings.TrimSpace(r.FormValue("fileName"))
	if name == "" {
		return "", errors.New("a quotation file is required")
	}
	return filepath.Base(name), nil
}

// handleAdminApprove generates the proforma quotation, marks the order as
// sent and tells the customer on WhatsApp where to pay.
func (s *server) handleAdminApprove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current, err := s.orders.Get(r.Context(), id)
	if err != nil {
		s.writeOrderError(w, r, err)
		return
	}
	if !current.IsQuoteRequest() {
		writeError(w, http.StatusConflict, "only quote requests can be approved")
		return
	}
	// The document must render before the order is marked sent.
	if err := quotation.Build(current, s.engine.Catalog(), s.now()).WritePDF(io.Discard); err != nil {
		s.internalError(w, r, "failed to generate quotation", err)
		return
	}

	order, err := s.orders.SendQuotation(r.Context(), id, quotation.GeneratedFileName(id))
	if err != nil {
		s.writeOrderError(w, r, err)
		return
	}
	s.metrics.ObserveStatusChange(string(order.Status))
	s.logger.Info().Str("order_id", id).Str("admin", adminFromContext(r.Context())).Msg("quotation approved")

	s.sendNotifications(r.Context(), id, notify.QuoteReady(order, s.quoteLink(id)))
	writeJSON(w, http.StatusOK, order)
}

func (s *server) quoteLink(orderID string) string {
	return s.cfg.PublicBaseURL + "/quote/" + orderID
}

type completeRequest struct {
	PaymentID string `json:"paymentId" validate:"max=100"`
}

func (s *server) handleAdminComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if r.ContentLength > 0 && !s.decodeJSON(w, r, &req) {
		return
	}
	order, err := s.orders.Complete(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.PaymentID))
	if err != nil {
		s.writeOrderError(w, r, err)
		return
	}
	s.metrics.ObserveStatusChange(string(order.Status))
	s.logger.Info().Str("order_id", order.ID).Str("admin", adminFromContext(r.Context())).Msg("order completed")
	writeJSON(w, http.StatusOK, order)
}

func (s *server) handleAdminQuotationPDF(w http.ResponseWriter, r *http.Request) {
	s.serveQuotation(w, r, "application/pdf", quotation.DownloadName, quotation.Document.WritePDF)
}

func (s *server) handleAdminQuotationText(w http.ResponseWriter, r *http.Request) {
	textName := func(id string) string {
		return strings.TrimSuffix(quotation.DownloadName(id), ".pdf") + ".txt"
	}
	s.serveQuotation(w, r, "text/plain; charset=utf-8", textName, quotation.Document.WriteText)
}

func (s *server) serveQuotation(w http.ResponseWriter, r *http.Request, contentType string, name func(string) string, write func(quotation.Document, io.Writer) error) {
	order, err := s.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeOrderError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := write(quotation.Build(order, s.engine.Catalog(), s.now()), &buf); err != nil {
		s.internalError(w, r, "failed to render quotation", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name(order.ID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

