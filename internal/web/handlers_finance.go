package web

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"churchconnect/internal/dashboard"
	"churchconnect/internal/model"
)

// GET /api/payments?search=&status=
func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.svc.ListPayments(dashboard.PaymentFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
	}))
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.RefundPayment(r.Context(), model.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /api/donations?search=&campaign=
func (s *Server) handleListDonations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.svc.ListDonations(dashboard.DonationFilter{
		Search:   q.Get("search"),
		Campaign: q.Get("campaign"),
	}))
}

func (s *Server) handleRecordDonation(w http.ResponseWriter, r *http.Request) {
	var in dashboard.DonationInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	dn, err := s.svc.RecordDonation(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dn)
}

func (s *Server) handleThankYou(w http.ResponseWriter, r *http.Request) {
	rc, err := s.svc.SendDonationThankYou(r.Context(), model.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

type financeResponse struct {
	Totals         dashboard.FinanceSummary `json:"totals"`
	TopDonors      []dashboard.DonorTotal   `json:"topDonors"`
	RecentActivity []dashboard.Activity     `json:"recentActivity"`
}

func (s *Server) handleFinanceSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, financeResponse{
		Totals:         s.svc.Totals(),
		TopDonors:      s.svc.TopDonors(),
		RecentActivity: s.svc.RecentActivity(),
	})
}

func (s *Server) handlePaymentsCSV(w http.ResponseWriter, _ *http.Request) {
	writeCSV(w, dashboard.PaymentsReportName, s.svc.PaymentsCSV)
}

func (s *Server) handleDonationsCSV(w http.ResponseWriter, _ *http.Request) {
	writeCSV(w, dashboard.DonationsReportName, s.svc.DonationsCSV)
}

// writeCSV buffers the report so a write error can still become a 500.
func writeCSV(w http.ResponseWriter, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
