package dashboard

import (
	"encoding/csv"
	"io"
	"strconv"

	"churchconnect/internal/store"
)

const (
	PaymentsReportName  = "payments-report.csv"
	DonationsReportName = "donations-report.csv"
)

func formatCSVAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PaymentsCSV writes Event,Attendee,Amount,Status,Date rows.
func (s *Service) PaymentsCSV(w io.Writer) error {
	rows := [][]string{{"Event", "Attendee", "Amount", "Status", "Date"}}
	s.Store.View(func(d *store.Data) {
		for _, p := range d.Payments {
			rows = append(rows, []string{p.EventName, p.AttendeeName, formatCSVAmount(p.Amount), p.Status, p.Date})
		}
	})
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// DonationsCSV writes Donor,Campaign,Amount,Date rows. An empty campaign
// is reported as General.
func (s *Service) DonationsCSV(w io.Writer) error {
	rows := [][]string{{"Donor", "Campaign", "Amount", "Date"}}
	s.Store.View(func(d *store.Data) {
		for _, dn := range d.Donations {
			rows = append(rows, []string{dn.DonorName, campaignOr(dn.Campaign, "General"), formatCSVAmount(dn.Amount), dn.Date})
		}
	})
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
