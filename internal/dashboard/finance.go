package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	appLog "churchconnect/internal/log"
	"churchconnect/internal/mail"
	"churchconnect/internal/message"
	"churchconnect/internal/model"
	"churchconnect/internal/store"
)

// FinanceSummary is the payments overview.
type FinanceSummary struct {
	EventPayments float64 `json:"eventPayments"`
	Donations     float64 `json:"donations"`
	TotalRevenue  float64 `json:"totalRevenue"`
	ActiveDonors  int     `json:"activeDonors"`
}

// Totals sums every payment and donation regardless of status.
func (s *Service) Totals() FinanceSummary {
	var sum FinanceSummary
	s.Store.View(func(d *store.Data) {
		for _, p := range d.Payments {
			sum.EventPayments += p.Amount
		}
		donors := map[string]struct{}{}
		for _, dn := range d.Donations {
			sum.Donations += dn.Amount
			donors[dn.DonorName] = struct{}{}
		}
		sum.ActiveDonors = len(donors)
	})
	sum.TotalRevenue = sum.EventPayments + sum.Donations
	return sum
}

// DonorTotal is one row of the top-donors list.
type DonorTotal struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// TopDonors totals donations per donor name, largest first.
func (s *Service) TopDonors() []DonorTotal {
	totals := map[string]float64{}
	s.Store.View(func(d *store.Data) {
		for _, dn := range d.Donations {
			totals[dn.DonorName] += dn.Amount
		}
	})
	out := make([]DonorTotal, 0, len(totals))
	for name, total := range totals {
		out = append(out, DonorTotal{Name: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Activity is one entry of the combined payments/donations feed.
type Activity struct {
	ID          model.ID `json:"id"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	EventName   string   `json:"eventName,omitempty"`
	DonorName   string   `json:"donorName,omitempty"`
	Amount      float64  `json:"amount"`
	Status      string   `json:"status"`
	Date        string   `json:"date"`
}

// RecentActivity merges payments and donations, newest date first.
func (s *Service) RecentActivity() []Activity {
	var out []Activity
	s.Store.View(func(d *store.Data) {
		for _, p := range d.Payments {
			out = append(out, Activity{
				ID:          p.ID,
				Type:        "payment",
				Description: "Payment for " + p.EventName,
				EventName:   p.EventName,
				Amount:      p.Amount,
				Status:      p.Status,
				Date:        p.Date,
			})
		}
		for _, dn := range d.Donations {
			out = append(out, Activity{
				ID:          dn.ID,
				Type:        "donation",
				Description: "Donation to " + campaignOr(dn.Campaign, "General Fund"),
				DonorName:   dn.DonorName,
				Amount:      dn.Amount,
				Status:      model.PaymentCompleted,
				Date:        dn.Date,
			})
		}
	})
	// YYYY-MM-DD sorts lexically.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func campaignOr(c, def string) string {
	if strings.TrimSpace(c) == "" {
		return def
	}
	return c
}

// RefundPayment marks a payment refunded.
func (s *Service) RefundPayment(ctx context.Context, id model.ID) (model.Payment, error) {
	var out model.Payment
	err := s.commit(ctx, func(d *store.Data) error {
		for i := range d.Payments {
			if d.Payments[i].ID == id {
				d.Payments[i].Status = model.PaymentRefunded
				out = d.Payments[i]
				return nil
			}
		}
		return notFound("payment", id)
	})
	return out, err
}

// ListPayments returns payments matching f.
func (s *Service) ListPayments(f PaymentFilter) []model.Payment {
	var out []model.Payment
	s.Store.View(func(d *store.Data) {
		out = FilterPayments(d.Payments, f)
	})
	return out
}

// ListDonations returns donations matching f.
func (s *Service) ListDonations(f DonationFilter) []model.Donation {
	var out []model.Donation
	s.Store.View(func(d *store.Data) {
		out = FilterDonations(d.Donations, f)
	})
	return out
}

// DonationInput records a gift.
type DonationInput struct {
	DonorName     string  `json:"donorName"`
	Email         string  `json:"email"`
	Amount        float64 `json:"amount"`
	Campaign      string  `json:"campaign"`
	PaymentMethod string  `json:"paymentMethod"`
	Recurring     bool    `json:"recurring"`
	Anonymous     bool    `json:"anonymous"`
	Message       string  `json:"message"`
}

// RecordDonation stores a donation dated today and, when enabled, thanks
// the donor. A failed thank-you is logged only.
func (s *Service) RecordDonation(ctx context.Context, in DonationInput) (model.Donation, error) {
	f := fieldErrors{}
	if strings.TrimSpace(in.DonorName) == "" {
		f["donorName"] = "Name is required"
	}
	if in.Amount <= 0 {
		f["amount"] = "Amount must be greater than zero"
	}
	if in.Email != "" && !emailRE.MatchString(in.Email) {
		f["email"] = "Please enter a valid email address"
	}
	if err := f.err(); err != nil {
		return model.Donation{}, err
	}

	id := uuid.NewString()
	dn := model.Donation{
		ID:            model.ID(id),
		DonorName:     strings.TrimSpace(in.DonorName),
		Email:         strings.TrimSpace(in.Email),
		Amount:        in.Amount,
		Campaign:      in.Campaign,
		PaymentMethod: in.PaymentMethod,
		Recurring:     in.Recurring,
		Anonymous:     in.Anonymous,
		Message:       in.Message,
		Date:          s.today(),
		TransactionID: "don_" + strings.ReplaceAll(id, "-", "")[:12],
	}
	err := s.commit(ctx, func(d *store.Data) error {
		d.Donations = append(d.Donations, dn)
		return nil
	})
	if err != nil {
		return dn, err
	}

	if s.Notifications.DonationThankYou && dn.Email != "" {
		if _, err := s.sendThankYou(ctx, dn); err != nil {
			appLog.Error("donation thank-you failed", err, "donation", dn.ID)
		}
	}
	return dn, nil
}

// SendDonationThankYou mails the donation-thank-you template to the donor.
func (s *Service) SendDonationThankYou(ctx context.Context, donationID model.ID) (mail.Receipt, error) {
	var (
		dn    model.Donation
		found bool
	)
	s.Store.View(func(d *store.Data) {
		for _, x := range d.Donations {
			if x.ID == donationID {
				dn, found = x, true
				return
			}
		}
	})
	if !found {
		return mail.Receipt{}, notFound("donation", donationID)
	}
	return s.sendThankYou(ctx, dn)
}

func (s *Service) sendThankYou(ctx context.Context, dn model.Donation) (mail.Receipt, error) {
	to := dn.Email
	if to == "" {
		to = fallbackEmail(dn.DonorName)
	}
	tpl, _ := message.Lookup(message.DonationThankYou)
	subject, body := tpl.Render(message.Vars{
		message.KeyName:      dn.DonorName,
		message.KeyAmount:    message.FormatAmount(dn.Amount),
		message.KeyEventName: campaignOr(dn.Campaign, "General Fund"),
	})
	r, err := s.Mail.Send(ctx, mail.Message{To: to, From: s.From, Subject: subject, Body: body})
	if err != nil {
		return mail.Receipt{}, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	appLog.Info("donation thank-you sent", "donation", dn.ID)
	return r, nil
}
