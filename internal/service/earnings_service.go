package service

import (
	"log"
	"time"

	"valetpartner/internal/apperr"
	"valetpartner/internal/entities"
	"valetpartner/internal/repository"
)

type EarningsService struct {
	earnings repository.EarningsRepository
	partners repository.PartnerRepository
	payouts  PayoutProvider
}

func NewEarningsService(earnings repository.EarningsRepository, partners repository.PartnerRepository, payouts PayoutProvider) *EarningsService {
	return &EarningsService{earnings: earnings, partners: partners, payouts: payouts}
}

func (s *EarningsService) Summary(partnerID int, period string) (*entities.EarningsSummary, error) {
	now := time.Now().UTC()
	var since time.Time
	switch period {
	case "", "today":
		period = "today"
		since = now.Truncate(24 * time.Hour)
	case "week":
		since = now.AddDate(0, 0, -7)
	case "month":
		since = now.AddDate(0, -1, 0)
	default:
		return nil, apperr.Validation("period must be today, week or month")
	}

	total, count, err := s.earnings.SummaryForPartner(partnerID, since)
	if err != nil {
		return nil, err
	}
	commission := total * commissionPercent / 100
	average := 0
	if count > 0 {
		average = total / count
	}
	return &entities.EarningsSummary{
		Period:       period,
		Total:        total,
		Commission:   commission,
		Net:          total - commission,
		SessionCount: count,
		Average:      average,
	}, nil
}

func (s *EarningsService) Transactions(partnerID, limit, offset int) ([]entities.TransactionResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txns, err := s.earnings.ListTransactions(partnerID, limit, offset)
	if err != nil {
		return nil, err
	}
	result := make([]entities.TransactionResponse, 0, len(txns))
	for _, t := range txns {
		result = append(result, entities.TransactionResponse{
			ID:         t.ID,
			SessionID:  t.SessionID,
			Amount:     t.Amount,
			Commission: t.Commission,
			Net:        t.Net,
			PaidOut:    t.PaidOut,
			CreatedAt:  t.CreatedAt,
		})
	}
	return result, nil
}

// Payout transfers the partner's unpaid net balance to their linked account.
func (s *EarningsService) Payout(partnerID int) (*entities.PayoutResponse, error) {
	partner, err := s.partners.GetByID(partnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, apperr.NotFound("partner %d not found", partnerID)
	}
	if partner.StripeAccountID == "" {
		return nil, apperr.Validation("link a payout account before requesting a payout")
	}

	net, err := s.earnings.UnpaidNet(partnerID)
	if err != nil {
		return nil, err
	}
	if net <= 0 {
		return nil, apperr.Validation("no payable balance")
	}

	payoutID, err := s.payouts.Payout(partner.StripeAccountID, net)
	if err != nil {
		return nil, err
	}
	if err := s.earnings.MarkPaidOut(partnerID, payoutID); err != nil {
		// The payout went out; surface the bookkeeping failure loudly.
		log.Printf("ALERT: payout %s sent but transactions for partner %d were not marked: %v", payoutID, partnerID, err)
		return nil, err
	}
	log.Printf("Payout %s of %d sent to partner %d", payoutID, net, partnerID)
	return &entities.PayoutResponse{PayoutID: payoutID, Amount: net}, nil
}

// LinkPayoutAccount stores the partner's connected Stripe account id.
func (s *EarningsService) LinkPayoutAccount(partnerID int, accountID string) error {
	if accountID == "" {
		return apperr.Validation("account id is required")
	}
	return s.partners.SetStripeAccount(partnerID, accountID)
}
