package service

import (
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/payout"

	"valetpartner/internal/apperr"
)

// PayoutProvider is the payment collaborator moving a partner's net earnings
// to their connected account.
type PayoutProvider interface {
	Payout(stripeAccountID string, amount int) (string, error)
}

type stripePayoutService struct {
	currency string
}

func NewStripePayoutService(currency string) PayoutProvider {
	if currency == "" {
		currency = string(stripe.CurrencyINR)
	}
	return &stripePayoutService{currency: currency}
}

func (s *stripePayoutService) Payout(stripeAccountID string, amount int) (string, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(int64(amount) * 100),
		Currency: stripe.String(s.currency),
	}
	params.SetStripeAccount(stripeAccountID)

	var payoutID string
	err := withRetry("stripe payout", func() error {
		p, err := payout.New(params)
		if err != nil {
			return err
		}
		payoutID = p.ID
		return nil
	})
	if err != nil {
		return "", apperr.External(err, "payout to account %s failed", stripeAccountID)
	}
	return payoutID, nil
}
