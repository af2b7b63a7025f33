package service

import (
	"log"
	"time"

	"valetpartner/internal/apperr"
	"valetpartner/internal/db"
	"valetpartner/internal/entities"
	"valetpartner/internal/repository"
)

// PartnerService owns the availability state machine. The only edges partners
// drive directly are offline<->online; on_trip is entered by accepting an
// offer and left by finishing the session.
type PartnerService struct {
	partners repository.PartnerRepository
	sessions repository.SessionRepository
	offers   repository.OfferRepository
	earnings repository.EarningsRepository
	support  repository.SupportRepository
	locks    *PartnerLocks
}

func NewPartnerService(
	partners repository.PartnerRepository,
	sessions repository.SessionRepository,
	offers repository.OfferRepository,
	earnings repository.EarningsRepository,
	support repository.SupportRepository,
	locks *PartnerLocks,
) *PartnerService {
	return &PartnerService{
		partners: partners,
		sessions: sessions,
		offers:   offers,
		earnings: earnings,
		support:  support,
		locks:    locks,
	}
}

func (s *PartnerService) GetPartner(partnerID int) (*db.Partner, error) {
	partner, err := s.partners.GetByID(partnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, apperr.NotFound("partner %d not found", partnerID)
	}
	return partner, nil
}

// SetAvailability moves the partner to the requested state, enforcing the
// legal edges. Setting the current state again is a no-op.
func (s *PartnerService) SetAvailability(partnerID int, target string) (*db.Partner, error) {
	if target != db.AvailabilityOffline && target != db.AvailabilityOnline {
		if target == db.AvailabilityOnTrip {
			return nil, apperr.IllegalTransition("on_trip is entered by accepting an offer, not directly")
		}
		return nil, apperr.Validation("unknown availability '%s'", target)
	}

	unlock := s.locks.Lock(partnerID)
	defer unlock()

	partner, err := s.GetPartner(partnerID)
	if err != nil {
		return nil, err
	}
	if partner.Availability == target {
		return partner, nil
	}

	switch {
	case target == db.AvailabilityOnline && partner.Availability == db.AvailabilityOffline:
		if partner.KycStatus != db.KycApproved {
			return nil, apperr.IllegalTransition("kyc approval is required to go online")
		}
	case target == db.AvailabilityOnline && partner.Availability == db.AvailabilityOnTrip:
		return nil, apperr.IllegalTransition("on_trip ends when the active session is completed or canceled")
	case target == db.AvailabilityOffline && partner.Availability == db.AvailabilityOnTrip:
		return nil, apperr.IllegalTransition("complete or cancel the active session before going offline")
	}

	changed, err := s.partners.SetAvailabilityFrom(partnerID, partner.Availability, target)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperr.Conflict("availability of partner %d changed concurrently", partnerID)
	}
	log.Printf("Partner %d availability: %s -> %s", partnerID, partner.Availability, target)

	partner.Availability = target
	return partner, nil
}

// Dashboard assembles the home-screen numbers.
func (s *PartnerService) Dashboard(partnerID int) (*entities.DashboardResponse, error) {
	partner, err := s.GetPartner(partnerID)
	if err != nil {
		return nil, err
	}

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	earningsToday, _, err := s.earnings.SummaryForPartner(partnerID, midnight)
	if err != nil {
		return nil, err
	}
	activeSessions, err := s.sessions.CountActiveByPartner(partnerID)
	if err != nil {
		return nil, err
	}
	pendingOffers := 0
	offer, err := s.offers.OutstandingForPartner(partnerID)
	if err != nil {
		return nil, err
	}
	if offer != nil {
		pendingOffers = 1
	}
	openTickets, err := s.support.CountOpenByPartner(partnerID)
	if err != nil {
		return nil, err
	}

	return &entities.DashboardResponse{
		Availability:    partner.Availability,
		EarningsToday:   earningsToday,
		ActiveSessions:  activeSessions,
		PendingOffers:   pendingOffers,
		OpenTicketCount: openTickets,
	}, nil
}
