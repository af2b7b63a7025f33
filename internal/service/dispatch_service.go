package service

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"valetpartner/internal/apperr"
	"valetpartner/internal/db"
	"valetpartner/internal/repository"
)

// DefaultOfferWindow is how long a partner has to acknowledge an offer.
const DefaultOfferWindow = 45 * time.Second

// DispatchService offers pending parking requests to online partners within a
// bounded acceptance window. Each outstanding offer owns one cancellable
// timer; the database guard makes a late firing after accept/reject a no-op.
type DispatchService struct {
	requests  repository.RequestRepository
	offers    repository.OfferRepository
	partners  repository.PartnerRepository
	locations repository.LocationRepository
	notifier  Notifier
	locks     *PartnerLocks
	window    time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewDispatchService(
	requests repository.RequestRepository,
	offers repository.OfferRepository,
	partners repository.PartnerRepository,
	locations repository.LocationRepository,
	notifier Notifier,
	locks *PartnerLocks,
	window time.Duration,
) *DispatchService {
	if window <= 0 {
		window = DefaultOfferWindow
	}
	return &DispatchService{
		requests:  requests,
		offers:    offers,
		partners:  partners,
		locations: locations,
		notifier:  notifier,
		locks:     locks,
		window:    window,
		timers:    make(map[string]*time.Timer),
	}
}

// CreateRequest registers an incoming parking job.
func (s *DispatchService) CreateRequest(req *db.ParkingRequest) error {
	location, err := s.locations.GetByID(req.LocationID)
	if err != nil {
		return err
	}
	if location == nil {
		return apperr.NotFound("parking location %d not found", req.LocationID)
	}
	if !location.Active {
		return apperr.Validation("parking location %d is not active", req.LocationID)
	}
	if req.ReservedHours < location.MinHours {
		return apperr.Validation("reservation must be at least %d hour(s)", location.MinHours)
	}

	req.Code = fmt.Sprintf("R-%08X", time.Now().UnixNano()%0x100000000)
	req.Status = db.RequestOpen
	return s.requests.Create(req)
}

// Offer proposes an open request to an online partner and arms the expiry
// timer.
func (s *DispatchService) Offer(requestID, partnerID int) (*db.Offer, error) {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	partner, err := s.partners.GetByID(partnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, apperr.NotFound("partner %d not found", partnerID)
	}
	if partner.Availability != db.AvailabilityOnline {
		return nil, apperr.IllegalTransition("offers can only go to online partners")
	}

	request, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, apperr.NotFound("parking request %d not found", requestID)
	}
	if request.Status != db.RequestOpen {
		return nil, apperr.Conflict("parking request %d is %s", requestID, request.Status)
	}

	offer := &db.Offer{
		ID:        uuid.NewString(),
		RequestID: requestID,
		PartnerID: partnerID,
		Status:    db.OfferOffered,
		Deadline:  time.Now().UTC().Add(s.window),
	}
	if err := s.offers.Create(offer); err != nil {
		if errors.Is(err, repository.ErrOfferOutstanding) {
			return nil, apperr.Conflict("partner %d already has an outstanding offer", partnerID)
		}
		if errors.Is(err, repository.ErrOfferConsumed) {
			return nil, apperr.Conflict("parking request %d was offered concurrently", requestID)
		}
		return nil, err
	}

	s.armTimer(offer.ID)
	log.Printf("Offer %s: request %d -> partner %d, deadline %s", offer.ID, requestID, partnerID, offer.Deadline.Format(time.RFC3339))
	return offer, nil
}

// Accept converts the offer into a pickup_pending session and flips the
// partner to on_trip. Exactly one of two racing accepts wins.
func (s *DispatchService) Accept(offerID string, partnerID int) (*db.Session, error) {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	offer, err := s.offers.GetByID(offerID)
	if err != nil {
		return nil, err
	}
	if offer == nil || offer.PartnerID != partnerID {
		return nil, apperr.NotFound("offer %s not found", offerID)
	}

	request, err := s.requests.GetByID(offer.RequestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, apperr.NotFound("parking request %d not found", offer.RequestID)
	}
	location, err := s.locations.GetByID(request.LocationID)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, apperr.NotFound("parking location %d not found", request.LocationID)
	}

	sess := &db.Session{
		Code:          fmt.Sprintf("S-%08X", time.Now().UnixNano()%0x100000000),
		PartnerID:     partnerID,
		LocationID:    request.LocationID,
		RequestID:     request.ID,
		OwnerName:     request.OwnerName,
		OwnerPhone:    request.OwnerPhone,
		OwnerEmail:    request.OwnerEmail,
		VehiclePlate:  request.VehiclePlate,
		VehicleModel:  request.VehicleModel,
		Status:        db.SessionPickupPending,
		ReservedHours: request.ReservedHours,
		MinHours:      location.MinHours,
		BaseRate:      location.BaseRate,
		ExtensionRate: location.ExtensionRate,
	}

	if err := s.offers.Accept(offerID, time.Now().UTC(), sess); err != nil {
		switch {
		case errors.Is(err, repository.ErrOfferNotFound):
			return nil, apperr.NotFound("offer %s not found", offerID)
		case errors.Is(err, repository.ErrOfferExpired):
			s.disarmTimer(offerID)
			return nil, apperr.Conflict("offer %s expired before it was accepted", offerID)
		case errors.Is(err, repository.ErrOfferConsumed):
			return nil, apperr.Conflict("offer %s was already consumed", offerID)
		case errors.Is(err, repository.ErrPartnerNotOnline):
			return nil, apperr.Conflict("partner %d is no longer online", partnerID)
		case errors.Is(err, repository.ErrNoFreeSlots):
			return nil, apperr.Conflict("no free slots at location %d", request.LocationID)
		}
		return nil, err
	}

	s.disarmTimer(offerID)
	if s.notifier != nil {
		s.notifier.OfferAccepted(sess)
	}
	log.Printf("Offer %s accepted: session %s at slot %s", offerID, sess.Code, sess.SlotLabel)
	return sess, nil
}

// Reject declines the offer; the request returns to the open pool.
func (s *DispatchService) Reject(offerID string, partnerID int) error {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	offer, err := s.offers.GetByID(offerID)
	if err != nil {
		return err
	}
	if offer == nil || offer.PartnerID != partnerID {
		return apperr.NotFound("offer %s not found", offerID)
	}

	changed, err := s.offers.Release(offerID, db.OfferRejected)
	if err != nil {
		return err
	}
	s.disarmTimer(offerID)
	if !changed {
		return apperr.Conflict("offer %s was already consumed", offerID)
	}
	log.Printf("Offer %s rejected by partner %d", offerID, partnerID)
	return nil
}

// Outstanding returns the partner's current open offer, if any.
func (s *DispatchService) Outstanding(partnerID int) (*db.Offer, error) {
	return s.offers.OutstandingForPartner(partnerID)
}

// ExpireOverdue is the scheduled backstop for offers whose timers were lost
// to a restart.
func (s *DispatchService) ExpireOverdue() error {
	ids, err := s.offers.ExpireOverdue(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("offer expiry sweep failed: %w", err)
	}
	for _, id := range ids {
		s.disarmTimer(id)
		log.Printf("Offer %s expired by sweep", id)
	}
	return nil
}

func (s *DispatchService) armTimer(offerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[offerID] = time.AfterFunc(s.window, func() { s.expire(offerID) })
}

func (s *DispatchService) disarmTimer(offerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[offerID]; ok {
		t.Stop()
		delete(s.timers, offerID)
	}
}

// expire fires when the acceptance window elapses. The conditional update in
// Release makes it idempotent against an accept that landed first.
func (s *DispatchService) expire(offerID string) {
	s.mu.Lock()
	delete(s.timers, offerID)
	s.mu.Unlock()

	changed, err := s.offers.Release(offerID, db.OfferExpired)
	if err != nil {
		log.Printf("Error expiring offer %s: %v", offerID, err)
		return
	}
	if changed {
		log.Printf("Offer %s expired unacknowledged", offerID)
	}
}
