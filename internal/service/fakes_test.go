package service

import (
	"fmt"
	"sync"
	"time"

	"valetpartner/internal/db"
	"valetpartner/internal/entities"
	"valetpartner/internal/repository"
)

// memStore backs the in-memory repositories used by the service tests. The
// wrappers mirror the conditional updates of the SQL implementations so the
// guard semantics under test are the real ones.
type memStore struct {
	mu        sync.Mutex
	partners  map[int]*db.Partner
	locations map[int]*db.ParkingLocation
	requests  map[int]*db.ParkingRequest
	offers    map[string]*db.Offer
	sessions  map[int]*db.Session
	txns      []db.Transaction
	documents map[string]db.KycDocument
	tickets   map[int]*db.SupportTicket
	nextID    int
}

func newMemStore() *memStore {
	return &memStore{
		partners:  make(map[int]*db.Partner),
		locations: make(map[int]*db.ParkingLocation),
		requests:  make(map[int]*db.ParkingRequest),
		offers:    make(map[string]*db.Offer),
		sessions:  make(map[int]*db.Session),
		documents: make(map[string]db.KycDocument),
		tickets:   make(map[int]*db.SupportTicket),
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *memStore) occupiedSlots(locationID int) int {
	count := 0
	for _, sess := range s.sessions {
		switch sess.Status {
		case db.SessionPickupPending, db.SessionActive, db.SessionReturnPending:
			if sess.LocationID == locationID {
				count++
			}
		}
	}
	return count
}

type memPartnerRepo struct{ s *memStore }

func (r *memPartnerRepo) Create(p *db.Partner) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.partners {
		if existing.Phone == p.Phone {
			return repository.ErrDuplicatePartner
		}
	}
	p.ID = r.s.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.s.partners[p.ID] = &cp
	return nil
}

func (r *memPartnerRepo) GetByID(id int) (*db.Partner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.partners[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPartnerRepo) GetByPhone(phone string) (*db.Partner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.partners {
		if p.Phone == phone {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memPartnerRepo) SetKycStatus(id int, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.partners[id]; ok {
		p.KycStatus = status
	}
	return nil
}

func (r *memPartnerRepo) SetKycStatusFrom(id int, from, to string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.partners[id]
	if !ok || p.KycStatus != from {
		return false, nil
	}
	p.KycStatus = to
	return true, nil
}

func (r *memPartnerRepo) SetAvailabilityFrom(id int, from, to string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.partners[id]
	if !ok || p.Availability != from {
		return false, nil
	}
	p.Availability = to
	return true, nil
}

func (r *memPartnerRepo) SetStripeAccount(id int, accountID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.partners[id]; ok {
		p.StripeAccountID = accountID
	}
	return nil
}

type memLocationRepo struct{ s *memStore }

func (r *memLocationRepo) Create(l *db.ParkingLocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.id()
	l.CreatedAt = time.Now()
	cp := *l
	r.s.locations[l.ID] = &cp
	return nil
}

func (r *memLocationRepo) Update(l *db.ParkingLocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *l
	r.s.locations[l.ID] = &cp
	return nil
}

func (r *memLocationRepo) GetByID(id int) (*db.ParkingLocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.locations[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *memLocationRepo) ListWithAvailability(partnerID int) ([]entities.LocationStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []entities.LocationStatus
	for _, l := range r.s.locations {
		if l.PartnerID != partnerID {
			continue
		}
		result = append(result, entities.LocationStatus{
			ID:             l.ID,
			Name:           l.Name,
			Address:        l.Address,
			TotalSlots:     l.TotalSlots,
			AvailableSlots: l.TotalSlots - r.s.occupiedSlots(l.ID),
			BaseRate:       l.BaseRate,
			MinHours:       l.MinHours,
			ExtensionRate:  l.ExtensionRate,
			Active:         l.Active,
		})
	}
	return result, nil
}

func (r *memLocationRepo) AvailableSlots(id int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.locations[id]
	if !ok {
		return 0, nil
	}
	return l.TotalSlots - r.s.occupiedSlots(id), nil
}

type memRequestRepo struct{ s *memStore }

func (r *memRequestRepo) Create(req *db.ParkingRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req.ID = r.s.id()
	req.CreatedAt = time.Now()
	cp := *req
	r.s.requests[req.ID] = &cp
	return nil
}

func (r *memRequestRepo) GetByID(id int) (*db.ParkingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *memRequestRepo) List(status string) ([]db.ParkingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []db.ParkingRequest
	for _, req := range r.s.requests {
		if req.Status == status {
			result = append(result, *req)
		}
	}
	return result, nil
}

type memOfferRepo struct{ s *memStore }

func (r *memOfferRepo) Create(o *db.Offer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.offers {
		if existing.PartnerID == o.PartnerID && existing.Status == db.OfferOffered {
			return repository.ErrOfferOutstanding
		}
	}
	req, ok := r.s.requests[o.RequestID]
	if !ok || req.Status != db.RequestOpen {
		return repository.ErrOfferConsumed
	}
	req.Status = db.RequestOffered
	o.CreatedAt = time.Now()
	cp := *o
	r.s.offers[o.ID] = &cp
	return nil
}

func (r *memOfferRepo) GetByID(id string) (*db.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *memOfferRepo) OutstandingForPartner(partnerID int) (*db.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.offers {
		if o.PartnerID == partnerID && o.Status == db.OfferOffered {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memOfferRepo) Accept(offerID string, now time.Time, sess *db.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[offerID]
	if !ok {
		return repository.ErrOfferNotFound
	}
	if o.Status != db.OfferOffered {
		return repository.ErrOfferConsumed
	}
	if now.After(o.Deadline) {
		o.Status = db.OfferExpired
		if req, ok := r.s.requests[o.RequestID]; ok {
			req.Status = db.RequestOpen
		}
		return repository.ErrOfferExpired
	}
	partner, ok := r.s.partners[o.PartnerID]
	if !ok || partner.Availability != db.AvailabilityOnline {
		return repository.ErrPartnerNotOnline
	}
	location, ok := r.s.locations[sess.LocationID]
	if !ok {
		return repository.ErrNoFreeSlots
	}
	occupied := r.s.occupiedSlots(sess.LocationID)
	if occupied >= location.TotalSlots {
		return repository.ErrNoFreeSlots
	}

	sess.SlotLabel = fmt.Sprintf("S-%02d", occupied+1)
	sess.ID = r.s.id()
	sess.CreatedAt = now
	cp := *sess
	r.s.sessions[sess.ID] = &cp

	o.Status = db.OfferAccepted
	partner.Availability = db.AvailabilityOnTrip
	if req, ok := r.s.requests[o.RequestID]; ok {
		req.Status = db.RequestAccepted
	}
	return nil
}

func (r *memOfferRepo) Release(offerID, toStatus string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[offerID]
	if !ok || o.Status != db.OfferOffered {
		return false, nil
	}
	o.Status = toStatus
	if req, ok := r.s.requests[o.RequestID]; ok {
		req.Status = db.RequestOpen
	}
	return true, nil
}

func (r *memOfferRepo) ExpireOverdue(now time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var expired []string
	for id, o := range r.s.offers {
		if o.Status == db.OfferOffered && o.Deadline.Before(now) {
			o.Status = db.OfferExpired
			if req, ok := r.s.requests[o.RequestID]; ok {
				req.Status = db.RequestOpen
			}
			expired = append(expired, id)
		}
	}
	return expired, nil
}

type memSessionRepo struct{ s *memStore }

func (r *memSessionRepo) GetByID(id int) (*db.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (r *memSessionRepo) ListByPartner(partnerID int) ([]db.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []db.Session
	for _, sess := range r.s.sessions {
		if sess.PartnerID == partnerID {
			result = append(result, *sess)
		}
	}
	return result, nil
}

func (r *memSessionRepo) CountActiveByPartner(partnerID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, sess := range r.s.sessions {
		if sess.PartnerID != partnerID {
			continue
		}
		switch sess.Status {
		case db.SessionPickupPending, db.SessionActive, db.SessionReturnPending:
			count++
		}
	}
	return count, nil
}

func (r *memSessionRepo) SetOtpChallenge(id int, challengeID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[id]; ok {
		sess.OtpChallengeID = challengeID
	}
	return nil
}

func (r *memSessionRepo) ConfirmPickup(sess *db.Session) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	target, ok := r.s.sessions[sess.ID]
	if !ok || target.Status != db.SessionPickupPending {
		return false, nil
	}
	target.Status = db.SessionActive
	target.StartTime = sess.StartTime
	target.ScheduledEnd = sess.ScheduledEnd
	target.PickupOdometer = sess.PickupOdometer
	target.PickupFuel = sess.PickupFuel
	target.PickupDamage = sess.PickupDamage
	target.OtpChallengeID = ""
	return true, nil
}

func (r *memSessionRepo) SetStatusFrom(id int, from, to string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok || sess.Status != from {
		return false, nil
	}
	sess.Status = to
	return true, nil
}

func (r *memSessionRepo) FinishReturn(sess *db.Session, txn *db.Transaction) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	target, ok := r.s.sessions[sess.ID]
	if !ok || target.Status != db.SessionReturnPending {
		return false, nil
	}
	target.Status = sess.Status
	target.ReturnedAt = sess.ReturnedAt
	target.ReturnOdometer = sess.ReturnOdometer
	target.ReturnFuel = sess.ReturnFuel
	target.ReturnDamage = sess.ReturnDamage
	target.Fare = sess.Fare
	target.OtpChallengeID = ""
	if partner, ok := r.s.partners[sess.PartnerID]; ok && partner.Availability == db.AvailabilityOnTrip {
		partner.Availability = db.AvailabilityOnline
	}
	if txn != nil {
		txn.ID = r.s.id()
		txn.CreatedAt = time.Now()
		r.s.txns = append(r.s.txns, *txn)
	}
	return true, nil
}

func (r *memSessionRepo) CancelPickup(sessionID, partnerID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok || sess.Status != db.SessionPickupPending {
		return false, nil
	}
	sess.Status = db.SessionCanceled
	if partner, ok := r.s.partners[partnerID]; ok && partner.Availability == db.AvailabilityOnTrip {
		partner.Availability = db.AvailabilityOnline
	}
	return true, nil
}

func (r *memSessionRepo) ActiveIDsPastScheduledEnd(now time.Time) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int
	for id, sess := range r.s.sessions {
		if sess.Status == db.SessionActive && sess.ScheduledEnd != nil && sess.ScheduledEnd.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memSessionRepo) MarkReturnPending(ids []int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if sess, ok := r.s.sessions[id]; ok && sess.Status == db.SessionActive {
			sess.Status = db.SessionReturnPending
		}
	}
	return nil
}

type memEarningsRepo struct{ s *memStore }

func (r *memEarningsRepo) SummaryForPartner(partnerID int, since time.Time) (total, count int, err error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.txns {
		if t.PartnerID == partnerID && !t.CreatedAt.Before(since) {
			total += t.Amount
			count++
		}
	}
	return total, count, nil
}

func (r *memEarningsRepo) ListTransactions(partnerID, limit, offset int) ([]db.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []db.Transaction
	for _, t := range r.s.txns {
		if t.PartnerID == partnerID {
			result = append(result, t)
		}
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memEarningsRepo) UnpaidNet(partnerID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	net := 0
	for _, t := range r.s.txns {
		if t.PartnerID == partnerID && !t.PaidOut {
			net += t.Net
		}
	}
	return net, nil
}

func (r *memEarningsRepo) MarkPaidOut(partnerID int, payoutID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.txns {
		if r.s.txns[i].PartnerID == partnerID && !r.s.txns[i].PaidOut {
			r.s.txns[i].PaidOut = true
			r.s.txns[i].PayoutID = payoutID
		}
	}
	return nil
}

type memSupportRepo struct{ s *memStore }

func (r *memSupportRepo) Create(t *db.SupportTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.s.tickets[t.ID] = &cp
	return nil
}

func (r *memSupportRepo) ListByPartner(partnerID int) ([]db.SupportTicket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []db.SupportTicket
	for _, t := range r.s.tickets {
		if t.PartnerID == partnerID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (r *memSupportRepo) CountOpenByPartner(partnerID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, t := range r.s.tickets {
		if t.PartnerID == partnerID && t.Status == "open" {
			count++
		}
	}
	return count, nil
}

func (r *memSupportRepo) Resolve(id int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok || t.Status != "open" {
		return false, nil
	}
	t.Status = "resolved"
	t.UpdatedAt = time.Now()
	return true, nil
}

type memDocumentStore struct{ s *memStore }

func (r *memDocumentStore) Store(partnerID int, kind string, content []byte) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := fmt.Sprintf("doc-%d-%s", partnerID, kind)
	r.s.documents[id] = db.KycDocument{ID: id, PartnerID: partnerID, Kind: kind, CreatedAt: time.Now()}
	return id, nil
}

func (r *memDocumentStore) Fetch(documentID string) (*db.KycDocument, []byte, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	doc, ok := r.s.documents[documentID]
	if !ok {
		return nil, nil, fmt.Errorf("document '%s' not found", documentID)
	}
	return &doc, nil, nil
}

// fakeOTP accepts a single code and records every send.
type fakeOTP struct {
	mu   sync.Mutex
	code string
	sent []string
}

func newFakeOTP() *fakeOTP {
	return &fakeOTP{code: "482913"}
}

func (f *fakeOTP) Send(phone string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, phone)
	return fmt.Sprintf("challenge-%d", len(f.sent)), nil
}

func (f *fakeOTP) Verify(challengeID, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return code == f.code, nil
}

// fakePayout hands out sequential payout ids and records every transfer.
type fakePayout struct {
	mu    sync.Mutex
	sent  []int
	fail  error
	count int
}

func (f *fakePayout) Payout(stripeAccountID string, amount int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.count++
	f.sent = append(f.sent, amount)
	return fmt.Sprintf("po_%03d", f.count), nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	accepted  []string
	completed []string
}

func (f *fakeNotifier) OfferAccepted(sess *db.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = append(f.accepted, sess.Code)
}

func (f *fakeNotifier) SessionCompleted(sess *db.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, sess.Code)
}

// fixture wires the services over one shared memStore.
type fixture struct {
	store     *memStore
	partners  repository.PartnerRepository
	locations repository.LocationRepository
	requests  repository.RequestRepository
	offers    repository.OfferRepository
	sessions  repository.SessionRepository
	documents repository.DocumentStore
	earnings  repository.EarningsRepository
	support   repository.SupportRepository
	otp       *fakeOTP
	notifier  *fakeNotifier
	payouts   *fakePayout
	locks     *PartnerLocks
	seq       int

	partnerSvc  *PartnerService
	dispatchSvc *DispatchService
	sessionSvc  *SessionService
	kycSvc      *KycService
	earningsSvc *EarningsService
	supportSvc  *SupportService
	locationSvc *LocationService
}

func newFixture(window time.Duration) *fixture {
	store := newMemStore()
	f := &fixture{
		store:     store,
		partners:  &memPartnerRepo{s: store},
		locations: &memLocationRepo{s: store},
		requests:  &memRequestRepo{s: store},
		offers:    &memOfferRepo{s: store},
		sessions:  &memSessionRepo{s: store},
		documents: &memDocumentStore{s: store},
		earnings:  &memEarningsRepo{s: store},
		support:   &memSupportRepo{s: store},
		otp:       newFakeOTP(),
		notifier:  &fakeNotifier{},
		payouts:   &fakePayout{},
		locks:     NewPartnerLocks(),
	}
	f.partnerSvc = NewPartnerService(f.partners, f.sessions, f.offers, f.earnings, f.support, f.locks)
	f.dispatchSvc = NewDispatchService(f.requests, f.offers, f.partners, f.locations, f.notifier, f.locks, window)
	f.sessionSvc = NewSessionService(f.sessions, f.partners, f.documents, f.otp, f.notifier, f.locks)
	f.kycSvc = NewKycService(f.partners, f.documents)
	f.earningsSvc = NewEarningsService(f.earnings, f.partners, f.payouts)
	f.supportSvc = NewSupportService(f.support)
	f.locationSvc = NewLocationService(f.locations)
	return f
}

func (f *fixture) seedPartner(kycStatus, availability string) *db.Partner {
	f.seq++
	p := &db.Partner{
		Name:         "Ravi Kumar",
		Phone:        fmt.Sprintf("+9198%08d", f.seq),
		Email:        "ravi@example.com",
		City:         "Bengaluru",
		Zone:         "Indiranagar",
		KycStatus:    kycStatus,
		Availability: availability,
	}
	if err := f.partners.Create(p); err != nil {
		panic(err)
	}
	return p
}

func (f *fixture) seedLocation(partnerID, totalSlots int) *db.ParkingLocation {
	l := &db.ParkingLocation{
		PartnerID:     partnerID,
		Name:          "100ft Road Lot",
		Address:       "100 Feet Rd, Indiranagar",
		TotalSlots:    totalSlots,
		BaseRate:      80,
		MinHours:      1,
		ExtensionRate: 120,
		Active:        true,
	}
	if err := f.locations.Create(l); err != nil {
		panic(err)
	}
	return l
}

func (f *fixture) seedTransaction(partnerID, amount int, age time.Duration, paidOut bool) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	commission := amount * commissionPercent / 100
	f.store.txns = append(f.store.txns, db.Transaction{
		ID:         f.store.id(),
		PartnerID:  partnerID,
		Amount:     amount,
		Commission: commission,
		Net:        amount - commission,
		PaidOut:    paidOut,
		CreatedAt:  time.Now().UTC().Add(-age),
	})
}

func (f *fixture) seedRequest(locationID, reservedHours int) *db.ParkingRequest {
	req := &db.ParkingRequest{
		LocationID:    locationID,
		OwnerName:     "Asha Rao",
		OwnerPhone:    "+919812345678",
		OwnerEmail:    "asha@example.com",
		VehiclePlate:  "KA01AB1234",
		VehicleModel:  "Swift",
		ReservedHours: reservedHours,
	}
	if err := f.dispatchSvc.CreateRequest(req); err != nil {
		panic(err)
	}
	return req
}
