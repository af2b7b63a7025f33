package service

import (
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"valetpartner/internal/apperr"
	"valetpartner/internal/db"
	"valetpartner/internal/entities"
	"valetpartner/internal/repository"
)

// Photo angles required on both inspections.
var requiredInspectionAngles = []string{"front", "back", "left", "right"}

// Platform commission withheld from every completed session, in percent.
const commissionPercent = 10

// SessionService drives the pickup -> active -> return -> completed lifecycle.
// Every transition is guarded by the partner lock and a conditional update, so
// a session can never move twice out of the same state.
type SessionService struct {
	sessions  repository.SessionRepository
	partners  repository.PartnerRepository
	documents repository.DocumentStore
	otp       OTPService
	notifier  Notifier
	locks     *PartnerLocks
}

func NewSessionService(
	sessions repository.SessionRepository,
	partners repository.PartnerRepository,
	documents repository.DocumentStore,
	otp OTPService,
	notifier Notifier,
	locks *PartnerLocks,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		partners:  partners,
		documents: documents,
		otp:       otp,
		notifier:  notifier,
		locks:     locks,
	}
}

func (s *SessionService) Get(partnerID, sessionID int) (*db.Session, error) {
	sess, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.PartnerID != partnerID {
		return nil, apperr.NotFound("session %d not found", sessionID)
	}
	return sess, nil
}

func (s *SessionService) ListForPartner(partnerID int) ([]db.Session, error) {
	return s.sessions.ListByPartner(partnerID)
}

// RequestPickupOTP sends a confirmation code to the vehicle owner and pins
// the challenge to the session.
func (s *SessionService) RequestPickupOTP(partnerID, sessionID int) (string, error) {
	return s.requestOTP(partnerID, sessionID, db.SessionPickupPending)
}

// RequestReturnOTP is the symmetric challenge for the return handover.
func (s *SessionService) RequestReturnOTP(partnerID, sessionID int) (string, error) {
	return s.requestOTP(partnerID, sessionID, db.SessionReturnPending)
}

func (s *SessionService) requestOTP(partnerID, sessionID int, wantStatus string) (string, error) {
	sess, err := s.Get(partnerID, sessionID)
	if err != nil {
		return "", err
	}
	if sess.Status != wantStatus {
		return "", apperr.IllegalTransition("session %d is %s, not %s", sessionID, sess.Status, wantStatus)
	}
	challengeID, err := s.otp.Send(sess.OwnerPhone)
	if err != nil {
		return "", err
	}
	if err := s.sessions.SetOtpChallenge(sessionID, challengeID); err != nil {
		return "", err
	}
	return challengeID, nil
}

// ConfirmPickup moves pickup_pending -> active once the inspection record is
// complete and the owner's OTP checks out. The session clock starts here.
func (s *SessionService) ConfirmPickup(partnerID, sessionID int, req entities.InspectionConfirmRequest) (*db.Session, error) {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	sess, err := s.Get(partnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != db.SessionPickupPending {
		return nil, apperr.IllegalTransition("pickup can only be confirmed from pickup_pending, session %d is %s", sessionID, sess.Status)
	}
	if err := validateInspection(req.Inspection); err != nil {
		return nil, err
	}
	if err := s.verifyOTP(sess, req.OTPCode); err != nil {
		return nil, err
	}
	if err := s.storeInspectionPhotos(sess, "pickup", req.Inspection.Photos); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	end := now.Add(time.Duration(sess.ReservedHours) * time.Hour)
	sess.StartTime = &now
	sess.ScheduledEnd = &end
	sess.PickupOdometer = req.Inspection.Odometer
	sess.PickupFuel = req.Inspection.FuelPercent
	sess.PickupDamage = req.Inspection.DamageMarkers

	changed, err := s.sessions.ConfirmPickup(sess)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperr.Conflict("session %d changed concurrently", sessionID)
	}
	sess.Status = db.SessionActive
	log.Printf("Session %s active: vehicle %s at slot %s until %s", sess.Code, sess.VehiclePlate, sess.SlotLabel, end.Format(time.RFC3339))
	return sess, nil
}

// RequestReturn is the partner-initiated early return. The scheduled sweep
// drives the same edge when the session timer reaches zero.
func (s *SessionService) RequestReturn(partnerID, sessionID int) (*db.Session, error) {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	sess, err := s.Get(partnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != db.SessionActive {
		return nil, apperr.IllegalTransition("return can only be requested for an active session, session %d is %s", sessionID, sess.Status)
	}
	changed, err := s.sessions.SetStatusFrom(sessionID, db.SessionActive, db.SessionReturnPending)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperr.Conflict("session %d changed concurrently", sessionID)
	}
	sess.Status = db.SessionReturnPending
	return sess, nil
}

// ConfirmReturn closes the session: with the symmetric inspection and OTP the
// session completes and the fare is finalized; damage markers that were not
// present at pickup send it to disputed instead.
func (s *SessionService) ConfirmReturn(partnerID, sessionID int, req entities.InspectionConfirmRequest) (*db.Session, error) {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	sess, err := s.Get(partnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != db.SessionReturnPending {
		return nil, apperr.IllegalTransition("return can only be confirmed from return_pending, session %d is %s", sessionID, sess.Status)
	}
	if sess.StartTime == nil {
		return nil, apperr.IllegalTransition("session %d has no recorded pickup", sessionID)
	}
	if err := validateInspection(req.Inspection); err != nil {
		return nil, err
	}
	if err := s.verifyOTP(sess, req.OTPCode); err != nil {
		return nil, err
	}
	if err := s.storeInspectionPhotos(sess, "return", req.Inspection.Photos); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	fare, billed, extra := ComputeFare(
		sess.BaseRate, sess.ExtensionRate, sess.ReservedHours, sess.MinHours, now.Sub(*sess.StartTime),
	)
	sess.ReturnedAt = &now
	sess.ReturnOdometer = req.Inspection.Odometer
	sess.ReturnFuel = req.Inspection.FuelPercent
	sess.ReturnDamage = req.Inspection.DamageMarkers
	sess.Fare = fare

	newDamage := newMarkers(sess.PickupDamage, req.Inspection.DamageMarkers)
	var txn *db.Transaction
	if len(newDamage) > 0 {
		sess.Status = db.SessionDisputed
	} else {
		sess.Status = db.SessionCompleted
		commission := fare * commissionPercent / 100
		txn = &db.Transaction{
			PartnerID:  partnerID,
			SessionID:  sessionID,
			Amount:     fare,
			Commission: commission,
			Net:        fare - commission,
		}
	}

	changed, err := s.sessions.FinishReturn(sess, txn)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperr.Conflict("session %d changed concurrently", sessionID)
	}

	if sess.Status == db.SessionDisputed {
		log.Printf("Session %s disputed: new damage markers %v", sess.Code, newDamage)
	} else {
		log.Printf("Session %s completed: %d billed hour(s), %d extra, fare %d", sess.Code, billed, extra, fare)
		if s.notifier != nil {
			s.notifier.SessionCompleted(sess)
		}
	}
	return sess, nil
}

// Cancel aborts a session before the vehicle was picked up, freeing the slot
// and returning the partner to the available pool.
func (s *SessionService) Cancel(partnerID, sessionID int) (*db.Session, error) {
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	sess, err := s.Get(partnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != db.SessionPickupPending {
		return nil, apperr.IllegalTransition("only a session awaiting pickup can be canceled, session %d is %s", sessionID, sess.Status)
	}
	changed, err := s.sessions.CancelPickup(sessionID, partnerID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperr.Conflict("session %d changed concurrently", sessionID)
	}
	sess.Status = db.SessionCanceled
	log.Printf("Session %s canceled before pickup", sess.Code)
	return sess, nil
}

func (s *SessionService) verifyOTP(sess *db.Session, code string) error {
	if sess.OtpChallengeID == "" {
		return apperr.Validation("request an owner OTP before confirming")
	}
	if code == "" {
		return apperr.Validation("otp code is required")
	}
	ok, err := s.otp.Verify(sess.OtpChallengeID, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("otp code did not match")
	}
	return nil
}

// storeInspectionPhotos uploads one document per required angle. The kind is
// stable per session and phase, so a retry after a lost race replaces the
// earlier upload instead of accumulating duplicates.
func (s *SessionService) storeInspectionPhotos(sess *db.Session, phase string, photos map[string]string) error {
	for _, angle := range requiredInspectionAngles {
		content, err := base64.StdEncoding.DecodeString(photos[angle])
		if err != nil {
			return apperr.Validation("inspection photo '%s' is not valid base64", angle)
		}
		kind := fmt.Sprintf("%s_%s_%s", phase, sess.Code, angle)
		if _, err := s.documents.Store(sess.PartnerID, kind, content); err != nil {
			return err
		}
	}
	return nil
}

func validateInspection(insp entities.InspectionReport) error {
	for _, angle := range requiredInspectionAngles {
		if insp.Photos[angle] == "" {
			return apperr.Validation("inspection photo '%s' is missing", angle)
		}
	}
	if insp.Odometer <= 0 {
		return apperr.Validation("odometer reading is required")
	}
	if insp.FuelPercent < 0 || insp.FuelPercent > 100 {
		return apperr.Validation("fuel percent must be between 0 and 100")
	}
	return nil
}

// newMarkers returns the markers in current that were absent at baseline.
func newMarkers(baseline, current []string) []string {
	seen := make(map[string]bool, len(baseline))
	for _, m := range baseline {
		seen[m] = true
	}
	var added []string
	for _, m := range current {
		if !seen[m] {
			added = append(added, m)
		}
	}
	return added
}
