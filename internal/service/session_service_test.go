package service

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valetpartner/internal/apperr"
	"valetpartner/internal/db"
	"valetpartner/internal/entities"
)

func inspection(markers ...string) entities.InspectionReport {
	img := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	return entities.InspectionReport{
		Odometer:      42310,
		FuelPercent:   60,
		DamageMarkers: markers,
		Photos:        map[string]string{"front": img, "back": img, "left": img, "right": img},
	}
}

// startSession drives dispatch up to an accepted pickup_pending session.
func startSession(t *testing.T, f *fixture, reservedHours int) (*db.Partner, *db.Session) {
	t.Helper()
	partner := f.seedPartner(db.KycApproved, db.AvailabilityOnline)
	location := f.seedLocation(partner.ID, 20)
	request := f.seedRequest(location.ID, reservedHours)

	offer, err := f.dispatchSvc.Offer(request.ID, partner.ID)
	require.NoError(t, err)
	sess, err := f.dispatchSvc.Accept(offer.ID, partner.ID)
	require.NoError(t, err)
	return partner, sess
}

func confirmPickup(t *testing.T, f *fixture, partnerID, sessionID int, markers ...string) *db.Session {
	t.Helper()
	_, err := f.sessionSvc.RequestPickupOTP(partnerID, sessionID)
	require.NoError(t, err)
	sess, err := f.sessionSvc.ConfirmPickup(partnerID, sessionID, entities.InspectionConfirmRequest{
		OTPCode:    f.otp.code,
		Inspection: inspection(markers...),
	})
	require.NoError(t, err)
	return sess
}

func TestSessionFullLifecycle(t *testing.T) {
	f := newFixture(time.Minute)
	partner, sess := startSession(t, f, 2)

	active := confirmPickup(t, f, partner.ID, sess.ID)
	assert.Equal(t, db.SessionActive, active.Status)
	require.NotNil(t, active.StartTime)
	require.NotNil(t, active.ScheduledEnd)
	assert.Equal(t, 2*time.Hour, active.ScheduledEnd.Sub(*active.StartTime))

	returned, err := f.sessionSvc.RequestReturn(partner.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, db.SessionReturnPending, returned.Status)

	_, err = f.sessionSvc.RequestReturnOTP(partner.ID, sess.ID)
	require.NoError(t, err)
	done, err := f.sessionSvc.ConfirmReturn(partner.ID, sess.ID, entities.InspectionConfirmRequest{
		OTPCode:    f.otp.code,
		Inspection: inspection(),
	})
	require.NoError(t, err)
	assert.Equal(t, db.SessionCompleted, done.Status)
	require.NotNil(t, done.ReturnedAt)

	// Immediate return on a 2h reservation bills the 1-hour minimum.
	assert.Equal(t, 80, done.Fare)

	got, _ := f.partners.GetByID(partner.ID)
	assert.Equal(t, db.AvailabilityOnline, got.Availability)
	assert.Equal(t, []string{done.Code}, f.notifier.completed)

	f.store.mu.Lock()
	require.Len(t, f.store.txns, 1)
	txn := f.store.txns[0]
	f.store.mu.Unlock()
	assert.Equal(t, 80, txn.Amount)
	assert.Equal(t, 8, txn.Commission)
	assert.Equal(t, 72, txn.Net)
	assert.Equal(t, sess.ID, txn.SessionID)
}

func TestConfirmPickupGuards(t *testing.T) {
	f := newFixture(time.Minute)
	partner, sess := startSession(t, f, 2)

	t.Run("without a challenged otp", func(t *testing.T) {
		_, err := f.sessionSvc.ConfirmPickup(partner.ID, sess.ID, entities.InspectionConfirmRequest{
			OTPCode:    f.otp.code,
			Inspection: inspection(),
		})
		assert.True(t, apperr.Is(err, apperr.CodeValidation))
	})

	t.Run("wrong otp code", func(t *testing.T) {
		_, err := f.sessionSvc.RequestPickupOTP(partner.ID, sess.ID)
		require.NoError(t, err)
		_, err = f.sessionSvc.ConfirmPickup(partner.ID, sess.ID, entities.InspectionConfirmRequest{
			OTPCode:    "000000",
			Inspection: inspection(),
		})
		assert.True(t, apperr.Is(err, apperr.CodeValidation))
	})

	t.Run("missing photo angle", func(t *testing.T) {
		insp := inspection()
		delete(insp.Photos, "left")
		_, err := f.sessionSvc.ConfirmPickup(partner.ID, sess.ID, entities.InspectionConfirmRequest{
			OTPCode:    f.otp.code,
			Inspection: insp,
		})
		assert.True(t, apperr.Is(err, apperr.CodeValidation))
	})

	t.Run("session still awaiting pickup after failures", func(t *testing.T) {
		got, _ := f.sessions.GetByID(sess.ID)
		assert.Equal(t, db.SessionPickupPending, got.Status)
	})
}

func TestConfirmPickupTwice(t *testing.T) {
	f := newFixture(time.Minute)
	partner, sess := startSession(t, f, 2)
	confirmPickup(t, f, partner.ID, sess.ID)

	_, err := f.sessionSvc.RequestPickupOTP(partner.ID, sess.ID)
	assert.True(t, apperr.Is(err, apperr.CodeIllegalTransition))

	_, err = f.sessionSvc.ConfirmPickup(partner.ID, sess.ID, entities.InspectionConfirmRequest{
		OTPCode:    f.otp.code,
		Inspection: inspection(),
	})
	assert.True(t, apperr.Is(err, apperr.CodeIllegalTransition))
}

func TestConfirmReturnWithNewDamageDisputes(t *testing.T) {
	f := newFixture(time.Minute)
	partner, sess := startSession(t, f, 2)
	confirmPickup(t, f, partner.ID, sess.ID, "scratch_rear_bumper")

	_, err := f.sessionSvc.RequestReturn(partner.ID, sess.ID)
	require.NoError(t, err)
	_, err = f.sessionSvc.RequestReturnOTP(partner.ID, sess.ID)
	require.NoError(t, err)

	done, err := f.sessionSvc.ConfirmReturn(partner.ID, sess.ID, entities.InspectionConfirmRequest{
		OTPCode:    f.otp.code,
		Inspection: inspection("scratch_rear_bumper", "dent_left_door"),
	})
	require.NoError(t, err)
	assert.Equal(t, db.SessionDisputed, done.Status)

	// Fare is computed and held, but no transaction is recorded.
	assert.Equal(t, 80, done.Fare)
	f.store.mu.Lock()
	assert.Empty(t, f.store.txns)
	f.store.mu.Unlock()
	assert.Empty(t, f.notifier.completed)

	// The partner still returns to the available pool.
	got, _ := f.partners.GetByID(partner.ID)
	assert.Equal(t, db.AvailabilityOnline, got.Availability)
}

func TestConfirmReturnMatchingDamageCompletes(t *testing.T) {
	f := newFixture(time.Minute)
	partner, sess := startSession(t, f, 2)
	confirmPickup(t, f, partner.ID, sess.ID, "scratch_rear_bumper")

	_, err := f.sessionSvc.RequestReturn(partner.ID, sess.ID)
	require.NoError(t, err)
	_, err = f.sessionSvc.RequestReturnOTP(partner.ID, sess.ID)
	require.NoError(t, err)

	done, err := f.sessionSvc.ConfirmReturn(partner.ID, sess.ID, entities.InspectionConfirmRequest{
		OTPCode:    f.otp.code,
		Inspection: inspection("scratch_rear_bumper"),
	})
	require.NoError(t, err)
	assert.Equal(t, db.SessionCompleted, done.Status)
}

func TestCancelBeforePickup(t *testing.T) {
	f := newFixture(time.Minute)
	partner, sess := startSession(t, f, 2)

	canceled, err := f.sessionSvc.Cancel(partner.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, db.SessionCanceled, canceled.Status)

	got, _ := f.partners.GetByID(partner.ID)
	assert.Equal(t, db.AvailabilityOnline, got.Availability)
}

func TestCancelActiveSessionRefused(t *testing.T) {
	f := newFixture(time.Minute)
	partner, sess := startSession(t, f, 2)
	confirmPickup(t, f, partner.ID, sess.ID)

	_, err := f.sessionSvc.Cancel(partner.ID, sess.ID)
	assert.True(t, apperr.Is(err, apperr.CodeIllegalTransition))
}

func TestSessionInvisibleToOtherPartners(t *testing.T) {
	f := newFixture(time.Minute)
	_, sess := startSession(t, f, 2)
	stranger := f.seedPartner(db.KycApproved, db.AvailabilityOnline)

	_, err := f.sessionSvc.Get(stranger.ID, sess.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestSweepMovesElapsedSessionsToReturnPending(t *testing.T) {
	f := newFixture(time.Minute)
	partner, sess := startSession(t, f, 2)
	confirmPickup(t, f, partner.ID, sess.ID)

	past := time.Now().UTC().Add(-time.Minute)
	f.store.mu.Lock()
	f.store.sessions[sess.ID].ScheduledEnd = &past
	f.store.mu.Unlock()

	jobs := NewJobService(f.sessions, f.dispatchSvc)
	require.NoError(t, jobs.SweepElapsedSessions())

	got, _ := f.sessions.GetByID(sess.ID)
	assert.Equal(t, db.SessionReturnPending, got.Status)

	// The sweep never force-completes; the partner stays on_trip until the
	// return handover is confirmed.
	p, _ := f.partners.GetByID(partner.ID)
	assert.Equal(t, db.AvailabilityOnTrip, p.Availability)
}

func TestSlotAvailabilityDerivedFromSessions(t *testing.T) {
	f := newFixture(time.Minute)
	partner, sess := startSession(t, f, 2)

	// A second partner's active session holds another slot at the same lot.
	other := f.seedPartner(db.KycApproved, db.AvailabilityOnTrip)
	f.store.mu.Lock()
	otherID := f.store.id()
	f.store.sessions[otherID] = &db.Session{
		ID: otherID, Code: "S-OTHER", PartnerID: other.ID,
		LocationID: sess.LocationID, Status: db.SessionActive,
	}
	f.store.mu.Unlock()

	free, err := f.locations.AvailableSlots(sess.LocationID)
	require.NoError(t, err)
	assert.Equal(t, 18, free)

	confirmPickup(t, f, partner.ID, sess.ID)
	free, _ = f.locations.AvailableSlots(sess.LocationID)
	assert.Equal(t, 18, free)

	_, err = f.sessionSvc.RequestReturn(partner.ID, sess.ID)
	require.NoError(t, err)
	_, err = f.sessionSvc.RequestReturnOTP(partner.ID, sess.ID)
	require.NoError(t, err)
	_, err = f.sessionSvc.ConfirmReturn(partner.ID, sess.ID, entities.InspectionConfirmRequest{
		OTPCode:    f.otp.code,
		Inspection: inspection(),
	})
	require.NoError(t, err)

	free, _ = f.locations.AvailableSlots(sess.LocationID)
	assert.Equal(t, 19, free)
}

func TestPickupRetryReplacesInspectionPhotos(t *testing.T) {
	f := newFixture(time.Minute)
	partner, sess := startSession(t, f, 2)
	confirmPickup(t, f, partner.ID, sess.ID)

	f.store.mu.Lock()
	count := len(f.store.documents)
	// Rewind as if the first confirm had lost its race after the photos
	// were already uploaded.
	f.store.sessions[sess.ID].Status = db.SessionPickupPending
	f.store.mu.Unlock()
	require.Equal(t, len(requiredInspectionAngles), count)

	confirmPickup(t, f, partner.ID, sess.ID)

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	assert.Len(t, f.store.documents, count)
}
