package service

import (
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	verify "github.com/twilio/twilio-go/rest/verify/v2"

	"valetpartner/internal/apperr"
)

// OTPService is the OTP collaborator: a challenge is sent to a phone and later
// checked against the code the user read back.
type OTPService interface {
	Send(phone string) (string, error)
	Verify(challengeID, code string) (bool, error)
}

type twilioOTPService struct {
	client     *twilio.RestClient
	serviceSID string
}

func NewTwilioOTPService() OTPService {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	return &twilioOTPService{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
		serviceSID: os.Getenv("TWILIO_VERIFY_SERVICE_SID"),
	}
}

func (s *twilioOTPService) Send(phone string) (string, error) {
	if s.serviceSID == "" {
		return "", apperr.External(nil, "Twilio Verify service is not configured")
	}

	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")

	var sid string
	err := withRetry("otp send", func() error {
		resp, err := s.client.VerifyV2.CreateVerification(s.serviceSID, params)
		if err != nil {
			return err
		}
		if resp.Sid == nil {
			return fmt.Errorf("no verification SID in Twilio response")
		}
		sid = *resp.Sid
		return nil
	})
	if err != nil {
		return "", apperr.External(err, "could not send OTP to %s", phone)
	}
	log.Printf("OTP challenge %s sent to %s", sid, phone)
	return sid, nil
}

func (s *twilioOTPService) Verify(challengeID, code string) (bool, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetVerificationSid(challengeID)
	params.SetCode(code)

	var approved bool
	err := withRetry("otp verify", func() error {
		resp, err := s.client.VerifyV2.CreateVerificationCheck(s.serviceSID, params)
		if err != nil {
			return err
		}
		approved = resp.Status != nil && *resp.Status == "approved"
		return nil
	})
	if err != nil {
		return false, apperr.External(err, "could not verify OTP challenge %s", challengeID)
	}
	return approved, nil
}
