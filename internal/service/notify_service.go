package service

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"valetpartner/internal/db"
)

// Notifier pushes session status updates to the vehicle owner. Sends are
// asynchronous and best-effort; failures are logged, never surfaced.
type Notifier interface {
	OfferAccepted(sess *db.Session)
	SessionCompleted(sess *db.Session)
}

type ownerNotifier struct{}

func NewOwnerNotifier() Notifier {
	return &ownerNotifier{}
}

func (n *ownerNotifier) OfferAccepted(sess *db.Session) {
	msg := fmt.Sprintf("ValetPartner: your parking request %s has been accepted. Your valet will meet you shortly. Slot: %s.",
		sess.Code, sess.SlotLabel)
	go func() {
		if err := SendSMS(sess.OwnerPhone, msg); err != nil {
			log.Printf("ALERT: offer %s accepted, but the owner SMS to %s failed: %v", sess.Code, sess.OwnerPhone, err)
		}
	}()
}

func (n *ownerNotifier) SessionCompleted(sess *db.Session) {
	msg := fmt.Sprintf("ValetPartner: your vehicle %s has been returned. Session %s total: %d.",
		sess.VehiclePlate, sess.Code, sess.Fare)
	go func() {
		if err := SendSMS(sess.OwnerPhone, msg); err != nil {
			log.Printf("ALERT: session %s completed, but the owner SMS to %s failed: %v", sess.Code, sess.OwnerPhone, err)
		}
	}()
	if sess.OwnerEmail == "" {
		return
	}
	subject := fmt.Sprintf("Your parking receipt — session %s", sess.Code)
	plain := fmt.Sprintf("Hi %s,\n\nYour vehicle %s has been returned. Total charged for session %s: %d.\n\nThank you for parking with us.",
		sess.OwnerName, sess.VehiclePlate, sess.Code, sess.Fare)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your vehicle <strong>%s</strong> has been returned. Total charged for session <strong>%s</strong>: <strong>%d</strong>.</p><p>Thank you for parking with us.</p>",
		sess.OwnerName, sess.VehiclePlate, sess.Code, sess.Fare)
	go func() {
		if err := SendEmailWithSendGrid(sess.OwnerEmail, sess.OwnerName, subject, plain, html); err != nil {
			log.Printf("ALERT: session %s completed, but the receipt email to %s failed: %v", sess.Code, sess.OwnerEmail, err)
		}
	}()
}

func SendEmailWithSendGrid(toEmailAddress, toName, subject, plainTextContent, htmlContent string) error {
	sendgridAPIKey := os.Getenv("SENDGRID_API_KEY")
	if sendgridAPIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not configured")
	}
	fromEmail := os.Getenv("SENDGRID_FROM_EMAIL")
	if fromEmail == "" {
		return fmt.Errorf("SENDGRID_FROM_EMAIL is not configured")
	}
	fromName := os.Getenv("SENDGRID_FROM_NAME")
	if fromName == "" {
		fromName = "ValetPartner"
	}

	from := mail.NewEmail(fromName, fromEmail)
	to := mail.NewEmail(toName, toEmailAddress)
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)

	client := sendgrid.NewSendClient(sendgridAPIKey)
	return withRetry("sendgrid email", func() error {
		response, err := client.Send(message)
		if err != nil {
			return fmt.Errorf("sending email via SendGrid failed: %w", err)
		}
		if response.StatusCode < 200 || response.StatusCode >= 300 {
			return fmt.Errorf("SendGrid returned status %d: %s", response.StatusCode, response.Body)
		}
		return nil
	})
}

func SendSMS(toNumber, messageBody string) error {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	fromNumber := os.Getenv("TWILIO_FROM_NUMBER")

	if accountSid == "" || authToken == "" || fromNumber == "" {
		return fmt.Errorf("Twilio credentials are not fully configured")
	}
	if !strings.HasPrefix(toNumber, "+") {
		log.Printf("WARNING: destination number '%s' is not E.164, the SMS may fail", toNumber)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(fromNumber)
	params.SetBody(messageBody)

	return withRetry("twilio sms", func() error {
		resp, err := client.Api.CreateMessage(params)
		if err != nil {
			return fmt.Errorf("sending SMS failed: %w", err)
		}
		if resp != nil && resp.Sid != nil {
			log.Printf("SMS sent to %s, message SID %s", toNumber, *resp.Sid)
		}
		return nil
	})
}
