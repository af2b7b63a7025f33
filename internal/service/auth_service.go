package service

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"valetpartner/internal/apperr"
	"valetpartner/internal/db"
	"valetpartner/internal/entities"
	"valetpartner/internal/repository"
)

const partnerTokenTTL = 24 * time.Hour

// AuthService registers partners and signs them in over a phone OTP.
type AuthService struct {
	partners repository.PartnerRepository
	otp      OTPService
}

func NewAuthService(partners repository.PartnerRepository, otp OTPService) *AuthService {
	return &AuthService{partners: partners, otp: otp}
}

func (s *AuthService) Register(req entities.RegisterRequest) (*db.Partner, error) {
	if req.Name == "" || req.Email == "" || req.City == "" || req.Zone == "" {
		return nil, apperr.Validation("name, email, city and zone are required")
	}
	if !strings.HasPrefix(req.Phone, "+") {
		return nil, apperr.Validation("phone must be in E.164 format")
	}

	partner := &db.Partner{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		City:         req.City,
		Zone:         req.Zone,
		KycStatus:    db.KycPending,
		Availability: db.AvailabilityOffline,
	}
	if err := s.partners.Create(partner); err != nil {
		if errors.Is(err, repository.ErrDuplicatePartner) {
			return nil, apperr.Conflict("phone %s is already registered", req.Phone)
		}
		return nil, err
	}
	return partner, nil
}

// RequestLoginOTP sends a sign-in code to a registered phone.
func (s *AuthService) RequestLoginOTP(phone string) (string, error) {
	partner, err := s.partners.GetByPhone(phone)
	if err != nil {
		return "", err
	}
	if partner == nil {
		return "", apperr.NotFound("no partner registered with phone %s", phone)
	}
	return s.otp.Send(phone)
}

// VerifyLogin checks the OTP and issues the partner token.
func (s *AuthService) VerifyLogin(req entities.VerifyLoginRequest) (string, error) {
	partner, err := s.partners.GetByPhone(req.Phone)
	if err != nil {
		return "", err
	}
	if partner == nil {
		return "", apperr.NotFound("no partner registered with phone %s", req.Phone)
	}

	ok, err := s.otp.Verify(req.ChallengeID, req.Code)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.Validation("otp code did not match")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", errors.New("JWT_SECRET not set")
	}
	claims := jwt.MapClaims{
		"partner_id": partner.ID,
		"phone":      partner.Phone,
		"role":       "partner",
		"exp":        time.Now().Add(partnerTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
