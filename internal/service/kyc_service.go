package service

import (
	"encoding/base64"
	"log"

	"github.com/google/uuid"

	"valetpartner/internal/apperr"
	"valetpartner/internal/db"
	"valetpartner/internal/entities"
	"valetpartner/internal/repository"
)

// Document kinds of a complete KYC submission.
var requiredKycKinds = []string{"id_front", "id_back", "selfie", "license_front", "license_back"}

type KycService struct {
	partners  repository.PartnerRepository
	documents repository.DocumentStore
}

func NewKycService(partners repository.PartnerRepository, documents repository.DocumentStore) *KycService {
	return &KycService{partners: partners, documents: documents}
}

// SubmitDocuments stores the full document set and (re-)enters pending review.
// A rejected partner re-enters pending only through a fresh submission.
func (s *KycService) SubmitDocuments(partnerID int, sub entities.KycSubmission) (*entities.KycReceipt, error) {
	switch sub.IDType {
	case "aadhaar", "pan", "license":
	default:
		return nil, apperr.Validation("unknown id type '%s'", sub.IDType)
	}
	if sub.ExperienceYears < 0 {
		return nil, apperr.Validation("experience years cannot be negative")
	}

	images := map[string]string{
		"id_front":      sub.IDFront,
		"id_back":       sub.IDBack,
		"selfie":        sub.Selfie,
		"license_front": sub.LicenseFront,
		"license_back":  sub.LicenseBack,
	}
	for _, kind := range requiredKycKinds {
		if images[kind] == "" {
			return nil, apperr.Validation("required document image '%s' is missing", kind)
		}
	}

	partner, err := s.partners.GetByID(partnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, apperr.NotFound("partner %d not found", partnerID)
	}

	documentIDs := make(map[string]string, len(requiredKycKinds))
	for _, kind := range requiredKycKinds {
		content, err := base64.StdEncoding.DecodeString(images[kind])
		if err != nil {
			return nil, apperr.Validation("document image '%s' is not valid base64", kind)
		}
		id, err := s.documents.Store(partnerID, kind, content)
		if err != nil {
			return nil, err
		}
		documentIDs[kind] = id
	}

	if err := s.partners.SetKycStatus(partnerID, db.KycPending); err != nil {
		return nil, err
	}
	log.Printf("KYC documents submitted for partner %d", partnerID)

	return &entities.KycReceipt{
		SubmissionID: uuid.NewString(),
		DocumentIDs:  documentIDs,
		Status:       db.KycPending,
	}, nil
}

// ReviewDocuments records the reviewer outcome. The pending->outcome edge is
// one-way per submission.
func (s *KycService) ReviewDocuments(partnerID int, outcome string) error {
	if outcome != db.KycApproved && outcome != db.KycRejected {
		return apperr.Validation("review outcome must be '%s' or '%s'", db.KycApproved, db.KycRejected)
	}
	changed, err := s.partners.SetKycStatusFrom(partnerID, db.KycPending, outcome)
	if err != nil {
		return err
	}
	if !changed {
		return apperr.IllegalTransition("kyc review requires a pending submission")
	}
	log.Printf("KYC for partner %d reviewed: %s", partnerID, outcome)
	return nil
}

func (s *KycService) GetStatus(partnerID int) (string, error) {
	partner, err := s.partners.GetByID(partnerID)
	if err != nil {
		return "", err
	}
	if partner == nil {
		return "", apperr.NotFound("partner %d not found", partnerID)
	}
	return partner.KycStatus, nil
}
