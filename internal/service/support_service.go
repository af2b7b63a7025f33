package service

import (
	"valetpartner/internal/apperr"
	"valetpartner/internal/db"
	"valetpartner/internal/entities"
	"valetpartner/internal/repository"
)

var ticketCategories = map[string]bool{
	"payment":   true,
	"technical": true,
	"session":   true,
	"other":     true,
}

type SupportService struct {
	tickets repository.SupportRepository
}

func NewSupportService(tickets repository.SupportRepository) *SupportService {
	return &SupportService{tickets: tickets}
}

func (s *SupportService) CreateTicket(partnerID int, in entities.TicketInput) (*db.SupportTicket, error) {
	if in.Subject == "" || in.Description == "" {
		return nil, apperr.Validation("subject and description are required")
	}
	if !ticketCategories[in.Category] {
		return nil, apperr.Validation("unknown ticket category '%s'", in.Category)
	}

	ticket := &db.SupportTicket{
		PartnerID:   partnerID,
		Subject:     in.Subject,
		Category:    in.Category,
		Description: in.Description,
		Status:      "open",
	}
	if err := s.tickets.Create(ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *SupportService) ListTickets(partnerID int) ([]db.SupportTicket, error) {
	return s.tickets.ListByPartner(partnerID)
}

func (s *SupportService) ResolveTicket(ticketID int) error {
	changed, err := s.tickets.Resolve(ticketID)
	if err != nil {
		return err
	}
	if !changed {
		return apperr.IllegalTransition("ticket %d is not open", ticketID)
	}
	return nil
}
