package service

import (
	"valetpartner/internal/apperr"
	"valetpartner/internal/db"
	"valetpartner/internal/entities"
	"valetpartner/internal/repository"
)

type LocationService struct {
	locations repository.LocationRepository
}

func NewLocationService(locations repository.LocationRepository) *LocationService {
	return &LocationService{locations: locations}
}

func validateLocationInput(in entities.LocationInput) error {
	if in.Name == "" || in.Address == "" {
		return apperr.Validation("name and address are required")
	}
	if in.TotalSlots <= 0 {
		return apperr.Validation("total slots must be positive")
	}
	if in.BaseRate <= 0 {
		return apperr.Validation("base rate must be positive")
	}
	if in.MinHours < 1 {
		return apperr.Validation("minimum duration must be at least one hour")
	}
	if in.ExtensionRate < 0 {
		return apperr.Validation("extension rate cannot be negative")
	}
	return nil
}

func (s *LocationService) Create(partnerID int, in entities.LocationInput) (*entities.LocationStatus, error) {
	if err := validateLocationInput(in); err != nil {
		return nil, err
	}
	location := &db.ParkingLocation{
		PartnerID:     partnerID,
		Name:          in.Name,
		Address:       in.Address,
		TotalSlots:    in.TotalSlots,
		BaseRate:      in.BaseRate,
		MinHours:      in.MinHours,
		ExtensionRate: in.ExtensionRate,
		Active:        in.Active,
	}
	if err := s.locations.Create(location); err != nil {
		return nil, err
	}
	// A new location has no sessions yet.
	return locationStatus(location, location.TotalSlots), nil
}

func (s *LocationService) List(partnerID int) ([]entities.LocationStatus, error) {
	return s.locations.ListWithAvailability(partnerID)
}

func (s *LocationService) Get(partnerID, locationID int) (*entities.LocationStatus, error) {
	location, err := s.getOwned(partnerID, locationID)
	if err != nil {
		return nil, err
	}
	available, err := s.locations.AvailableSlots(locationID)
	if err != nil {
		return nil, err
	}
	return locationStatus(location, available), nil
}

func (s *LocationService) Update(partnerID, locationID int, in entities.LocationInput) (*entities.LocationStatus, error) {
	if err := validateLocationInput(in); err != nil {
		return nil, err
	}
	location, err := s.getOwned(partnerID, locationID)
	if err != nil {
		return nil, err
	}
	location.Name = in.Name
	location.Address = in.Address
	location.TotalSlots = in.TotalSlots
	location.BaseRate = in.BaseRate
	location.MinHours = in.MinHours
	location.ExtensionRate = in.ExtensionRate
	location.Active = in.Active
	if err := s.locations.Update(location); err != nil {
		return nil, err
	}
	available, err := s.locations.AvailableSlots(locationID)
	if err != nil {
		return nil, err
	}
	return locationStatus(location, available), nil
}

func locationStatus(l *db.ParkingLocation, available int) *entities.LocationStatus {
	return &entities.LocationStatus{
		ID:             l.ID,
		Name:           l.Name,
		Address:        l.Address,
		TotalSlots:     l.TotalSlots,
		AvailableSlots: available,
		BaseRate:       l.BaseRate,
		MinHours:       l.MinHours,
		ExtensionRate:  l.ExtensionRate,
		Active:         l.Active,
	}
}

func (s *LocationService) getOwned(partnerID, locationID int) (*db.ParkingLocation, error) {
	location, err := s.locations.GetByID(locationID)
	if err != nil {
		return nil, err
	}
	if location == nil || location.PartnerID != partnerID {
		return nil, apperr.NotFound("parking location %d not found", locationID)
	}
	return location, nil
}
