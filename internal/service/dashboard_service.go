package service

import (
	"context"
	"fmt"

	"bahafit/internal/auth"
	"bahafit/internal/model"
	"bahafit/internal/repository"
)

// Dashboard is a user's "attending" and "hosting" lists.
type Dashboard struct {
	Attending []model.Registration `json:"attending"`
	Hosting   []model.Event        `json:"hosting"`
}

// DashboardService assembles the user dashboard.
type DashboardService interface {
	Get(ctx context.Context, user *auth.Identity) (*Dashboard, error)
}

type dashboardService struct {
	registrations repository.RegistrationRepository
	userEvents    repository.UserEventRepository
}

// NewDashboardService builds a DashboardService.
func NewDashboardService(registrations repository.RegistrationRepository, userEvents repository.UserEventRepository) DashboardService {
	return &dashboardService{registrations: registrations, userEvents: userEvents}
}

func (s *dashboardService) Get(ctx context.Context, user *auth.Identity) (*Dashboard, error) {
	attending, err := s.registrations.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	hosting, err := s.userEvents.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list hosted events: %w", err)
	}
	return &Dashboard{Attending: attending, Hosting: hosting}, nil
}
