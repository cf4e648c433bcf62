package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sessionsnap/internal/domain"
	"sessionsnap/internal/events"
	"sessionsnap/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ClientService struct {
	store    domain.Store
	eventBus domain.EventPublisher
	logger   *zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewClientService(store domain.Store, eventBus domain.EventPublisher, logger *zerolog.Logger) *ClientService {
	return &ClientService{
		store:    store,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ListClients returns the studio's real clients; the internal client is never listed.
func (s *ClientService) ListClients(ctx context.Context) ([]models.Client, error) {
	return s.store.ListClients(ctx, false)
}

func (s *ClientService) CreateClient(ctx context.Context, client models.Client) (*models.Client, error) {
	client.Name = strings.TrimSpace(client.Name)
	if client.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidClient)
	}
	if client.ID == "" {
		client.ID = s.newID()
	}
	client.Internal = false
	client.CreatedAt = s.now()

	if err := s.store.CreateClient(ctx, &client); err != nil {
		s.logger.Error().Err(err).Str("client_name", client.Name).Msg("failed to create client")
		return nil, err
	}

	s.publish(events.EventClientCreated, events.EntityEventPayload{ID: client.ID, Name: client.Name})
	s.logger.Info().Str("client_id", client.ID).Str("client_name", client.Name).Msg("Client created")
	return &client, nil
}

func (s *ClientService) ListProjects(ctx context.Context, clientID string) ([]models.Project, error) {
	if _, err := s.store.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.store.ListProjectsByClient(ctx, clientID)
}

func (s *ClientService) CreateProject(ctx context.Context, project models.Project) (*models.Project, error) {
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProject)
	}
	if _, err := s.store.GetClient(ctx, project.ClientID); err != nil {
		return nil, err
	}
	if project.ID == "" {
		project.ID = s.newID()
	}
	if err := project.ValidateBilling(); err != nil {
		return nil, err
	}
	project.CreatedAt = s.now()

	if err := s.store.CreateProject(ctx, &project); err != nil {
		s.logger.Error().Err(err).Str("client_id", project.ClientID).Msg("failed to create project")
		return nil, err
	}

	s.publish(events.EventProjectCreated, events.EntityEventPayload{ID: project.ID, Name: project.Name, ClientID: project.ClientID})
	s.logger.Info().Str("project_id", project.ID).Str("client_id", project.ClientID).Msg("Project created")
	return &project, nil
}

func (s *ClientService) publish(eventType string, payload any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
