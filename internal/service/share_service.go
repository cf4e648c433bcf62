package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sessionsnap/internal/billing"
	"sessionsnap/internal/domain"
	"sessionsnap/internal/models"

	"github.com/rs/zerolog"
)

// ShareSettings is the studio information handed to the suggester and the per-operator limit.
type ShareSettings struct {
	StudioName   string
	CalendarLink string
	Language     string
	Limit        int
	Window       time.Duration
}

// maxSummaryProjects caps how many past project names end up in a suggestion context.
const maxSummaryProjects = 3

type ShareService struct {
	store     domain.Store
	drafts    domain.DraftRepository
	suggester domain.TextSuggester
	settings  ShareSettings
	logger    *zerolog.Logger
}

func NewShareService(
	store domain.Store,
	drafts domain.DraftRepository,
	suggester domain.TextSuggester,
	settings ShareSettings,
	logger *zerolog.Logger,
) *ShareService {
	if settings.Limit <= 0 {
		settings.Limit = models.ShareRateLimitMessages
	}
	if settings.Window <= 0 {
		settings.Window = models.ShareRateLimitWindow
	}
	return &ShareService{
		store:     store,
		drafts:    drafts,
		suggester: suggester,
		settings:  settings,
		logger:    logger,
	}
}

// ShareMessage suggests a short message inviting a client to book. clientID is optional.
func (s *ShareService) ShareMessage(ctx context.Context, operatorID, clientID string) (string, error) {
	allowed, err := s.drafts.CheckRateLimit(ctx, "share:"+operatorID, s.settings.Limit, s.settings.Window)
	if err != nil {
		return "", fmt.Errorf("check share rate limit: %w", err)
	}
	if !allowed {
		return "", ErrRateLimited
	}

	sc := models.SuggestionContext{
		StudioName:   s.settings.StudioName,
		CalendarLink: s.settings.CalendarLink,
		Language:     s.settings.Language,
	}
	if clientID != "" {
		if err := s.describeClient(ctx, clientID, &sc); err != nil {
			return "", err
		}
	}

	msg, err := s.suggester.Suggest(ctx, sc)
	if err != nil {
		s.logger.Warn().Err(err).Str("operator", operatorID).Msg("Suggestion failed")
		return "", fmt.Errorf("%w: %w", ErrSuggestionFailed, err)
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", fmt.Errorf("%w: empty message", ErrSuggestionFailed)
	}
	return models.TruncateMessage(msg, models.ShareMessageMaxLength), nil
}

func (s *ShareService) describeClient(ctx context.Context, clientID string, sc *models.SuggestionContext) error {
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return err
	}
	sc.ClientName = client.Name

	projects, err := s.store.ListProjectsByClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("load client projects: %w", err)
	}
	names := make([]string, 0, maxSummaryProjects)
	for _, p := range projects {
		if len(names) == maxSummaryProjects {
			break
		}
		names = append(names, p.Name)
	}
	sc.PastSummary = strings.Join(names, ", ")

	bookings, err := s.store.GetBookingsByClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("load client bookings: %w", err)
	}
	sc.PastSessions = len(billing.MergeContiguousSessions(bookings))
	return nil
}
