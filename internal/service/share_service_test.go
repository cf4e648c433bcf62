package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"sessionsnap/internal/database"
	"sessionsnap/internal/models"
	"sessionsnap/internal/suggest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newShare(t *testing.T, db *database.DB, sugg *mockSuggester, limit int) *ShareService {
	t.Helper()
	return NewShareService(db, newDrafts(), sugg, ShareSettings{
		StudioName:   "Estudio Sol",
		CalendarLink: "https://example.com/agenda",
		Limit:        limit,
		Window:       time.Minute,
	}, nopLogger())
}

func TestShareService_ClientContext(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	createClient(t, db, "c1", "Ana")
	createPackageProject(t, db, "p1", "c1", models.Tier10h)
	bookHours(t, db, "c1", "p1", at(0, 10), at(0, 11), at(2, 15))

	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, models.SuggestionContext{
		StudioName:   "Estudio Sol",
		CalendarLink: "https://example.com/agenda",
		ClientName:   "Ana",
		PastSummary:  "Project p1",
		PastSessions: 2,
	}).Return("  Oi Ana! Bora gravar? https://example.com/agenda ", nil)

	msg, err := newShare(t, db, sugg, 10).ShareMessage(ctx, "op1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Oi Ana! Bora gravar? https://example.com/agenda", msg)
	sugg.AssertExpectations(t)
}

func TestShareService_StudioLanguage(t *testing.T) {
	svc := NewShareService(setupTestDB(t), newDrafts(), suggest.NewTemplateSuggester(), ShareSettings{
		StudioName:   "Estudio Sol",
		CalendarLink: "https://example.com/agenda",
		Language:     "pt",
		Limit:        10,
		Window:       time.Minute,
	}, nopLogger())

	msg, err := svc.ShareMessage(context.Background(), "op1", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg, "Oi!"), msg)
	assert.Contains(t, msg, "Escolha um horario: https://example.com/agenda")
}

func TestShareService_RateLimited(t *testing.T) {
	ctx := context.Background()
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, mock.Anything).Return("hello", nil)

	svc := newShare(t, setupTestDB(t), sugg, 2)

	for i := 0; i < 2; i++ {
		_, err := svc.ShareMessage(ctx, "op1", "")
		require.NoError(t, err)
	}
	_, err := svc.ShareMessage(ctx, "op1", "")
	assert.ErrorIs(t, err, ErrRateLimited)

	// limits are per operator
	_, err = svc.ShareMessage(ctx, "op2", "")
	assert.NoError(t, err)
	sugg.AssertNumberOfCalls(t, "Suggest", 3)
}

func TestShareService_Failures(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, mock.Anything).Return("", errors.New("backend down")).Once()
	sugg.On("Suggest", mock.Anything, mock.Anything).Return("   ", nil).Once()
	svc := newShare(t, db, sugg, 10)

	_, err := svc.ShareMessage(ctx, "op1", "")
	assert.ErrorIs(t, err, ErrSuggestionFailed)

	_, err = svc.ShareMessage(ctx, "op1", "")
	assert.ErrorIs(t, err, ErrSuggestionFailed)

	_, err = svc.ShareMessage(ctx, "op1", "ghost")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestShareService_TruncatesLongMessages(t *testing.T) {
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, mock.Anything).Return(strings.Repeat("á", 300), nil)

	msg, err := newShare(t, setupTestDB(t), sugg, 10).ShareMessage(context.Background(), "op1", "")
	require.NoError(t, err)
	assert.Equal(t, models.ShareMessageMaxLength, utf8.RuneCountInString(msg))
	assert.True(t, strings.HasSuffix(msg, "…"))
}
