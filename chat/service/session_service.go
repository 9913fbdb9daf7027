package service

import (
	"context"
	"time"

	"flight-tracker-chat/backend/chat/metrics"
	"flight-tracker-chat/backend/chat/models"
	"flight-tracker-chat/backend/chat/names"
	"flight-tracker-chat/backend/chat/repository"
	"flight-tracker-chat/backend/pkg/errors"
	"flight-tracker-chat/backend/pkg/logger"
	"flight-tracker-chat/backend/pkg/token"

	"github.com/google/uuid"
)

// SessionService issues and resolves anonymous session identities.
type SessionService struct {
	repo   repository.SessionRepository
	tokens *token.Service
	log    *logger.Logger
}

func NewSessionService(repo repository.SessionRepository, tokens *token.Service, log *logger.Logger) *SessionService {
	return &SessionService{repo: repo, tokens: tokens, log: log}
}

// Create mints a fresh session with a generated display name and returns
// it together with the signed token the client stores as its credential.
// Every call creates a distinct identity; there is deliberately no
// deduplication by caller.
func (s *SessionService) Create(ctx context.Context) (*models.Session, string, error) {
	session := &models.Session{
		ID:        uuid.New(),
		Name:      names.Generate(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		s.log.LogError(err, "failed to create session")
		return nil, "", errors.NewInternalServerError("SERVER_ERROR", "Could not create session")
	}

	signed, err := s.tokens.Generate(session.ID.String())
	if err != nil {
		s.log.LogError(err, "failed to sign session token", "session_id", session.ID)
		return nil, "", errors.NewInternalServerError("SERVER_ERROR", "Could not create session")
	}

	metrics.SessionsCreated.Inc()
	s.log.Info("session created", "session_id", session.ID, "session_name", session.Name)

	return session, signed, nil
}

// Resolve verifies a signed token and returns the session ID it names.
// An absent, malformed or expired token is the ordinary unauthenticated
// state and yields ok=false, never an error.
func (s *SessionService) Resolve(signedToken string) (string, bool) {
	if signedToken == "" {
		return "", false
	}

	sessionID, err := s.tokens.Validate(signedToken)
	if err != nil {
		return "", false
	}
	return sessionID, true
}
