package service

import (
	"context"
	"errors"
	"time"

	"botforge/internal/auth"
	"botforge/internal/db"
	"botforge/internal/model"
	"botforge/internal/notify"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const BusyAuth = "auth"

// ErrInvalidCredentials covers both unknown emails and wrong passwords
// so responses do not reveal which one it was.
var ErrInvalidCredentials = errors.New("invalid email or password")

const resetTokenTTL = time.Hour

// UserQueries is the slice of the query layer the session service needs
type UserQueries interface {
	CreateUser(ctx context.Context, id, email, passwordHash string, meta map[string]interface{}) (db.User, error)
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	GetUserByID(ctx context.Context, id string) (db.User, error)
	UpdateUserMeta(ctx context.Context, id string, meta map[string]interface{}) error
	SetUserResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
}

// SessionService implements sign-up, sign-in, and profile management.
// Sessions are stateless JWTs; sign-out happens by discarding the token.
type SessionService struct {
	queries UserQueries
	jwt     *auth.JWTConfig
	notify  *notify.Center
	busy    *BusyTracker
	log     *zap.Logger
}

func NewSessionService(queries UserQueries, jwtCfg *auth.JWTConfig, center *notify.Center, busy *BusyTracker, log *zap.Logger) *SessionService {
	return &SessionService{
		queries: queries,
		jwt:     jwtCfg,
		notify:  center,
		busy:    busy,
		log:     log,
	}
}

// SignUp registers a user and immediately signs them in; a successful
// registration never requires a second credential round trip.
func (s *SessionService) SignUp(ctx context.Context, email, password, fullName string) (model.UserProfile, string, error) {
	s.busy.Begin(BusyAuth)
	defer s.busy.End(BusyAuth)

	hash, err := auth.HashPassword(password)
	if err != nil {
		return model.UserProfile{}, "", err
	}

	meta := map[string]interface{}{}
	if fullName != "" {
		meta["fullName"] = fullName
	}

	user, err := s.queries.CreateUser(ctx, ulid.Make().String(), email, hash, meta)
	if err != nil {
		s.log.Error("Failed to create user", zap.String("email", email), zap.Error(err))
		s.notify.Error("Sign up failed", err.Error())
		return model.UserProfile{}, "", err
	}

	return s.issueSession(user)
}

// SignIn verifies credentials and returns the profile plus a session token
func (s *SessionService) SignIn(ctx context.Context, email, password string) (model.UserProfile, string, error) {
	s.busy.Begin(BusyAuth)
	defer s.busy.End(BusyAuth)

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserProfile{}, "", ErrInvalidCredentials
		}
		return model.UserProfile{}, "", err
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return model.UserProfile{}, "", ErrInvalidCredentials
	}

	return s.issueSession(user)
}

func (s *SessionService) issueSession(user db.User) (model.UserProfile, string, error) {
	profile := profileFromUser(user)

	token, err := s.jwt.IssueToken(profile.ID, profile.Role)
	if err != nil {
		s.log.Error("Failed to issue session token", zap.String("user_id", user.ID), zap.Error(err))
		return model.UserProfile{}, "", err
	}
	return profile, token, nil
}

// Profile loads the current view of a user
func (s *SessionService) Profile(ctx context.Context, userID string) (model.UserProfile, error) {
	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return model.UserProfile{}, err
	}
	return profileFromUser(user), nil
}

// UpdateProfile merges user-editable metadata and returns the re-read
// profile, so callers always see what the database now holds.
func (s *SessionService) UpdateProfile(ctx context.Context, userID string, meta map[string]interface{}) (model.UserProfile, error) {
	s.busy.Begin(BusyAuth)
	defer s.busy.End(BusyAuth)

	// The role is server-assigned; strip any attempt to smuggle it in
	delete(meta, "role")

	if err := s.queries.UpdateUserMeta(ctx, userID, meta); err != nil {
		s.log.Error("Failed to update profile", zap.String("user_id", userID), zap.Error(err))
		s.notify.Error("Failed to update profile", err.Error())
		return model.UserProfile{}, err
	}

	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return model.UserProfile{}, err
	}

	s.notify.Success("Profile updated")
	return profileFromUser(user), nil
}

// RequestPasswordReset records a reset token for the account. Unknown
// emails succeed silently so the endpoint cannot be used to probe for
// registered addresses.
func (s *SessionService) RequestPasswordReset(ctx context.Context, email string) error {
	s.busy.Begin(BusyAuth)
	defer s.busy.End(BusyAuth)

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token, err := auth.NewSecretToken(secretTokenBytes)
	if err != nil {
		return err
	}

	if err := s.queries.SetUserResetToken(ctx, user.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		s.log.Error("Failed to store reset token", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}

	s.log.Info("Password reset requested", zap.String("user_id", user.ID))
	return nil
}

func profileFromUser(user db.User) model.UserProfile {
	profile := model.UserProfile{
		ID:    user.ID,
		Email: user.Email,
		Role:  auth.DeriveRole(user.Role, user.Meta),
	}
	if name, ok := user.Meta["fullName"].(string); ok {
		profile.FullName = name
	}
	if avatar, ok := user.Meta["avatarUrl"].(string); ok {
		profile.AvatarURL = avatar
	}
	return profile
}
