package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fawrybook/auth-service/internal/audit"
	"github.com/fawrybook/auth-service/internal/events"
	"github.com/fawrybook/auth-service/internal/hash"
	"github.com/fawrybook/auth-service/internal/logging"
	"github.com/fawrybook/auth-service/internal/models"
	"github.com/fawrybook/auth-service/internal/repo"
	"github.com/fawrybook/auth-service/internal/tokens"
)

var (
	// ErrInvalidInput covers blank or out-of-band credentials, rejected
	// before any store access.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is returned both for an unknown username and
	// for a wrong password, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrMalformedToken is a logout-time decode failure.
	ErrMalformedToken = errors.New("malformed token")
)

var phoneRe = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
}

type RevocationLedger interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token string, now time.Time, expiresAt int64) (repo.RevocationResult, error)
}

type AuthService struct {
	Users  UserDirectory
	Ledger RevocationLedger
	Codec  *tokens.Codec
	Events events.Publisher
	Audit  audit.Recorder
	Now    func() time.Time
}

func NewAuthService(users UserDirectory, ledger RevocationLedger, codec *tokens.Codec, pub events.Publisher, rec audit.Recorder) *AuthService {
	return &AuthService{
		Users:  users,
		Ledger: ledger,
		Codec:  codec,
		Events: pub,
		Audit:  rec,
		Now:    time.Now,
	}
}

// Register creates a user with the default role set and returns a token
// for the new identity. Both duplicate checks run before hashing or
// persisting anything; the insert's unique constraints close the
// remaining race.
func (s *AuthService) Register(ctx context.Context, username, password, phone string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := validateRegistration(username, password, phone); err != nil {
		l.Warn("register_rejected", "reason", err)
		return "", err
	}

	if _, err := s.Users.FindByUsername(ctx, username); err == nil {
		s.record(ctx, audit.ActionRegister, username, audit.OutcomeFailure, "username taken")
		return "", repo.ErrUsernameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		l.Error("register_failed", "error", err)
		return "", err
	}

	if _, err := s.Users.FindByPhone(ctx, phone); err == nil {
		s.record(ctx, audit.ActionRegister, username, audit.OutcomeFailure, "phone taken")
		return "", repo.ErrPhoneTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		l.Error("register_failed", "error", err)
		return "", err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash the password", "error", err)
		return "", err
	}

	user := models.User{
		Username:     username,
		Phone:        phone,
		PasswordHash: pwHash,
	}
	user.SetRoles(models.DefaultRole)

	if err := s.Users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUsernameTaken) || errors.Is(err, repo.ErrPhoneTaken) {
			s.record(ctx, audit.ActionRegister, username, audit.OutcomeFailure, err.Error())
			return "", err
		}
		l.Error("register_failed", "error", err)
		return "", err
	}

	token, err := s.Codec.Issue(user.Username, user.ID, user.RoleSet(), s.Now())
	if err != nil {
		l.Error("register_failed", "reason", "cannot issue token", "error", err)
		return "", err
	}

	s.publish(ctx, events.Event{Type: events.TypeUserRegistered, Username: user.Username, UserID: user.ID, At: s.Now()})
	s.record(ctx, audit.ActionRegister, username, audit.OutcomeSuccess, "")
	l.Info("register_successful", "user_id", user.ID)

	return token, nil
}

// Login verifies credentials and issues a fresh token. Unknown user and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("%w: username and password cannot be empty", ErrInvalidInput)
	}

	user, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.record(ctx, audit.ActionLogin, username, audit.OutcomeFailure, "unknown user")
			return "", ErrInvalidCredentials
		}
		l.Error("login_failed", "error", err)
		return "", err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		s.record(ctx, audit.ActionLogin, username, audit.OutcomeFailure, "wrong password")
		return "", ErrInvalidCredentials
	}

	token, err := s.Codec.Issue(user.Username, user.ID, user.RoleSet(), s.Now())
	if err != nil {
		l.Error("login_failed", "reason", "cannot issue token", "error", err)
		return "", err
	}

	s.publish(ctx, events.Event{Type: events.TypeUserLoggedIn, Username: user.Username, UserID: user.ID, At: s.Now()})
	s.record(ctx, audit.ActionLogin, username, audit.OutcomeSuccess, "")
	l.Info("login_successful", "user_id", user.ID)

	return token, nil
}

// Logout records the token in the revocation ledger. The token must
// decode, so the ledger only ever holds strings this service signed.
func (s *AuthService) Logout(ctx context.Context, token string) (repo.RevocationResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	claims, err := s.Codec.Decode(token)
	if err != nil {
		return repo.AlreadyRevoked, ErrMalformedToken
	}

	var expiresAt int64
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time.Unix()
	}

	res, err := s.Ledger.Revoke(ctx, token, s.Now(), expiresAt)
	if err != nil {
		l.Error("logout_failed", "error", err)
		return res, err
	}
	if res == repo.AlreadyRevoked {
		return res, nil
	}

	s.publish(ctx, events.Event{Type: events.TypeUserLoggedOut, Username: claims.Subject, UserID: claims.UserID, At: s.Now()})
	s.record(ctx, audit.ActionLogout, claims.Subject, audit.OutcomeSuccess, "")
	l.Info("logout_successful", "user_id", claims.UserID)

	return res, nil
}

func validateRegistration(username, password, phone string) error {
	username = strings.TrimSpace(username)
	switch {
	case username == "" || strings.TrimSpace(password) == "":
		return fmt.Errorf("%w: username and password cannot be empty", ErrInvalidInput)
	case len(username) < 3 || len(username) > 20:
		return fmt.Errorf("%w: username must be between 3 and 20 characters", ErrInvalidInput)
	case len(password) < 6 || len(password) > 255:
		return fmt.Errorf("%w: password must be between 6 and 255 characters", ErrInvalidInput)
	case !phoneRe.MatchString(phone):
		return fmt.Errorf("%w: invalid phone number format", ErrInvalidInput)
	}
	return nil
}

// publish and record are best-effort: a broker or index outage is logged
// and the request proceeds.
func (s *AuthService) publish(ctx context.Context, e events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", e.Type, "error", err)
	}
}

func (s *AuthService) record(ctx context.Context, action, username, outcome, reason string) {
	if s.Audit == nil {
		return
	}
	e := audit.Entry{Action: action, Username: username, Outcome: outcome, Reason: reason, At: s.Now()}
	if err := s.Audit.Record(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("audit_record_failed", "action", action, "error", err)
	}
}
