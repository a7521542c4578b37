package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrMFAUnavailable     = errors.New("mfa requires an encryption key")
	ErrMFANotSetUp        = errors.New("mfa setup required")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

const minPasswordLength = 8

// Cipher protects MFA secrets at rest.
type Cipher interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store  StoreAPI
	secret string
	cipher Cipher

	Mailer     Mailer
	MailFrom   string
	Issuer     string
	SessionTTL time.Duration
	ResetTTL   time.Duration
	Now        func() time.Time
}

func NewService(store StoreAPI, secret string, cipher Cipher) *Service {
	return &Service{
		store:      store,
		secret:     secret,
		cipher:     cipher,
		MailFrom:   "no-reply@example.com",
		Issuer:     "Onboarding",
		SessionTTL: 8 * time.Hour,
		ResetTTL:   2 * time.Hour,
		Now:        time.Now,
	}
}

// Session is an issued bearer token and the user it stands for.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      UserContext `json:"-"`
}

// MFASetup is the secret a user scans into their authenticator app.
type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

func (s *Service) Login(ctx context.Context, email, password, mfaCode string) (Session, error) {
	user, err := s.store.FindActiveUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if strings.TrimSpace(mfaCode) == "" {
			return Session{}, ErrMFARequired
		}
		secret, err := s.openSecret(user.MFASecretEn)
		if err != nil || secret == "" || !totp.Validate(mfaCode, secret) {
			return Session{}, ErrMFAInvalid
		}
	}

	sess, err := s.issue(ctx, UserContext{UserID: user.ID, TenantID: user.TenantID, RoleID: user.RoleID, RoleName: user.RoleName})
	if err != nil {
		return Session{}, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "user_id", user.ID, "err", err)
	}
	return sess, nil
}

func (s *Service) issue(ctx context.Context, user UserContext) (Session, error) {
	sessionID, err := randomToken()
	if err != nil {
		return Session{}, fmt.Errorf("generate session: %w", err)
	}
	expires := s.Now().Add(s.SessionTTL)
	if err := s.store.CreateSession(ctx, user.UserID, HashToken(sessionID), expires); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	user.SessionID = sessionID
	return s.sign(user, expires)
}

func (s *Service) sign(user UserContext, expires time.Time) (Session, error) {
	token, err := GenerateToken(s.secret, Claims{
		UserID:    user.UserID,
		TenantID:  user.TenantID,
		RoleID:    user.RoleID,
		RoleName:  user.RoleName,
		SessionID: user.SessionID,
	}, expires.Sub(s.Now()))
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Authenticate turns a bearer token into the caller, rejecting tokens whose
// session was revoked.
func (s *Service) Authenticate(ctx context.Context, token string) (UserContext, error) {
	claims, err := ParseToken(s.secret, token)
	if err != nil {
		return UserContext{}, ErrSessionExpired
	}
	user := claims.User()
	if user.SessionID == "" {
		return user, nil
	}
	ok, err := s.store.SessionValid(ctx, user.UserID, HashToken(user.SessionID))
	if err != nil {
		return UserContext{}, fmt.Errorf("check session: %w", err)
	}
	if !ok {
		return UserContext{}, ErrSessionExpired
	}
	return user, nil
}

func (s *Service) Logout(ctx context.Context, user UserContext) error {
	if user.SessionID == "" {
		return nil
	}
	return s.store.RevokeSession(ctx, user.UserID, HashToken(user.SessionID))
}

// Refresh rotates the session behind token and returns a new token for it.
func (s *Service) Refresh(ctx context.Context, token string) (Session, error) {
	claims, err := ParseToken(s.secret, token)
	if err != nil || claims.SessionID == "" {
		return Session{}, ErrSessionExpired
	}
	oldHash := HashToken(claims.SessionID)
	ok, err := s.store.SessionValid(ctx, claims.UserID, oldHash)
	if err != nil {
		return Session{}, fmt.Errorf("check session: %w", err)
	}
	if !ok {
		return Session{}, ErrSessionExpired
	}

	newID, err := randomToken()
	if err != nil {
		return Session{}, fmt.Errorf("generate session: %w", err)
	}
	expires := s.Now().Add(s.SessionTTL)
	if err := s.store.RotateSession(ctx, claims.UserID, oldHash, HashToken(newID), expires); err != nil {
		return Session{}, fmt.Errorf("rotate session: %w", err)
	}
	user := claims.User()
	user.SessionID = newID
	return s.sign(user, expires)
}

func (s *Service) SetupMFA(ctx context.Context, user UserContext) (MFASetup, error) {
	if s.cipher == nil || !s.cipher.Configured() {
		return MFASetup{}, ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.UserID,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, fmt.Errorf("generate mfa secret: %w", err)
	}
	encrypted, err := s.cipher.EncryptString(key.Secret())
	if err != nil {
		return MFASetup{}, fmt.Errorf("encrypt mfa secret: %w", err)
	}
	if err := s.store.UpdateMFASecret(ctx, user.UserID, encrypted); err != nil {
		return MFASetup{}, fmt.Errorf("store mfa secret: %w", err)
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

// SetMFA turns MFA on or off after checking a current code.
func (s *Service) SetMFA(ctx context.Context, user UserContext, code string, enabled bool) error {
	if s.cipher == nil || !s.cipher.Configured() {
		return ErrMFAUnavailable
	}
	secretEnc, err := s.store.GetMFASecret(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrMFANotSetUp
		}
		return fmt.Errorf("load mfa secret: %w", err)
	}
	if len(secretEnc) == 0 {
		return ErrMFANotSetUp
	}
	secret, err := s.cipher.DecryptString(secretEnc)
	if err != nil {
		return ErrMFAInvalid
	}
	if !totp.Validate(strings.TrimSpace(code), secret) {
		return ErrMFAInvalid
	}
	return s.store.SetMFAEnabled(ctx, user.UserID, enabled)
}

// RequestReset issues a reset token and mails it. Unknown addresses succeed
// silently so callers cannot probe for accounts.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	userID, err := s.store.UserIDByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			slog.Warn("password reset lookup failed", "err", err)
		}
		return nil
	}
	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.store.CreatePasswordReset(ctx, userID, HashToken(token), s.Now().Add(s.ResetTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if s.Mailer != nil {
		body := fmt.Sprintf("Use this token to reset your password within %s:\n\n%s\n", s.ResetTTL, token)
		if err := s.Mailer.Send(ctx, s.MailFrom, email, "Password reset", body); err != nil {
			slog.Warn("password reset email failed", "user_id", userID, "err", err)
		}
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	if strings.TrimSpace(token) == "" {
		return ErrInvalidResetToken
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.store.ConsumePasswordReset(ctx, HashToken(token), hash); err != nil {
		return err
	}
	return nil
}

func (s *Service) Me(ctx context.Context, user UserContext) (Profile, error) {
	return s.store.Profile(ctx, user.TenantID, user.UserID)
}

// ValidatePassword applies the password policy used for new accounts.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func (s *Service) openSecret(enc []byte) (string, error) {
	if s.cipher != nil && s.cipher.Configured() {
		return s.cipher.DecryptString(enc)
	}
	return string(enc), nil
}

func randomToken() (string, error) {
	buff := make([]byte, 32)
	if _, err := rand.Read(buff); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buff), nil
}
