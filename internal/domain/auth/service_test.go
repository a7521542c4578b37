package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoutil "onboarding/internal/platform/crypto"
)

type fakeSession struct {
	userID  string
	expires time.Time
	revoked bool
}

type fakeReset struct {
	userID  string
	expires time.Time
	used    bool
}

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*AuthUser
	emails   map[string]string
	sessions map[string]*fakeSession
	resets   map[string]*fakeReset
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*AuthUser{},
		emails:   map[string]string{},
		sessions: map[string]*fakeSession{},
		resets:   map[string]*fakeReset{},
	}
}

func (f *fakeStore) addUser(t *testing.T, id, email, password, role string) {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	f.users[id] = &AuthUser{ID: id, TenantID: "t1", RoleID: "role-" + role, RoleName: role, Password: hash}
	f.emails[strings.ToLower(email)] = id
}

func (f *fakeStore) FindActiveUserByEmail(_ context.Context, email string) (AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.emails[strings.ToLower(email)]
	if !ok {
		return AuthUser{}, ErrUserNotFound
	}
	return *f.users[id], nil
}

func (f *fakeStore) CreateSession(_ context.Context, userID, hash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[hash] = &fakeSession{userID: userID, expires: expires}
	return nil
}

func (f *fakeStore) UpdateLastLogin(context.Context, string) error { return nil }

func (f *fakeStore) RevokeSession(_ context.Context, userID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sess, ok := f.sessions[hash]; ok && sess.userID == userID {
		sess.revoked = true
	}
	return nil
}

func (f *fakeStore) SessionValid(_ context.Context, userID, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[hash]
	return ok && sess.userID == userID && !sess.revoked && sess.expires.After(time.Now()), nil
}

func (f *fakeStore) RotateSession(_ context.Context, userID, oldHash, newHash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, oldHash)
	f.sessions[newHash] = &fakeSession{userID: userID, expires: expires}
	return nil
}

func (f *fakeStore) UpdateMFASecret(_ context.Context, userID string, secretEnc []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[userID].MFASecretEn = secretEnc
	f.users[userID].MFAEnabled = false
	return nil
}

func (f *fakeStore) GetMFASecret(_ context.Context, userID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.MFASecretEn, nil
}

func (f *fakeStore) SetMFAEnabled(_ context.Context, userID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[userID].MFAEnabled = enabled
	return nil
}

func (f *fakeStore) UserIDByEmail(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.emails[strings.ToLower(email)]
	if !ok {
		return "", ErrUserNotFound
	}
	return id, nil
}

func (f *fakeStore) CreatePasswordReset(_ context.Context, userID, tokenHash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[tokenHash] = &fakeReset{userID: userID, expires: expires}
	return nil
}

func (f *fakeStore) ConsumePasswordReset(_ context.Context, tokenHash, passwordHash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reset, ok := f.resets[tokenHash]
	if !ok || reset.used || reset.expires.Before(time.Now()) {
		return "", ErrInvalidResetToken
	}
	reset.used = true
	f.users[reset.userID].Password = passwordHash
	return reset.userID, nil
}

func (f *fakeStore) Profile(_ context.Context, tenantID, userID string) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return Profile{}, ErrUserNotFound
	}
	return Profile{UserID: user.ID, TenantID: tenantID, Role: user.RoleName, MFAEnabled: user.MFAEnabled}, nil
}

type captureMailer struct {
	to, body string
}

func (m *captureMailer) Send(_ context.Context, _, to, _, body string) error {
	m.to, m.body = to, body
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.addUser(t, "u1", "jane@example.com", "Secret123!", RoleEmployee)
	cipher, err := cryptoutil.New(strings.Repeat("ab", 32))
	require.NoError(t, err)
	return NewService(store, "test-secret", cipher), store
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "jane@example.com", "wrong", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "Secret123!", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := svc.Login(ctx, " JANE@example.com ", "Secret123!", "")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "u1", sess.User.UserID)
	assert.Equal(t, RoleEmployee, sess.User.RoleName)

	user, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.SessionID, user.SessionID)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "jane@example.com", "Secret123!", "")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, sess.User))

	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = svc.Refresh(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "jane@example.com", "Secret123!", "")
	require.NoError(t, err)
	next, err := svc.Refresh(ctx, sess.Token)
	require.NoError(t, err)
	assert.NotEqual(t, sess.User.SessionID, next.User.SessionID)

	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = svc.Authenticate(ctx, next.Token)
	assert.NoError(t, err)

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestMFAFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := UserContext{UserID: "u1", TenantID: "t1"}

	setup, err := svc.SetupMFA(ctx, user)
	require.NoError(t, err)
	assert.Contains(t, setup.OTPAuthURL, "otpauth://")

	assert.ErrorIs(t, svc.SetMFA(ctx, user, "000000", true), ErrMFAInvalid)
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.SetMFA(ctx, user, code, true))

	_, err = svc.Login(ctx, "jane@example.com", "Secret123!", "")
	assert.ErrorIs(t, err, ErrMFARequired)
	_, err = svc.Login(ctx, "jane@example.com", "Secret123!", "123")
	assert.ErrorIs(t, err, ErrMFAInvalid)
	_, err = svc.Login(ctx, "jane@example.com", "Secret123!", code)
	assert.NoError(t, err)
}

func TestMFAUnavailableWithoutKey(t *testing.T) {
	store := newFakeStore()
	cipher, err := cryptoutil.New("")
	require.NoError(t, err)
	svc := NewService(store, "s", cipher)
	_, err = svc.SetupMFA(context.Background(), UserContext{UserID: "u1"})
	assert.ErrorIs(t, err, ErrMFAUnavailable)
}

func TestPasswordReset(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mailer := &captureMailer{}
	svc.Mailer = mailer

	require.NoError(t, svc.RequestReset(ctx, "ghost@example.com"))
	assert.Empty(t, mailer.to)

	require.NoError(t, svc.RequestReset(ctx, "jane@example.com"))
	assert.Equal(t, "jane@example.com", mailer.to)
	lines := strings.Split(strings.TrimSpace(mailer.body), "\n")
	token := lines[len(lines)-1]

	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "short"), ErrWeakPassword)
	require.NoError(t, svc.ResetPassword(ctx, token, "NewSecret456!"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "NewSecret789!"), ErrInvalidResetToken)

	_, err := svc.Login(ctx, "jane@example.com", "Secret123!", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "jane@example.com", "NewSecret456!", "")
	assert.NoError(t, err)
}
