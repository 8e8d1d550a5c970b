package application

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymatsuda/member-api/config"
	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/internal/domain/repository"
	"github.com/ymatsuda/member-api/pkg/helpers"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionTTL:       7 * 24 * time.Hour,
		VerifyTokenTTL:   24 * time.Hour,
		ResetTokenTTL:    time.Hour,
		VerifyEmailURL:   "http://localhost:3050/verify-email",
		ResetPasswordURL: "http://localhost:3050/reset-password",
		MailSendEnabled:  false,
	}
}

func newTestAuthService(users *mockUserRepo, sessions *mockSessionRepo, accounts *mockAccountRepo, verifications *mockVerificationRepo, oauth *mockOAuthProvider) *AuthService {
	if users == nil {
		users = &mockUserRepo{}
	}
	if sessions == nil {
		sessions = &mockSessionRepo{}
	}
	if accounts == nil {
		accounts = &mockAccountRepo{}
	}
	if verifications == nil {
		verifications = &mockVerificationRepo{}
	}
	if oauth == nil {
		oauth = &mockOAuthProvider{}
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewAuthService(users, sessions, accounts, verifications, oauth, nil, nil, logger, testConfig())
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := helpers.HashPassword(password)
	require.NoError(t, err)
	return h
}

func TestRegister_CreatesUserAndCredentialAccount(t *testing.T) {
	var createdUser *entity.User
	var createdAccount *entity.Account
	var issuedToken *entity.Verification

	users := &mockUserRepo{
		createFn: func(_ context.Context, u *entity.User) error {
			createdUser = u
			return nil
		},
	}
	accounts := &mockAccountRepo{
		createFn: func(_ context.Context, a *entity.Account) error {
			createdAccount = a
			return nil
		},
	}
	verifications := &mockVerificationRepo{
		upsertFn: func(_ context.Context, v *entity.Verification) error {
			issuedToken = v
			return nil
		},
	}

	svc := newTestAuthService(users, nil, accounts, verifications, nil)
	u, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Taro",
		Email:    "taro@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	require.NotNil(t, u)

	require.NotNil(t, createdUser)
	assert.Equal(t, "taro@example.com", createdUser.Email)
	assert.False(t, createdUser.EmailVerified)

	require.NotNil(t, createdAccount)
	assert.Equal(t, entity.ProviderCredential, createdAccount.ProviderID)
	assert.Equal(t, createdUser.ID, createdAccount.UserID)
	assert.NotEmpty(t, createdAccount.Password)
	assert.NotEqual(t, "password123", createdAccount.Password)

	require.NotNil(t, issuedToken)
	assert.Equal(t, entity.VerificationIdentifier(entity.PurposeEmailVerify, createdUser.ID), issuedToken.Identifier)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: "u1", Email: email}, nil
		},
	}
	svc := newTestAuthService(users, nil, nil, nil, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "x", Email: "taken@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

// A concurrent registration can pass the lookup and lose on the unique
// index; the constraint error must still surface as ErrEmailTaken.
func TestRegister_ConcurrentDuplicateHitsUniqueIndex(t *testing.T) {
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, _ string) (*entity.User, error) {
			return nil, nil
		},
		createFn: func(_ context.Context, _ *entity.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := newTestAuthService(users, nil, nil, nil, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "x", Email: "raced@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

// Withdrawal anonymizes the user row, so the freed email must register
// again as a brand-new user.
func TestRegister_AfterWithdrawalFreesEmail(t *testing.T) {
	byID := map[string]*entity.User{}

	users := &mockUserRepo{
		createFn: func(_ context.Context, u *entity.User) error {
			for _, existing := range byID {
				if existing.Email == u.Email {
					return repository.ErrDuplicateEmail
				}
			}
			cp := *u
			byID[u.ID] = &cp
			return nil
		},
		getByIDFn: func(_ context.Context, id string) (*entity.User, error) {
			u, ok := byID[id]
			if !ok {
				return nil, nil
			}
			cp := *u
			return &cp, nil
		},
		getByEmailFn: func(_ context.Context, email string) (*entity.User, error) {
			for _, u := range byID {
				if u.Email == email {
					cp := *u
					return &cp, nil
				}
			}
			return nil, nil
		},
		withdrawFn: func(_ context.Context, id string) (bool, error) {
			u, ok := byID[id]
			if !ok || u.Withdrawn() {
				return false, nil
			}
			now := time.Now()
			u.Name = entity.WithdrawnName
			u.Email = entity.AnonymizedEmail(id)
			u.Image = ""
			u.DeletedAt = &now
			return true, nil
		},
	}

	authSvc := newTestAuthService(users, nil, nil, nil, nil)
	acctSvc := NewAccountService(users, nil, nil, "", nil, authSvc.Logger, testConfig())

	first, err := authSvc.Register(context.Background(), RegisterInput{Name: "Taro", Email: "taro@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, acctSvc.Withdraw(context.Background(), first.ID))

	second, err := authSvc.Register(context.Background(), RegisterInput{Name: "Taro", Email: "taro@example.com", Password: "password456"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// The old row stays behind, anonymized.
	old, err := users.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.True(t, old.Withdrawn())
	assert.Equal(t, entity.AnonymizedEmail(first.ID), old.Email)
}

func TestLogin_Success(t *testing.T) {
	hash := mustHash(t, "password123")
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: "u1", Email: email, EmailVerified: true}, nil
		},
	}
	accounts := &mockAccountRepo{
		getCredentialFn: func(_ context.Context, userID string) (*entity.Account, error) {
			return &entity.Account{UserID: userID, ProviderID: entity.ProviderCredential, Password: hash}, nil
		},
	}
	var created *entity.Session
	sessions := &mockSessionRepo{
		createFn: func(_ context.Context, s *entity.Session) error {
			created = s
			return nil
		},
	}

	svc := newTestAuthService(users, sessions, accounts, nil, nil)
	sess, u, err := svc.Login(context.Background(), LoginInput{Email: "taro@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotNil(t, u)
	require.NotNil(t, created)
	assert.Equal(t, "u1", created.UserID)
	assert.NotEmpty(t, created.Token)
	assert.True(t, created.ExpiresAt.After(time.Now()))
}

func TestLogin_WrongPassword(t *testing.T) {
	hash := mustHash(t, "password123")
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: "u1", Email: email, EmailVerified: true}, nil
		},
	}
	accounts := &mockAccountRepo{
		getCredentialFn: func(_ context.Context, userID string) (*entity.Account, error) {
			return &entity.Account{UserID: userID, Password: hash}, nil
		},
	}

	svc := newTestAuthService(users, nil, accounts, nil, nil)
	_, _, err := svc.Login(context.Background(), LoginInput{Email: "taro@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestAuthService(nil, nil, nil, nil, nil)
	_, _, err := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_WithdrawnUserLooksLikeWrongCredentials(t *testing.T) {
	deleted := time.Now().Add(-time.Hour)
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: "u1", Email: email, EmailVerified: true, DeletedAt: &deleted}, nil
		},
	}
	svc := newTestAuthService(users, nil, nil, nil, nil)

	_, _, err := svc.Login(context.Background(), LoginInput{Email: "gone@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	hash := mustHash(t, "password123")
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: "u1", Email: email, EmailVerified: false}, nil
		},
	}
	accounts := &mockAccountRepo{
		getCredentialFn: func(_ context.Context, userID string) (*entity.Account, error) {
			return &entity.Account{UserID: userID, Password: hash}, nil
		},
	}

	svc := newTestAuthService(users, nil, accounts, nil, nil)
	_, _, err := svc.Login(context.Background(), LoginInput{Email: "taro@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestLogin_WithdrawalRaceRejectedAtInsert(t *testing.T) {
	hash := mustHash(t, "password123")
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: "u1", Email: email, EmailVerified: true}, nil
		},
	}
	accounts := &mockAccountRepo{
		getCredentialFn: func(_ context.Context, userID string) (*entity.Account, error) {
			return &entity.Account{UserID: userID, Password: hash}, nil
		},
	}
	sessions := &mockSessionRepo{
		createFn: func(_ context.Context, _ *entity.Session) error {
			// Withdrawal committed between the credential check and the insert.
			return repository.ErrUserWithdrawn
		},
	}

	svc := newTestAuthService(users, sessions, accounts, nil, nil)
	_, _, err := svc.Login(context.Background(), LoginInput{Email: "taro@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetSession_StripsSignatureSuffix(t *testing.T) {
	var lookedUp string
	sessions := &mockSessionRepo{
		getByTokenFn: func(_ context.Context, token string) (*entity.Session, error) {
			lookedUp = token
			return &entity.Session{ID: "s1", UserID: "u1", Token: token, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	users := &mockUserRepo{
		getByIDFn: func(_ context.Context, id string) (*entity.User, error) {
			return &entity.User{ID: id, EmailVerified: true}, nil
		},
	}

	svc := newTestAuthService(users, sessions, nil, nil, nil)
	sess, u, err := svc.GetSession(context.Background(), "abc123.signature-part")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotNil(t, u)
	assert.Equal(t, "abc123", lookedUp)
}

func TestGetSession_ExpiredSessionIsDeleted(t *testing.T) {
	deletedToken := ""
	sessions := &mockSessionRepo{
		getByTokenFn: func(_ context.Context, token string) (*entity.Session, error) {
			return &entity.Session{ID: "s1", UserID: "u1", Token: token, ExpiresAt: time.Now().Add(-time.Minute)}, nil
		},
		deleteByTokenFn: func(_ context.Context, token string) error {
			deletedToken = token
			return nil
		},
	}

	svc := newTestAuthService(nil, sessions, nil, nil, nil)
	sess, u, err := svc.GetSession(context.Background(), "stale-token")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, u)
	assert.Equal(t, "stale-token", deletedToken)
}

func TestGetSession_WithdrawnUserYieldsNoSession(t *testing.T) {
	deleted := time.Now().Add(-time.Minute)
	sessions := &mockSessionRepo{
		getByTokenFn: func(_ context.Context, token string) (*entity.Session, error) {
			return &entity.Session{ID: "s1", UserID: "u1", Token: token, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	users := &mockUserRepo{
		getByIDFn: func(_ context.Context, id string) (*entity.User, error) {
			return &entity.User{ID: id, DeletedAt: &deleted}, nil
		},
	}

	svc := newTestAuthService(users, sessions, nil, nil, nil)
	sess, u, err := svc.GetSession(context.Background(), "still-in-cookie")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, u)
}

func TestGetSession_EmptyToken(t *testing.T) {
	svc := newTestAuthService(nil, nil, nil, nil, nil)
	sess, u, err := svc.GetSession(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, u)
}

func TestConfirmEmail_ConsumesTokenOnce(t *testing.T) {
	verifiedID := ""
	deletedID := ""
	verifications := &mockVerificationRepo{
		getByValueFn: func(_ context.Context, value string) (*entity.Verification, error) {
			if value != "good-token" || deletedID != "" {
				return nil, nil
			}
			return &entity.Verification{
				ID:         "v1",
				Identifier: entity.VerificationIdentifier(entity.PurposeEmailVerify, "u1"),
				Value:      value,
				ExpiresAt:  time.Now().Add(time.Hour),
			}, nil
		},
		deleteByIDFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	users := &mockUserRepo{
		setEmailVerifiedFn: func(_ context.Context, id string) error {
			verifiedID = id
			return nil
		},
	}

	svc := newTestAuthService(users, nil, nil, verifications, nil)
	require.NoError(t, svc.ConfirmEmail(context.Background(), "good-token"))
	assert.Equal(t, "u1", verifiedID)
	assert.Equal(t, "v1", deletedID)

	// Second use of the same token fails.
	assert.ErrorIs(t, svc.ConfirmEmail(context.Background(), "good-token"), ErrInvalidToken)
}

func TestConfirmEmail_RejectsResetToken(t *testing.T) {
	verifications := &mockVerificationRepo{
		getByValueFn: func(_ context.Context, value string) (*entity.Verification, error) {
			return &entity.Verification{
				ID:         "v1",
				Identifier: entity.VerificationIdentifier(entity.PurposePasswordReset, "u1"),
				Value:      value,
				ExpiresAt:  time.Now().Add(time.Hour),
			}, nil
		},
	}
	svc := newTestAuthService(nil, nil, nil, verifications, nil)
	assert.ErrorIs(t, svc.ConfirmEmail(context.Background(), "reset-token"), ErrInvalidToken)
}

func TestConfirmEmail_ExpiredToken(t *testing.T) {
	verifications := &mockVerificationRepo{
		getByValueFn: func(_ context.Context, value string) (*entity.Verification, error) {
			return &entity.Verification{
				ID:         "v1",
				Identifier: entity.VerificationIdentifier(entity.PurposeEmailVerify, "u1"),
				Value:      value,
				ExpiresAt:  time.Now().Add(-time.Minute),
			}, nil
		},
	}
	svc := newTestAuthService(nil, nil, nil, verifications, nil)
	assert.ErrorIs(t, svc.ConfirmEmail(context.Background(), "old-token"), ErrInvalidToken)
}

func TestRequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	issued := false
	verifications := &mockVerificationRepo{
		upsertFn: func(_ context.Context, _ *entity.Verification) error {
			issued = true
			return nil
		},
	}
	svc := newTestAuthService(nil, nil, nil, verifications, nil)

	err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, issued, "no token should be issued for unknown addresses")
}

func TestRequestPasswordReset_OAuthOnlyUserIsSilent(t *testing.T) {
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: "u1", Email: email, EmailVerified: true}, nil
		},
	}
	issued := false
	verifications := &mockVerificationRepo{
		upsertFn: func(_ context.Context, _ *entity.Verification) error {
			issued = true
			return nil
		},
	}
	svc := newTestAuthService(users, nil, nil, verifications, nil)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "social@example.com"))
	assert.False(t, issued)
}

func TestResetPassword_RevokesAllSessions(t *testing.T) {
	newHash := ""
	revokedUser := ""
	verifications := &mockVerificationRepo{
		getByValueFn: func(_ context.Context, value string) (*entity.Verification, error) {
			return &entity.Verification{
				ID:         "v1",
				Identifier: entity.VerificationIdentifier(entity.PurposePasswordReset, "u1"),
				Value:      value,
				ExpiresAt:  time.Now().Add(time.Hour),
			}, nil
		},
	}
	accounts := &mockAccountRepo{
		updatePasswordFn: func(_ context.Context, userID, passwordHash string) error {
			newHash = passwordHash
			return nil
		},
	}
	sessions := &mockSessionRepo{
		deleteByUserIDFn: func(_ context.Context, userID string) error {
			revokedUser = userID
			return nil
		},
	}

	svc := newTestAuthService(nil, sessions, accounts, verifications, nil)
	require.NoError(t, svc.ResetPassword(context.Background(), "reset-token", "new-password-1"))
	assert.True(t, helpers.CompareHashAndPassword(newHash, "new-password-1"))
	assert.Equal(t, "u1", revokedUser)
}

func TestSendVerificationEmail_VerifiedUserIsNoOp(t *testing.T) {
	users := &mockUserRepo{
		getByIDFn: func(_ context.Context, id string) (*entity.User, error) {
			return &entity.User{ID: id, EmailVerified: true}, nil
		},
	}
	issued := false
	verifications := &mockVerificationRepo{
		upsertFn: func(_ context.Context, _ *entity.Verification) error {
			issued = true
			return nil
		},
	}

	svc := newTestAuthService(users, nil, nil, verifications, nil)
	require.NoError(t, svc.SendVerificationEmail(context.Background(), "u1"))
	assert.False(t, issued)
}

func TestGoogleCallback_CreatesUserOnFirstLogin(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "google-sub-1",
				Email:          "new@example.com",
				EmailVerified:  true,
				Name:           "New User",
				AccessToken:    "at",
				ExpiresAt:      time.Now().Add(time.Hour),
			}, nil
		},
	}
	var createdUser *entity.User
	users := &mockUserRepo{
		createFn: func(_ context.Context, u *entity.User) error {
			createdUser = u
			return nil
		},
	}
	var createdAccount *entity.Account
	accounts := &mockAccountRepo{
		createFn: func(_ context.Context, a *entity.Account) error {
			createdAccount = a
			return nil
		},
	}

	svc := newTestAuthService(users, nil, accounts, nil, oauth)
	sess, u, err := svc.GoogleCallback(context.Background(), "auth-code", "1.2.3.4", "ua")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotNil(t, u)

	require.NotNil(t, createdUser)
	assert.True(t, createdUser.EmailVerified)
	require.NotNil(t, createdAccount)
	assert.Equal(t, entity.ProviderGoogle, createdAccount.ProviderID)
	assert.Equal(t, "google-sub-1", createdAccount.AccountID)
}

func TestGoogleCallback_LinksExistingEmail(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{ProviderUserID: "google-sub-2", Email: "taro@example.com", EmailVerified: true, Name: "Taro"}, nil
		},
	}
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: "u1", Email: email, EmailVerified: true}, nil
		},
		createFn: func(_ context.Context, _ *entity.User) error {
			t.Fatal("should link the existing user, not create a new one")
			return nil
		},
	}
	var linked *entity.Account
	accounts := &mockAccountRepo{
		createFn: func(_ context.Context, a *entity.Account) error {
			linked = a
			return nil
		},
	}

	svc := newTestAuthService(users, nil, accounts, nil, oauth)
	_, u, err := svc.GoogleCallback(context.Background(), "auth-code", "", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	require.NotNil(t, linked)
	assert.Equal(t, "u1", linked.UserID)
}
