package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ymatsuda/member-api/config"
	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/internal/domain/repository"
	"github.com/ymatsuda/member-api/pkg/helpers"
	"github.com/ymatsuda/member-api/pkg/mailer"
	tpl "github.com/ymatsuda/member-api/pkg/mailer/templates"
)

const (
	sessionTokenBytes = 32
	verifyTokenBytes  = 32
)

// AuthService implements IdentityProvider on top of the relational schema:
// sessions, credential/OAuth accounts, and one-time tokens all live in
// Postgres so that withdrawal can revoke everything with plain deletes.
type AuthService struct {
	Users         repository.UserRepository
	Sessions      repository.SessionRepository
	Accounts      repository.AccountRepository
	Verifications repository.VerificationRepository
	OAuth         OAuthProvider
	Cache         *SessionCache
	Pub           *helpers.RabbitPublisher
	Logger        *logrus.Logger
	Cfg           *config.Config
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	accounts repository.AccountRepository,
	verifications repository.VerificationRepository,
	oauth OAuthProvider,
	cache *SessionCache,
	pub *helpers.RabbitPublisher,
	logger *logrus.Logger,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		Users:         users,
		Sessions:      sessions,
		Accounts:      accounts,
		Verifications: verifications,
		OAuth:         oauth,
		Cache:         cache,
		Pub:           pub,
		Logger:        logger,
		Cfg:           cfg,
	}
}

// Register creates the user plus its credential account and sends the
// verification email. A withdrawn user's anonymized row does not hold its
// old address, so a freed email registers cleanly as a new user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	existing, err := s.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		ID:    uuid.NewString(),
		Name:  in.Name,
		Email: in.Email,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		// A concurrent registration can slip past the lookup above; the
		// unique index reports it instead.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	acct := &entity.Account{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		AccountID:  u.ID,
		ProviderID: entity.ProviderCredential,
		Password:   hash,
	}
	if err := s.Accounts.Create(ctx, acct); err != nil {
		return nil, err
	}

	// Verification is sent on sign-up; login stays blocked until confirmed.
	if err := s.sendVerification(ctx, u, in.IP, in.UserAgent); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("failed to send verification email")
	}

	return u, nil
}

// Login validates credentials and issues a DB-backed session. Withdrawn
// users are indistinguishable from wrong credentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*entity.Session, *entity.User, error) {
	u, err := s.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, nil, err
	}
	if u == nil || u.Withdrawn() {
		return nil, nil, ErrInvalidCredentials
	}

	acct, err := s.Accounts.GetCredential(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	if acct == nil || !helpers.CompareHashAndPassword(acct.Password, in.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	if !u.EmailVerified {
		return nil, nil, ErrEmailNotVerified
	}

	sess, err := s.createSession(ctx, u, in.IP, in.UserAgent)
	if err != nil {
		return nil, nil, err
	}

	s.enqueueEmail(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: tpl.LoginNotification,
		Data: tpl.NewLoginNotificationData(s.Cfg, u.Name, u.Email,
			tpl.WithTime(time.Now()),
			tpl.WithIP(in.IP),
			tpl.WithUserAgent(in.UserAgent),
			tpl.WithGeoFromIP(ctx, tpl.IPAPIResolver{}, in.IP),
		),
	})

	return sess, u, nil
}

// GetSession resolves a cookie token to a live session and its user. Returns
// (nil, nil, nil) for missing, expired, or withdrawn-user sessions.
func (s *AuthService) GetSession(ctx context.Context, token string) (*entity.Session, *entity.User, error) {
	token = normalizeToken(token)
	if token == "" {
		return nil, nil, nil
	}

	now := time.Now()
	if sess, u, ok := s.Cache.Get(ctx, token); ok {
		if !sess.Expired(now) && !u.Withdrawn() {
			return sess, u, nil
		}
		s.Cache.Drop(ctx, token)
	}

	sess, err := s.Sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, nil
	}
	if sess.Expired(now) {
		_ = s.Sessions.DeleteByToken(ctx, token)
		return nil, nil, nil
	}

	u, err := s.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, nil, err
	}
	if u == nil || u.Withdrawn() {
		return nil, nil, nil
	}

	s.Cache.Put(ctx, sess, u)
	return sess, u, nil
}

// InvalidateSession deletes the session row and its cache entry. Unknown
// tokens are a no-op.
func (s *AuthService) InvalidateSession(ctx context.Context, token string) error {
	token = normalizeToken(token)
	if token == "" {
		return nil
	}
	s.Cache.Drop(ctx, token)
	return s.Sessions.DeleteByToken(ctx, token)
}

// SendVerificationEmail re-issues the verification token. Already-verified
// users are a no-op.
func (s *AuthService) SendVerificationEmail(ctx context.Context, userID string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil || u.Withdrawn() {
		return ErrUserNotFound
	}
	if u.EmailVerified {
		return nil
	}
	return s.sendVerification(ctx, u, "", "")
}

// ConfirmEmail consumes a verification token and marks the email verified.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	userID, err := s.consumeToken(ctx, entity.PurposeEmailVerify, token)
	if err != nil {
		return err
	}
	return s.Users.SetEmailVerified(ctx, userID)
}

// RequestPasswordReset issues a reset token when the email belongs to a live
// credential account. It always reports success so addresses cannot be
// enumerated.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil || u.Withdrawn() {
		return nil
	}
	acct, err := s.Accounts.GetCredential(ctx, u.ID)
	if err != nil {
		return err
	}
	if acct == nil {
		// OAuth-only user; nothing to reset.
		return nil
	}

	token, err := s.issueToken(ctx, entity.PurposePasswordReset, u.ID, s.Cfg.ResetTokenTTL)
	if err != nil {
		return err
	}
	link := s.Cfg.ResetPasswordURL + "?token=" + token

	s.enqueueEmail(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: tpl.ResetPassword,
		Data: tpl.NewResetPasswordData(s.Cfg, u.Name, u.Email, link,
			tpl.WithExpiresIn(s.Cfg.ResetTokenTTL),
		),
	})
	return nil
}

// ResetPassword consumes a reset token, rewrites the credential hash, and
// revokes every session so stolen cookies die with the old password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.consumeToken(ctx, entity.PurposePasswordReset, token)
	if err != nil {
		return err
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Accounts.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	if err := s.Sessions.DeleteByUserID(ctx, userID); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("failed to revoke sessions after reset")
	}
	s.Cache.DropUser(ctx, userID)
	return nil
}

// GoogleLoginURL builds the consent redirect for the social login flow.
func (s *AuthService) GoogleLoginURL(state string) string {
	return s.OAuth.GetLoginURL(state)
}

// GoogleCallback exchanges the authorization code, links or creates the
// account, and issues a session. Existing users are matched first by the
// (provider, subject) pair, then by email.
func (s *AuthService) GoogleCallback(ctx context.Context, code, ip, userAgent string) (*entity.Session, *entity.User, error) {
	info, err := s.OAuth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	acct, err := s.Accounts.GetByProvider(ctx, entity.ProviderGoogle, info.ProviderUserID)
	if err != nil {
		return nil, nil, err
	}

	var u *entity.User
	switch {
	case acct != nil:
		u, err = s.Users.GetByID(ctx, acct.UserID)
		if err != nil {
			return nil, nil, err
		}
		if u == nil || u.Withdrawn() {
			return nil, nil, ErrInvalidCredentials
		}
		acct.AccessToken = info.AccessToken
		acct.RefreshToken = info.RefreshToken
		acct.IDToken = info.IDToken
		acct.Scope = info.Scope
		exp := info.ExpiresAt
		acct.AccessTokenExpiresAt = &exp
		if err := s.Accounts.UpdateTokens(ctx, acct); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("failed to refresh oauth tokens")
		}

	default:
		u, err = s.Users.GetByEmail(ctx, info.Email)
		if err != nil {
			return nil, nil, err
		}
		if u != nil && u.Withdrawn() {
			u = nil
		}
		if u == nil {
			u = &entity.User{
				ID:            uuid.NewString(),
				Name:          info.Name,
				Email:         info.Email,
				EmailVerified: info.EmailVerified,
				Image:         info.Picture,
			}
			if err := s.Users.Create(ctx, u); err != nil {
				return nil, nil, err
			}
		}
		exp := info.ExpiresAt
		acct = &entity.Account{
			ID:                   uuid.NewString(),
			UserID:               u.ID,
			AccountID:            info.ProviderUserID,
			ProviderID:           entity.ProviderGoogle,
			AccessToken:          info.AccessToken,
			RefreshToken:         info.RefreshToken,
			IDToken:              info.IDToken,
			Scope:                info.Scope,
			AccessTokenExpiresAt: &exp,
		}
		if err := s.Accounts.Create(ctx, acct); err != nil {
			return nil, nil, err
		}
	}

	sess, err := s.createSession(ctx, u, ip, userAgent)
	if err != nil {
		return nil, nil, err
	}
	return sess, u, nil
}

func (s *AuthService) createSession(ctx context.Context, u *entity.User, ip, userAgent string) (*entity.Session, error) {
	token, err := helpers.GenToken(sessionTokenBytes)
	if err != nil {
		return nil, err
	}
	sess := &entity.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.Cfg.SessionTTL),
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrUserWithdrawn) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	s.Cache.Put(ctx, sess, u)
	return sess, nil
}

func (s *AuthService) sendVerification(ctx context.Context, u *entity.User, ip, userAgent string) error {
	token, err := s.issueToken(ctx, entity.PurposeEmailVerify, u.ID, s.Cfg.VerifyTokenTTL)
	if err != nil {
		return err
	}
	link := s.Cfg.VerifyEmailURL + "?token=" + token

	opts := []tpl.Option{tpl.WithExpiresIn(s.Cfg.VerifyTokenTTL)}
	if ip != "" {
		opts = append(opts, tpl.WithIP(ip))
	}
	if userAgent != "" {
		opts = append(opts, tpl.WithUserAgent(userAgent))
	}
	s.enqueueEmail(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: tpl.VerifyEmail,
		Data:     tpl.NewVerifyEmailData(s.Cfg, u.Name, u.Email, link, opts...),
	})
	return nil
}

// issueToken writes a one-time token, replacing any outstanding one for the
// same purpose and user.
func (s *AuthService) issueToken(ctx context.Context, purpose, userID string, ttl time.Duration) (string, error) {
	token, err := helpers.GenToken(verifyTokenBytes)
	if err != nil {
		return "", err
	}
	v := &entity.Verification{
		ID:         uuid.NewString(),
		Identifier: entity.VerificationIdentifier(purpose, userID),
		Value:      token,
		ExpiresAt:  time.Now().Add(ttl),
	}
	if err := s.Verifications.Upsert(ctx, v); err != nil {
		return "", err
	}
	return token, nil
}

// consumeToken validates purpose and expiry, deletes the row, and returns
// the user id encoded in the identifier.
func (s *AuthService) consumeToken(ctx context.Context, purpose, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	v, err := s.Verifications.GetByValue(ctx, token)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", ErrInvalidToken
	}
	prefix := purpose + ":"
	if !strings.HasPrefix(v.Identifier, prefix) {
		return "", ErrInvalidToken
	}
	if v.ExpiresAt.Before(time.Now()) {
		_ = s.Verifications.DeleteByID(ctx, v.ID)
		return "", ErrInvalidToken
	}
	if err := s.Verifications.DeleteByID(ctx, v.ID); err != nil {
		return "", err
	}
	return strings.TrimPrefix(v.Identifier, prefix), nil
}

func (s *AuthService) enqueueEmail(ctx context.Context, job mailer.EmailJob) {
	if s.Pub == nil || s.Cfg == nil || !s.Cfg.MailSendEnabled {
		return
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("to", job.To).Warn("failed to publish email job")
	}
}

// normalizeToken strips a cookie signature suffix if present; only the part
// before the first dot identifies the session.
func normalizeToken(token string) string {
	if i := strings.IndexByte(token, '.'); i >= 0 {
		return token[:i]
	}
	return token
}

var _ IdentityProvider = (*AuthService)(nil)
