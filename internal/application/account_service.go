package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ymatsuda/member-api/config"
	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/internal/domain/repository"
	"github.com/ymatsuda/member-api/pkg/helpers"
	"github.com/ymatsuda/member-api/pkg/mailer"
	tpl "github.com/ymatsuda/member-api/pkg/mailer/templates"
)

// AccountService owns the profile surface and the withdrawal lifecycle.
type AccountService struct {
	Users     repository.UserRepository
	Cache     *SessionCache
	GCS       *storage.Client
	GCSBucket string
	Pub       *helpers.RabbitPublisher
	Logger    *logrus.Logger
	Cfg       *config.Config
}

func NewAccountService(
	users repository.UserRepository,
	cache *SessionCache,
	gcs *storage.Client,
	gcsBucket string,
	pub *helpers.RabbitPublisher,
	logger *logrus.Logger,
	cfg *config.Config,
) *AccountService {
	return &AccountService{
		Users:     users,
		Cache:     cache,
		GCS:       gcs,
		GCSBucket: gcsBucket,
		Pub:       pub,
		Logger:    logger,
		Cfg:       cfg,
	}
}

// Withdraw soft-deletes the account: anonymize the user row, delete every
// session and account row, all in one transaction. Re-invoking against an
// already-withdrawn user succeeds as a no-op. The confirmation email goes to
// the address captured before anonymization.
func (s *AccountService) Withdraw(ctx context.Context, userID string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	name, email := u.Name, u.Email

	withdrawn, err := s.Users.Withdraw(ctx, userID)
	if err != nil {
		return err
	}
	s.Cache.DropUser(ctx, userID)

	if !withdrawn {
		// Already withdrawn earlier; nothing left to clean up or announce.
		return nil
	}

	if s.Logger != nil {
		s.Logger.WithField("user_id", userID).Info("account withdrawn")
	}

	if s.Pub != nil && s.Cfg != nil && s.Cfg.MailSendEnabled {
		job := mailer.EmailJob{
			To:       email,
			Template: tpl.WithdrawConfirmation,
			Data:     tpl.NewWithdrawConfirmationData(s.Cfg, name, email, tpl.WithTime(time.Now())),
		}
		if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("failed to publish withdrawal email")
		}
	}
	return nil
}

// GetProfile returns the live user behind a session.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Withdrawn() {
		return nil, ErrUserNotFound
	}
	return u, nil
}

type UpdateProfileInput struct {
	Name  string
	Image string
}

// UpdateProfile applies partial profile changes. Cached sessions are dropped
// so the next request re-reads the row.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Image != "" {
		u.Image = in.Image
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.Cache.DropUser(ctx, userID)
	return u, nil
}

// UploadAvatar stores the image in GCS and points the profile at it.
func (s *AccountService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("avatar storage not configured")
	}
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, id+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}

	u.Image = url
	if err := s.Users.Update(ctx, u); err != nil {
		return "", err
	}
	s.Cache.DropUser(ctx, userID)
	return url, nil
}
