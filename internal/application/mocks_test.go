package application

import (
	"context"

	"github.com/ymatsuda/member-api/internal/domain/entity"
)

type mockUserRepo struct {
	createFn           func(ctx context.Context, u *entity.User) error
	getByIDFn          func(ctx context.Context, id string) (*entity.User, error)
	getByEmailFn       func(ctx context.Context, email string) (*entity.User, error)
	updateFn           func(ctx context.Context, u *entity.User) error
	setEmailVerifiedFn func(ctx context.Context, id string) error
	withdrawFn         func(ctx context.Context, id string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *entity.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Update(ctx context.Context, u *entity.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) SetEmailVerified(ctx context.Context, id string) error {
	if m.setEmailVerifiedFn != nil {
		return m.setEmailVerifiedFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) Withdraw(ctx context.Context, id string) (bool, error) {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, id)
	}
	return true, nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, s *entity.Session) error
	getByTokenFn     func(ctx context.Context, token string) (*entity.Session, error)
	deleteByTokenFn  func(ctx context.Context, token string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, s *entity.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*entity.Session, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	if m.deleteByTokenFn != nil {
		return m.deleteByTokenFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type mockAccountRepo struct {
	createFn         func(ctx context.Context, a *entity.Account) error
	getByProviderFn  func(ctx context.Context, providerID, accountID string) (*entity.Account, error)
	getCredentialFn  func(ctx context.Context, userID string) (*entity.Account, error)
	updatePasswordFn func(ctx context.Context, userID, passwordHash string) error
	updateTokensFn   func(ctx context.Context, a *entity.Account) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockAccountRepo) Create(ctx context.Context, a *entity.Account) error {
	if m.createFn != nil {
		return m.createFn(ctx, a)
	}
	return nil
}

func (m *mockAccountRepo) GetByProvider(ctx context.Context, providerID, accountID string) (*entity.Account, error) {
	if m.getByProviderFn != nil {
		return m.getByProviderFn(ctx, providerID, accountID)
	}
	return nil, nil
}

func (m *mockAccountRepo) GetCredential(ctx context.Context, userID string) (*entity.Account, error) {
	if m.getCredentialFn != nil {
		return m.getCredentialFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockAccountRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, userID, passwordHash)
	}
	return nil
}

func (m *mockAccountRepo) UpdateTokens(ctx context.Context, a *entity.Account) error {
	if m.updateTokensFn != nil {
		return m.updateTokensFn(ctx, a)
	}
	return nil
}

func (m *mockAccountRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type mockVerificationRepo struct {
	upsertFn        func(ctx context.Context, v *entity.Verification) error
	getByValueFn    func(ctx context.Context, value string) (*entity.Verification, error)
	deleteByIDFn    func(ctx context.Context, id string) error
	deleteExpiredFn func(ctx context.Context) (int64, error)
}

func (m *mockVerificationRepo) Upsert(ctx context.Context, v *entity.Verification) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, v)
	}
	return nil
}

func (m *mockVerificationRepo) GetByValue(ctx context.Context, value string) (*entity.Verification, error) {
	if m.getByValueFn != nil {
		return m.getByValueFn(ctx, value)
	}
	return nil, nil
}

func (m *mockVerificationRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockVerificationRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

type mockPostRepo struct {
	createFn     func(ctx context.Context, p *entity.Post) error
	getByIDFn    func(ctx context.Context, id int64) (*entity.Post, error)
	listByUserFn func(ctx context.Context, userID string, limit, offset int) ([]*entity.Post, error)
	updateFn     func(ctx context.Context, p *entity.Post) error
	deleteFn     func(ctx context.Context, id int64) error
}

func (m *mockPostRepo) Create(ctx context.Context, p *entity.Post) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockPostRepo) GetByID(ctx context.Context, id int64) (*entity.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPostRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Post, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockPostRepo) Update(ctx context.Context, p *entity.Post) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockPostRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}
