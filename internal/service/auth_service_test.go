package service

import (
	"testing"

	"github.com/mvhoang/Solvio/config"
	"github.com/mvhoang/Solvio/internal/dto"
	"github.com/mvhoang/Solvio/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}, nextID: 1}
}

func (r *fakeUserRepo) Create(user *model.User) error {
	user.ID = r.nextID
	r.nextID++
	r.users[user.Email] = user
	return nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*model.User, error) {
	if u, ok := r.users[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByID(id uint) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func testAuthConfig() *config.Config {
	return &config.Config{Auth: config.Auth{JWTSecret: "test-secret", TokenExpiryHour: 1}}
}

func TestRegisterLoginAndValidateToken(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), testAuthConfig())

	registered, err := svc.Register(dto.RegisterRequest{Email: "a@b.com", Password: "supersecret", DisplayName: "A"})
	require.NoError(t, err)
	require.NotEmpty(t, registered.Token)

	userID, err := svc.ValidateToken(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, userID)

	loggedIn, err := svc.Login(dto.LoginRequest{Email: "a@b.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), testAuthConfig())

	_, err := svc.Register(dto.RegisterRequest{Email: "a@b.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Register(dto.RegisterRequest{Email: "a@b.com", Password: "othersecret"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), testAuthConfig())

	_, err := svc.Register(dto.RegisterRequest{Email: "a@b.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Login(dto.LoginRequest{Email: "a@b.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(dto.LoginRequest{Email: "missing@b.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), testAuthConfig())

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService(newFakeUserRepo(), testAuthConfig())
	resp, err := issuer.Register(dto.RegisterRequest{Email: "a@b.com", Password: "supersecret"})
	require.NoError(t, err)

	verifier := NewAuthService(newFakeUserRepo(), &config.Config{Auth: config.Auth{JWTSecret: "other-secret", TokenExpiryHour: 1}})
	_, err = verifier.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
