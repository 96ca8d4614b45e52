package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Accounts registers users and issues session tokens. A token is an HS256
// JWT whose jti is registered in the SessionStore.
type Accounts struct {
	store    repository.Store
	sessions SessionStore
	logger   *logrus.Logger
	lifespan time.Duration
}

func NewAccounts(store repository.Store, sessions SessionStore, logger *logrus.Logger) *Accounts {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Accounts{
		store:    store,
		sessions: sessions,
		logger:   logger,
		lifespan: utils.GetTokenLifespan(),
	}
}

func (a *Accounts) Register(ctx context.Context, input *models.NewUser) (*models.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	user, err := input.User()
	if err != nil {
		return nil, err
	}
	err = a.store.Transaction(ctx, func(tx repository.Tx) error {
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *Accounts) Login(ctx context.Context, input *models.LoginInput) (*models.LoginInfo, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var user *models.User
	err := a.store.View(ctx, func(tx repository.Tx) error {
		var err error
		user, err = tx.Users().FindByUsername(ctx, input.Username)
		return err
	})
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active() {
		return nil, ErrUserDisabled
	}

	sessionId := uuid.NewString()
	token, err := utils.JwtGenerate(user.ID, sessionId, a.lifespan)
	if err != nil {
		return nil, err
	}
	if err := a.sessions.Create(ctx, sessionId, user.Username, a.lifespan); err != nil {
		config.LogError(a.logger, moduleName, "Login", "register session", logrus.Fields{"user_id": user.ID}, err)
		return nil, err
	}

	return &models.LoginInfo{
		Token:     token,
		Username:  user.Username,
		PublicId:  user.PublicId,
		ExpiresAt: time.Now().Add(a.lifespan).UTC(),
	}, nil
}

func (a *Accounts) Logout(ctx context.Context, sessionId string, username string) error {
	if sessionId == "" {
		return ErrUnauthorized
	}
	return a.sessions.Delete(ctx, sessionId, username)
}

// Authenticate resolves a token to an active user and its session id.
func (a *Accounts) Authenticate(ctx context.Context, token string) (*models.User, string, error) {
	claims, err := utils.ParseClaims(token)
	if err != nil {
		return nil, "", ErrUnauthorized
	}
	username, ok, err := a.sessions.Lookup(ctx, claims.Id)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrUnauthorized
	}

	var user *models.User
	err = a.store.View(ctx, func(tx repository.Tx) error {
		var err error
		user, err = tx.Users().FindById(ctx, claims.ID)
		return err
	})
	if errors.Is(err, models.ErrNotFound) {
		return nil, "", ErrUnauthorized
	}
	if err != nil {
		return nil, "", err
	}
	if user.Username != username || !user.Active() {
		return nil, "", ErrUnauthorized
	}
	return user, claims.Id, nil
}

func (a *Accounts) Me(ctx context.Context, userId int) (*models.User, error) {
	var user *models.User
	err := a.store.View(ctx, func(tx repository.Tx) error {
		var err error
		user, err = tx.Users().FindById(ctx, userId)
		return err
	})
	return user, err
}
