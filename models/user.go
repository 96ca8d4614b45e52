package models

import (
	"html"
	"strings"
	"time"
	"unicode"

	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/google/uuid"
)

// User owns ledger rows; its ID is the owner_id of every lot, record and batch.
type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	PublicId  string    `gorm:"size:36;not null;uniqueIndex" json:"public_id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (user *User) Active() bool {
	return user.IsActive == nil || *user.IsActive
}

type NewUser struct {
	Username        string `json:"user_name" validate:"required,min=5,max=100"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

func (input *NewUser) Validate() error {
	input.Username = html.EscapeString(strings.TrimSpace(input.Username))
	if err := validateInput(input); err != nil {
		return err
	}
	return validatePasswordStrength(input.Password)
}

// User hashes the password and returns the row to insert.
func (input *NewUser) User() (*User, error) {
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	return &User{
		PublicId: uuid.NewString(),
		Username: input.Username,
		Password: string(hashed),
		IsActive: utils.NewTrue(),
	}, nil
}

func validatePasswordStrength(password string) error {
	var hasDigit, hasLower, hasUpper, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	switch {
	case !hasDigit:
		return NewValidationError("password", "must include a number")
	case !hasLower:
		return NewValidationError("password", "must include a lowercase letter")
	case !hasUpper:
		return NewValidationError("password", "must include an uppercase letter")
	case !hasSymbol:
		return NewValidationError("password", "must include a symbol")
	}
	return nil
}

type LoginInput struct {
	Username string `json:"user_name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (input *LoginInput) Validate() error {
	input.Username = html.EscapeString(strings.TrimSpace(input.Username))
	return validateInput(input)
}

type LoginInfo struct {
	Token     string    `json:"token"`
	Username  string    `json:"user_name"`
	PublicId  string    `json:"public_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
