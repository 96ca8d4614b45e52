package utils

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// passwordCost reads BCRYPT_COST, falling back to bcrypt.DefaultCost when
// unset or outside bcrypt's accepted range.
func passwordCost() int {
	cost, err := strconv.Atoi(strings.TrimSpace(os.Getenv("BCRYPT_COST")))
	if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), passwordCost())
}

// ComparePassword returns bcrypt.ErrMismatchedHashAndPassword on a wrong password.
func ComparePassword(hashed string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
}
