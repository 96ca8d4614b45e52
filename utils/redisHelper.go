package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultTokenHourLifespan = 24

// GetTokenLifespan reads TOKEN_HOUR_LIFESPAN (hours, default 24).
func GetTokenLifespan() time.Duration {
	lifespan, err := strconv.Atoi(strings.TrimSpace(os.Getenv("TOKEN_HOUR_LIFESPAN")))
	if err != nil || lifespan <= 0 {
		lifespan = defaultTokenHourLifespan
	}
	return time.Duration(lifespan) * time.Hour
}

// session registry keys
//
//	Token:$sessionId  -> username
//	Tokens:$username  -> set of session ids
func SessionKey(sessionId string) string {
	return "Token:" + sessionId
}

func UserSessionsKey(username string) string {
	return "Tokens:" + username
}
