// seed-user creates a login for local development.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/seed-user -username=trader01 -password='S3cret!pass'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
	"bitbucket.org/mmdatafocus/tradelog_backend/workflow"
)

func main() {
	username := flag.String("username", "", "Required: login name")
	password := flag.String("password", "", "Required: password")
	migrate := flag.Bool("migrate", false, "Run AutoMigrate first")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "--username and --password are required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if *migrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	accounts := workflow.NewAccounts(repository.NewGormStore(db), workflow.NewMemorySessionStore(), config.GetLogger())
	user, err := accounts.Register(context.Background(), &models.NewUser{
		Username:        *username,
		Password:        *password,
		ConfirmPassword: *password,
	})
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			fmt.Fprintf(os.Stderr, "invalid input: %v\n", validationErr)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "failed to create user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("created user id=%d username=%s public_id=%s\n", user.ID, user.Username, user.PublicId)
}
