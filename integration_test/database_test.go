//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgtc "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

// startPostgres starts a PostgreSQL container and returns it along with its connection string.
func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := pgtc.Run(ctx,
		"postgres:17-bookworm",
		pgtc.WithDatabase("lead_outreach"),
		pgtc.WithUsername("postgres"),
		pgtc.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return pgContainer, "", fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
	}
	return pgContainer, dsn, nil
}

func truncateTables(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec("TRUNCATE TABLE contacts, users").Error
}

// seedContacts inserts contacts directly, bypassing the repository.
func seedContacts(ctx context.Context, db *gorm.DB, contacts ...*model.Contact) error {
	for _, c := range contacts {
		if err := db.WithContext(ctx).Create(c).Error; err != nil {
			return fmt.Errorf("failed to seed contact %s: %w", c.ID, err)
		}
	}
	return nil
}

// loadContact reads a contact back for verification.
func loadContact(ctx context.Context, db *gorm.DB, id string) (*model.Contact, error) {
	var c model.Contact
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
