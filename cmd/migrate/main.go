// Command migrate creates the schema, seeds the administering organization
// and hashes any organization password still stored in plain text.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"

	"coalition-api/config"
	"coalition-api/models"
	"coalition-api/repository"
	"coalition-api/utils"
)

func main() {
	var (
		skipSchema bool
		adminName  string
	)
	flag.BoolVar(&skipSchema, "skip-schema", false, "do not run AutoMigrate")
	flag.StringVar(&adminName, "admin-name", "Coalition Administration", "name of the seeded admin organization")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		config.Log.Fatalf("Failed to load configuration: %v", err)
	}
	if f := config.InitLogging(cfg); f != nil {
		defer f.Close()
	}
	log := config.Log

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if !skipSchema {
		if err := config.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		log.Info("Schema migrated")
	}

	ctx := context.Background()
	orgs := repository.NewOrganizationRepository(db)

	if err := seedAdmin(ctx, orgs, adminName); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	all, err := orgs.List(ctx, repository.OrganizationFilter{})
	if err != nil {
		log.Fatalf("Failed to fetch organizations: %v", err)
	}
	for i := range all {
		org := &all[i]
		// Skip if already hashed (bcrypt hashes start with $2)
		if org.Password == "" || strings.HasPrefix(org.Password, "$2") {
			continue
		}
		hash, err := utils.HashPassword(org.Password)
		if err != nil {
			log.WithError(err).WithField("email", org.Email).Error("Failed to hash password")
			continue
		}
		org.Password = hash
		if err := orgs.Update(ctx, org); err != nil {
			log.WithError(err).WithField("email", org.Email).Error("Failed to update password")
			continue
		}
		log.WithField("email", org.Email).Info("Password hashed")
	}

	log.Info("Migration completed!")
}

// seedAdmin creates the ADMIN organization from ADMIN_EMAIL and
// ADMIN_PASSWORD when it does not exist yet.
func seedAdmin(ctx context.Context, orgs repository.OrganizationRepository, name string) error {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		config.Log.Info("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}
	if !utils.ValidateEmail(email) {
		return errors.New("ADMIN_EMAIL is not a valid address")
	}
	if ok, msg := utils.ValidatePassword(password); !ok {
		return errors.New(msg)
	}

	if _, err := orgs.FindByEmail(ctx, email); err == nil {
		config.Log.WithField("email", email).Info("Admin organization already exists")
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.Organization{
		Name:     name,
		Email:    email,
		Password: hash,
		Status:   models.OrganizationActive,
		Role:     models.RoleAdmin,
		Tags:     []string{},
	}
	if err := orgs.Create(ctx, admin); err != nil {
		return err
	}
	config.Log.WithField("email", email).Info("Admin organization created")
	return nil
}
