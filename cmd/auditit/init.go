package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/auditit/internal/db"
	"github.com/erazemk/auditit/internal/model"
	"github.com/erazemk/auditit/internal/store"
)

func newInitCommand(flags *globalFlags) *cobra.Command {
	var adminName string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and an admin account with a random password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			log, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := os.Stat(cfg.DB.Path); err == nil {
				return fmt.Errorf("database %s already exists", cfg.DB.Path)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("checking database: %w", err)
			}

			database, password, err := initDatabase(cmd.Context(), cfg.DB.Path, adminName, log)
			if err != nil {
				return err
			}
			database.Close()

			printInitResult(cfg.DB.Path, adminName, password)
			return nil
		},
	}

	cmd.Flags().StringVarP(&adminName, "admin", "u", "Admin", "admin account name")
	return cmd
}

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			log, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			database, err := db.Open(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.Migrate(cmd.Context(), database, log); err != nil {
				return err
			}
			version, err := db.Version(cmd.Context(), database)
			if err != nil {
				return err
			}

			fmt.Printf("Database %s is at schema version %d.\n", cfg.DB.Path, version)
			return nil
		},
	}
}

// initDatabase creates a new database, applies migrations, and creates the admin user.
// On failure the half-created database file is removed.
func initDatabase(ctx context.Context, path, adminName string, log *zap.Logger) (*sqlx.DB, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	database, err := db.Open(path)
	if err != nil {
		return nil, "", err
	}
	fail := func(err error) (*sqlx.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.Migrate(ctx, database, log); err != nil {
		return fail(err)
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	if _, err := store.CreateUser(ctx, database, adminName, string(hash), model.RoleAdmin); err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, name, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Migrations applied.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Name:     %s\n", name)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
