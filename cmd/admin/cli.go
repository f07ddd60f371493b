package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/eneogroup/elimu-app-backend/internal/config"
	"github.com/eneogroup/elimu-app-backend/internal/database"
	"github.com/eneogroup/elimu-app-backend/internal/model"
	"github.com/eneogroup/elimu-app-backend/internal/repository"
)

var errEmptyPassword = errors.New("password must not be empty")

type schoolStore interface {
	Create(ctx context.Context, s *model.School) error
	GetByCode(ctx context.Context, code string) (model.School, error)
}

type principalStore interface {
	Create(ctx context.Context, p *model.Principal) error
	GetByUsername(ctx context.Context, schoolID uint64, username string) (model.Principal, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	SetActive(ctx context.Context, id uint64, active bool) error
}

type tokenStore interface {
	RevokeAllForPrincipal(ctx context.Context, principalID uint64) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// stores bundles what the provisioning commands need.
type stores struct {
	Schools    schoolStore
	Principals principalStore
	Tokens     tokenStore
	BcryptCost int
}

// cli holds the side effects of the admin commands so tests can swap them.
type cli struct {
	out io.Writer

	open         func(ctx context.Context) (*stores, func() error, error)
	migrate      func(ctx context.Context, down bool) (string, error)
	readPassword func() ([]byte, error)
}

func newCLI(out io.Writer) *cli {
	return &cli{
		out:          out,
		open:         openStores,
		migrate:      runMigrations,
		readPassword: func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) },
	}
}

func openStores(ctx context.Context) (*stores, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return &stores{
		Schools:    repository.NewSchoolRepo(db),
		Principals: repository.NewPrincipalRepo(db),
		Tokens:     repository.NewTokenRepo(db),
		BcryptCost: cfg.BcryptCost,
	}, db.Close, nil
}

func runMigrations(ctx context.Context, down bool) (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	db, err := database.OpenDSN(ctx, database.DSN(cfg.DB, true))
	if err != nil {
		return "", err
	}
	defer db.Close()

	if down {
		if err := database.Rollback(db.DB, cfg.DB.Name); err != nil {
			return "", err
		}
		return "rolled back one migration", nil
	}
	v, err := database.Migrate(db.DB, cfg.DB.Name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("schema at version %d", v), nil
}

// withStores opens the stores for the duration of fn.
func (a *cli) withStores(cmd *cobra.Command, fn func(ctx context.Context, s *stores) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, closeFn, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, s)
}

// promptPassword asks for a password twice without echoing it.
func (a *cli) promptPassword() (string, error) {
	fmt.Fprint(a.out, "Enter password: ")
	first, err := a.readPassword()
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", errEmptyPassword
	}
	fmt.Fprint(a.out, "Repeat password: ")
	second, err := a.readPassword()
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
