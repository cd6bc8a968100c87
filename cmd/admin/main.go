package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gims/internal/admincli"
	"github.com/dmitrijs2005/gims/internal/clock"
	"github.com/dmitrijs2005/gims/internal/logging"
	"github.com/dmitrijs2005/gims/internal/server/auth"
	"github.com/dmitrijs2005/gims/internal/server/config"
	"github.com/dmitrijs2005/gims/internal/server/mailer"
	"github.com/dmitrijs2005/gims/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gims/internal/server/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, "warn", "text")

	args := admincli.CommandArgs(os.Args[1:])
	if len(args) == 0 || args[0] == "help" {
		err := admincli.NewApp(nil, nil, os.Stdin, os.Stdout).Run(ctx, args)
		if err != nil {
			return 2
		}
		return 0
	}

	db, err := repomanager.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db init error:", err)
		return 1
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		fmt.Fprintln(os.Stderr, "migrations error:", err)
		return 1
	}

	hasher, err := auth.NewPasswordHasher(cfg.PasswordHashAlgorithm, cfg.BcryptCost)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	admin := services.NewUserAdminService(db, rm, hasher, logger)
	links := services.NewAuthService(db, rm, cfg, hasher, mailer.NewLogMailer(logger), clock.Real{}, logger)

	app := admincli.NewApp(admin, links, os.Stdin, os.Stdout)
	if err := app.Run(ctx, args); err != nil {
		if errors.Is(err, admincli.ErrUsage) {
			return 2
		}
		fmt.Fprintln(os.Stderr, "error:", admincli.Describe(err))
		return 1
	}
	return 0
}
