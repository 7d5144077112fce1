// Command seed loads the development directory: departments, the
// Monthly Financials report type and one user per role.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/reportdesk/internal/config"
	"github.com/garyjia/reportdesk/internal/container"
	"github.com/garyjia/reportdesk/internal/infrastructure/persistence/seed"
	httpapi "github.com/garyjia/reportdesk/internal/interfaces/http"
	"github.com/garyjia/reportdesk/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	tokens := flag.Bool("tokens", false, "print a bearer token for each seeded user")
	ttl := flag.Duration("ttl", 24*time.Hour, "lifetime of printed tokens")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
		Service:    "reportdesk-seed",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	containerCfg := cfg.ToContainerConfig()

	bundle, err := container.ProvideDatabase(ctx, &containerCfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer bundle.DB.Close()

	ids, err := seed.New(bundle.DB, logger).Run(ctx)
	if err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	logger.Info("Seed complete", zap.Int("users", len(ids)))

	if !*tokens {
		return
	}

	repos, err := container.ProvideRepositories(bundle.DB, logger)
	if err != nil {
		logger.Fatal("Failed to create repositories", zap.Error(err))
	}
	auth := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, repos.Directory, container.NewLoggerAdapter(logger))

	emails := make([]string, 0, len(ids))
	for email := range ids {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	for _, email := range emails {
		token, err := auth.Issue(ids[email], *ttl)
		if err != nil {
			logger.Fatal("Failed to issue token", zap.String("email", email), zap.Error(err))
		}
		fmt.Printf("%-24s %s\n", email, token)
	}
}
