package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/spoonjoy/spoonjoy/internal/config"
	"github.com/spoonjoy/spoonjoy/internal/db"
	"github.com/spoonjoy/spoonjoy/internal/http/api/app"
	"github.com/spoonjoy/spoonjoy/internal/oauth"
	"github.com/spoonjoy/spoonjoy/internal/parser"
	"github.com/spoonjoy/spoonjoy/internal/ratelimit"
	"github.com/spoonjoy/spoonjoy/internal/storage"
)

// main runs the server entrypoint and exits on unrecoverable errors.
func main() {
	if errRun := run(context.Background(), os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("server failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, opens the database, and starts the server.
func run(ctx context.Context, args []string) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("spoonjoy", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 8090, "server port")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	if errValidate := validatePort(*port); errValidate != nil {
		return errValidate
	}

	appCfg, errLoad := config.LoadFromEnv()
	if errLoad != nil {
		return errLoad
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}
	configPath := appCfg.ConfigPath

	dsn, errDSN := config.LoadDatabaseDSN(configPath)
	if errDSN != nil {
		return errDSN
	}
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	sessionCfg, errSession := config.LoadSessionConfig(configPath)
	if errSession != nil {
		return errSession
	}

	svc := app.Services{
		Limiter: ratelimit.NewManager(func() ratelimit.SettingsConfig {
			return ratelimit.LoadSettingsConfig(conn)
		}, nil, nil),
	}

	if oauthCfg, errOAuth := config.LoadOAuthConfig(configPath); errOAuth == nil && len(oauthCfg.Providers) > 0 {
		svc.OAuth = oauth.NewService(oauthCfg)
	} else {
		log.Info("oauth providers not configured, social login disabled")
	}

	if storageCfg, errStorage := config.LoadStorageConfig(configPath); errStorage == nil && storageCfg.Endpoint != "" {
		photos, errPhotos := storage.New(ctx, storageCfg)
		if errPhotos != nil {
			return errPhotos
		}
		svc.Photos = photos
	} else {
		log.Info("object storage not configured, photo uploads disabled")
	}

	if parserCfg, errParser := config.LoadParserConfig(configPath); errParser == nil && parserCfg.URL != "" {
		svc.Parser = parser.NewClient(parserCfg.URL, parserCfg.APIKey)
	} else {
		log.Info("ingredient parser not configured")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	app.RegisterAppRoutes(r, conn, sessionCfg, svc)

	addr := fmt.Sprintf(":%d", *port)
	log.WithField("addr", addr).Info("spoonjoy listening")
	return r.Run(addr)
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
