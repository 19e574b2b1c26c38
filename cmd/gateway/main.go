package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	api "github.com/mind-engage/learning-site/internal/api/http"
	auth "github.com/mind-engage/learning-site/internal/auth/middleware"
	"github.com/mind-engage/learning-site/internal/config"
	"github.com/mind-engage/learning-site/internal/course"
	"github.com/mind-engage/learning-site/internal/db"
	"github.com/mind-engage/learning-site/internal/grading"
	"github.com/mind-engage/learning-site/internal/logger"
	storage "github.com/mind-engage/learning-site/internal/storage"
	syncx "github.com/mind-engage/learning-site/internal/sync"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file read before the environment")
	addr := pflag.String("addr", "", "listen address, overrides HTTP_ADDR")
	hashPassword := pflag.String("hash-password", "", "print the bcrypt hash of a password for ADMIN_PASS_HASH and exit")
	pflag.Parse()

	if *hashPassword != "" {
		h, err := auth.HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Fprintln(os.Stdout, h)
		return
	}

	cfg := config.Load(*envFile)
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		lg.Fatal("db open failed", "driver", cfg.DBDriver, "err", err)
	}
	defer dbh.Close()

	users := auth.NewUserStore(dbh)
	if err := users.SeedAdmin(ctx, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		lg.Fatal("seed admin", "user", cfg.AdminUser, "err", err)
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		lg.Fatal("blob store", "path", cfg.BlobBasePath, "err", err)
	}

	events := syncx.NewEventRepo(cfg.SiteID)
	store := course.NewSQLStore(dbh, cfg.DBDriver, events)
	svc := course.NewService(store,
		course.WithGrader(grading.NewDefaultGrader()),
		course.WithBlobs(bs),
		course.WithLogger(lg.With("component", "course")),
	)

	router := api.NewRouter(api.Deps{
		Courses:            svc,
		Auth:               auth.NewAuthService(cfg.AuthHMACSecret, cfg.AuthTokenTTL),
		Users:              users,
		DB:                 dbh,
		Blobs:              bs,
		Events:             events,
		Log:                lg,
		EnableRegistration: cfg.EnableRegistration,
		CORSOrigins:        cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	lg.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("http server", "err", err)
	}
}
