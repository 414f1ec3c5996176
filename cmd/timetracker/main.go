package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SharXeniX/jira-timetracker-plugin/internal/api/rest"
	"github.com/SharXeniX/jira-timetracker-plugin/internal/config"
	"github.com/SharXeniX/jira-timetracker-plugin/internal/jira"
	"github.com/SharXeniX/jira-timetracker-plugin/internal/notify"
	"github.com/SharXeniX/jira-timetracker-plugin/internal/settings"
	"github.com/SharXeniX/jira-timetracker-plugin/internal/timetracker"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer logger.Sync()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Settings store
	settingsStore, err := settings.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("failed to open settings store", zap.Error(err))
	}
	defer settingsStore.Close()

	// Jira client and adapters
	jiraClient, err := jira.NewClient(cfg.JiraBaseURL, cfg.JiraUsername, cfg.JiraAPIToken, cfg.JiraBearerToken, logger)
	if err != nil {
		logger.Fatal("failed to create jira client", zap.Error(err))
	}
	worklogStore := jira.NewWorklogStore(jiraClient, logger)
	issueRepo := jira.NewIssueRepository(jiraClient, logger)
	permService := jira.NewPermissionService(jiraClient, logger)

	// Notifier
	var notifier timetracker.Notifier
	switch cfg.Notifier {
	case "slack":
		notifier = notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, logger)
	default:
		notifier = notify.NewMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPTo, logger)
	}

	// Core services
	cache := timetracker.NewReportCache()
	formatter := timetracker.ExactDurationFormatter{}
	builder := timetracker.NewReportBuilder(worklogStore, permService, formatter, cache, logger)
	mutator := timetracker.NewWorklogMutator(worklogStore, issueRepo, permService, logger)

	// Daily missing-worklog check, rebuilt from settings at each fire
	checkMinute, err := cfg.CheckMinuteOfDay()
	if err != nil {
		logger.Fatal("failed to parse check time", zap.Error(err))
	}
	scannerFactory := func(ctx context.Context) (*timetracker.GapScanner, error) {
		ps, err := settingsStore.Load("")
		if err != nil {
			return nil, err
		}
		filter, err := timetracker.CompileIssueFilter(ps.CollectorPatterns)
		if err != nil {
			return nil, err
		}
		calendar := timetracker.NewWorkdayCalendarFromCSV(ps.ExcludeDates, ps.IncludeDates)
		return timetracker.NewGapScanner(worklogStore, calendar, filter, logger), nil
	}
	checker := timetracker.NewEstimatedTimeChecker(scannerFactory, notifier, cfg.CheckUsers, checkMinute, logger)
	checker.Start()

	// REST API
	restHandler := rest.NewHandler(settingsStore, builder, mutator, worklogStore, cache, notifier, logger)
	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		restHandler.RegisterRoutes(r)
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("starting REST API server", zap.String("address", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start REST server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")

	checker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}
