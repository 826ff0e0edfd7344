// Command timeline opens one project in the terminal: progress, time
// tracking, milestones and the deadline reminder.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"freelance/tracker/internal/client"
	"freelance/tracker/internal/logger"
	"freelance/tracker/internal/timeline"
	"freelance/tracker/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "timeline:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load(".env")

	apiURL := flag.String("api", envOr("TIMELINE_API_URL", "http://localhost:8080"), "project API base URL")
	token := flag.String("token", os.Getenv("TIMELINE_TOKEN"), "bearer token")
	email := flag.String("email", os.Getenv("TIMELINE_EMAIL"), "login email when no token is given")
	password := flag.String("password", os.Getenv("TIMELINE_PASSWORD"), "login password when no token is given")
	projectID := flag.String("project", os.Getenv("TIMELINE_PROJECT"), "project id")
	remind := flag.Bool("remind", false, "enable the deadline reminder")
	days := flag.Int("days", timeline.DefaultReminderDays, "reminder days before the deadline")
	logFile := flag.String("log", envOr("TIMELINE_LOG", "timeline.log"), "log file")
	flag.Parse()

	if *projectID == "" {
		return fmt.Errorf("-project is required")
	}

	zapLogger, err := logger.New(logger.Config{Level: "debug", Encoding: "json", OutputPath: *logFile})
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	api := client.New(*apiURL, client.WithToken(*token))
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if api.Token() == "" {
		if *email == "" || *password == "" {
			return fmt.Errorf("either -token or -email and -password are required")
		}
		if err := api.Login(ctx, *email, *password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	detail, err := api.GetProject(ctx, *projectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	snap := detail.Snapshot()
	snap.Reminder = timeline.Reminder{Enabled: *remind, Days: *days}

	events := tui.NewEventQueue(128)
	tl := timeline.New(snap, api,
		timeline.WithLogger(zapLogger),
		timeline.WithSubscriber(events.Push),
	)
	defer tl.Close()

	zapLogger.Info("timeline opened", zap.String("project_id", snap.ProjectID))
	model := tui.New(tl, events, tui.Options{Title: detail.Project.Title, Logger: zapLogger})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
