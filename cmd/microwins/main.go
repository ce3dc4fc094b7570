package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/microwins/internal/api"
	"github.com/nhle/microwins/internal/app"
	"github.com/nhle/microwins/internal/credential"
	"github.com/nhle/microwins/internal/model"
	"github.com/nhle/microwins/internal/quest"
	"github.com/nhle/microwins/internal/session"
	"github.com/nhle/microwins/internal/sidebar"
	"github.com/nhle/microwins/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "microwins: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}

	dbPath := model.DefaultDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	localStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer localStore.Close()

	sess := session.New(credential.Vault{}, localStore)
	client := api.NewClient(
		cfg.Server.BaseURL,
		sess.Token,
		time.Duration(cfg.Server.TimeoutSec)*time.Second,
	)
	sess.AttachGateway(client)

	sb := sidebar.New(client, localStore)
	controller := quest.New(
		client, sess, sb,
		time.Duration(cfg.Display.RewardMillis)*time.Millisecond,
	)

	program := tea.NewProgram(
		app.New(sess, controller, sb),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
