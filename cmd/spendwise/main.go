package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/spendwise/spendwise/internal/config"
	"github.com/spendwise/spendwise/internal/database"
	"github.com/spendwise/spendwise/internal/database/repository"
	"github.com/spendwise/spendwise/internal/logging"
	"github.com/spendwise/spendwise/internal/service"
	"github.com/spendwise/spendwise/internal/session"
	"github.com/spendwise/spendwise/internal/tui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "spendwise",
	Short: "Track spending, budgets and store prices from your receipts",
	Long: `SpendWise records purchases down to the line item, tracks budgets per
category over weekly, monthly or open-ended periods, and answers which
store would be cheapest for a shopping list based on your purchase
history.

Run without arguments to open the interactive dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		p := tea.NewProgram(tui.New(cmd.Context(), app.cfg, app.tracker, app.shopping), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
	SilenceUsage: true,
}

// appContext is everything a command needs: config, open database, wired
// services for the active local profile.
type appContext struct {
	cfg      config.Config
	db       *sql.DB
	tracker  *service.Tracker
	shopping *service.ShoppingService
}

func (a *appContext) Close() {
	_ = a.db.Close()
}

func bootstrap(ctx context.Context) (*appContext, error) {
	log := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.RunMigrationsWithDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := database.SeedDefaults(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed defaults: %w", err)
	}

	users := repository.NewUserRepo(db)
	user, err := users.Ensure(ctx, cfg.User.Name, cfg.User.Email)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	txRepo := repository.NewTransactionRepo(db).WithLogger(log)
	sess := session.Static(user.ID)

	tracker := &service.Tracker{
		Transactions: txRepo,
		Categories:   repository.NewCategoryRepo(db),
		Budgets:      repository.NewBudgetRepo(db),
		Mappings:     repository.NewMappingRepo(db),
		Session:      sess,
		Log:          log,
	}
	shopping := &service.ShoppingService{
		Transactions: txRepo,
		Mappings:     tracker.Mappings,
		Session:      sess,
	}

	return &appContext{cfg: cfg, db: db, tracker: tracker, shopping: shopping}, nil
}
