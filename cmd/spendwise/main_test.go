package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spendwise/spendwise/internal/config"
)

// setupEnv points config and database at a throwaway directory. Commands
// share package-level state, so these tests never run in parallel.
func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SPENDWISE_CONFIG", filepath.Join(dir, "config.toml"))
	t.Setenv("SPENDWISE_DATABASE_PATH", filepath.Join(dir, "spendwise.db"))
}

func TestImportPasteRecordsTransaction(t *testing.T) {
	setupEnv(t)

	rootCmd.SetIn(strings.NewReader("0.00\nBread\n1.20\nMilk\n2.50\nBag\n"))
	rootCmd.SetArgs([]string{"import", "--paste", "--store", "Tesco"})
	require.NoError(t, rootCmd.Execute())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	app, err := bootstrap(ctx)
	require.NoError(t, err)
	defer app.Close()

	snap, err := app.tracker.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 1)
	tx := snap.Transactions[0]
	require.Equal(t, "Tesco", tx.CompanyName)
	require.Len(t, tx.Products, 2)
	require.Equal(t, "Bread", tx.Products[0].Name)
	require.Equal(t, "Milk", tx.Products[1].Name)
}

func TestImportPasteRequiresStore(t *testing.T) {
	setupEnv(t)

	rootCmd.SetIn(strings.NewReader("Bread\n1.20\n"))
	rootCmd.SetArgs([]string{"import", "--paste", "--store", ""})
	require.Error(t, rootCmd.Execute())
}

func TestUserRegisterAndLogin(t *testing.T) {
	setupEnv(t)

	rootCmd.SetArgs([]string{"user", "register", "alex@example.com", "--name", "Alex", "--password", "hunter2"})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "Alex", cfg.User.Name)
	require.Equal(t, "alex@example.com", cfg.User.Email)

	t.Log("wrong password is rejected")
	rootCmd.SetArgs([]string{"user", "login", "alex@example.com", "--password", "wrong"})
	require.Error(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"user", "login", "alex@example.com", "--password", "hunter2"})
	require.NoError(t, rootCmd.Execute())
}
