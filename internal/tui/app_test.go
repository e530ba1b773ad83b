package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/spendwise/spendwise/internal/config"
	"github.com/spendwise/spendwise/internal/database/repository"
	"github.com/spendwise/spendwise/internal/service"
)

func TestSettingsCursorSurvivesShrinkingSnapshot(t *testing.T) {
	t.Parallel()

	app := New(context.Background(), config.Config{}, &service.Tracker{}, nil)
	app.state = viewSettings

	cats := []repository.Category{
		{ID: "a", Name: "Groceries"},
		{ID: "b", Name: "Transport"},
		{ID: "c", Name: "Health"},
	}
	app.Update(snapshotMsg(service.Snapshot{Categories: cats}))
	app.settingsCursor = 2

	// the category under the cursor disappears with the next snapshot
	app.Update(snapshotMsg(service.Snapshot{Categories: cats[:2]}))
	require.Less(t, app.settingsCursor, len(app.snap.Categories))

	require.NotPanics(t, func() { app.Update(tea.KeyMsg{Type: tea.KeyDelete}) })
	require.NotPanics(t, func() { app.Update(tea.KeyMsg{Type: tea.KeyEnter}) })
}

func TestCategoryPickerCursorSurvivesShrinkingSnapshot(t *testing.T) {
	t.Parallel()

	app := New(context.Background(), config.Config{}, &service.Tracker{}, nil)
	app.state = viewTransactions
	app.modal = modalCategoryPicker

	cats := []repository.Category{
		{ID: "a", Name: "Groceries"},
		{ID: "b", Name: "Transport"},
	}
	tx := repository.Transaction{ID: "t1", CompanyName: "Tesco"}
	app.Update(snapshotMsg(service.Snapshot{Categories: cats, Transactions: []repository.Transaction{tx}}))
	app.categoryCursor = 2 // last picker row ([none] + 2 categories)

	app.Update(snapshotMsg(service.Snapshot{Categories: cats[:1], Transactions: []repository.Transaction{tx}}))
	require.LessOrEqual(t, app.categoryCursor, len(app.snap.Categories))

	require.NotPanics(t, func() { app.Update(tea.KeyMsg{Type: tea.KeyEnter}) })
}
