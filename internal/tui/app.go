package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/spendwise/spendwise/internal/analytics"
	"github.com/spendwise/spendwise/internal/catalog"
	"github.com/spendwise/spendwise/internal/config"
	"github.com/spendwise/spendwise/internal/ledger"
	"github.com/spendwise/spendwise/internal/receipt"
	"github.com/spendwise/spendwise/internal/service"
)

// App ties together views over a single tracker snapshot.
type App struct {
	ctx      context.Context
	cfg      config.Config
	tracker  *service.Tracker
	shopping *service.ShoppingService

	state appState
	snap  service.Snapshot
	modal modalState

	txCursor       int
	budgetCursor   int
	settingsCursor int
	categoryCursor int

	budgetKeys  []ledger.Key
	budgetFrame ledger.Frame

	inputBuffer       string
	editingCategoryID string
	importPath        string
	shoppingList      string
	visitedOnly       bool
	lastQuote         *catalog.StoreQuote

	status     string
	currency   string
	dateFormat string
}

type appState string

const (
	viewDashboard    appState = "dashboard"
	viewTransactions appState = "transactions"
	viewBudgets      appState = "budgets"
	viewShopping     appState = "shopping"
	viewImport       appState = "import"
	viewSettings     appState = "settings"
)

type modalState string

const (
	modalNone           modalState = ""
	modalCategoryPicker modalState = "categoryPicker"
	modalNewCategory    modalState = "newCategory"
	modalEditCategory   modalState = "editCategory"
	modalSetBudget      modalState = "setBudget"
)

func New(ctx context.Context, cfg config.Config, tracker *service.Tracker, shopping *service.ShoppingService) *App {
	return &App{
		ctx:         ctx,
		cfg:         cfg,
		tracker:     tracker,
		shopping:    shopping,
		budgetFrame: ledger.FrameMonth,
		currency:    cfg.UI.CurrencySymbol,
		dateFormat:  cfg.UI.DateFormat,
	}
}

func (a *App) Init() tea.Cmd {
	return a.refresh()
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		snap, err := a.tracker.Refresh(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg(snap)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		switch a.state {
		case viewImport:
			return a.handleImportKey(m)
		case viewShopping:
			return a.handleShoppingKey(m)
		case viewSettings:
			return a.handleSettingsKey(m)
		}
		switch m.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "d":
			a.state = viewDashboard
		case "t":
			a.state = viewTransactions
		case "b":
			a.state = viewBudgets
		case "s":
			a.state = viewShopping
			a.status = ""
		case "i":
			a.state = viewImport
			a.status = ""
		case "p":
			a.state = viewSettings
			a.status = ""
		case "up", "k":
			if a.state == viewTransactions && a.txCursor > 0 {
				a.txCursor--
			}
			if a.state == viewBudgets && a.budgetCursor > 0 {
				a.budgetCursor--
			}
		case "down", "j":
			if a.state == viewTransactions && a.txCursor < len(a.snap.Transactions)-1 {
				a.txCursor++
			}
			if a.state == viewBudgets && a.budgetCursor < len(a.budgetKeys)-1 {
				a.budgetCursor++
			}
		case "w":
			if a.state == viewBudgets {
				a.budgetFrame = nextFrame(a.budgetFrame)
				a.rebuildBudgetKeys()
			}
		case "n":
			if a.state == viewBudgets {
				a.modal = modalSetBudget
				a.inputBuffer = ""
			}
		case "c":
			if a.state == viewTransactions && len(a.snap.Transactions) > 0 {
				a.modal = modalCategoryPicker
				a.categoryCursor = 0
			}
		case "backspace", "delete":
			if a.state == viewTransactions && len(a.snap.Transactions) > 0 {
				id := a.snap.Transactions[a.txCursor].ID
				return a, a.deleteTransactionCmd(id)
			}
			if a.state == viewBudgets && len(a.budgetKeys) > 0 {
				return a, a.deleteBudgetCmd(a.budgetKeys[a.budgetCursor])
			}
		}
	case snapshotMsg:
		a.snap = service.Snapshot(m)
		if a.txCursor >= len(a.snap.Transactions) {
			a.txCursor = 0
		}
		if a.settingsCursor >= len(a.snap.Categories) {
			a.settingsCursor = 0
		}
		if a.categoryCursor > len(a.snap.Categories) { // picker has a [none] row
			a.categoryCursor = 0
		}
		a.rebuildBudgetKeys()
	case statusMsg:
		a.status = string(m)
	case errMsg:
		a.status = "error: " + m.Error()
	case quoteMsg:
		q := catalog.StoreQuote(m)
		a.lastQuote = &q
		a.status = ""
	}
	return a, nil
}

func (a *App) rebuildBudgetKeys() {
	if a.snap.Budgets == nil {
		a.budgetKeys = nil
		return
	}
	window := a.snap.Budgets.FilterForWindow(a.budgetFrame, a.now())
	a.budgetKeys = a.budgetKeys[:0]
	for _, k := range a.snap.Budgets.Keys() {
		if _, ok := window[k]; ok {
			a.budgetKeys = append(a.budgetKeys, k)
		}
	}
	if a.budgetCursor >= len(a.budgetKeys) {
		a.budgetCursor = 0
	}
}

func (a *App) now() time.Time {
	if a.tracker.Now != nil {
		return a.tracker.Now()
	}
	return time.Now().UTC()
}

// commands

func (a *App) deleteTransactionCmd(id string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			if err := a.tracker.DeleteTransaction(a.ctx, id); err != nil {
				return errMsg{err}
			}
			return statusMsg("transaction deleted")
		},
		a.refresh(),
	)
}

func (a *App) setCategoryCmd(txID string, categoryID *string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			if err := a.tracker.SetTransactionCategory(a.ctx, txID, categoryID); err != nil {
				return errMsg{err}
			}
			return statusMsg("category updated")
		},
		a.refresh(),
	)
}

func (a *App) setBudgetCmd(input string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			key, details, err := a.parseBudgetInput(input)
			if err != nil {
				return errMsg{err}
			}
			if err := a.tracker.SetBudget(a.ctx, key, details); err != nil {
				return errMsg{err}
			}
			return statusMsg("budget saved")
		},
		a.refresh(),
	)
}

func (a *App) deleteBudgetCmd(key ledger.Key) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			if err := a.tracker.DeleteBudget(a.ctx, key); err != nil {
				return errMsg{err}
			}
			return statusMsg("budget removed")
		},
		a.refresh(),
	)
}

func (a *App) createCategoryCmd(name string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			if _, err := a.tracker.AddCategory(a.ctx, strings.TrimSpace(name)); err != nil {
				return errMsg{err}
			}
			return statusMsg("category added")
		},
		a.refresh(),
	)
}

func (a *App) renameCategoryCmd(id, name string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			if err := a.tracker.RenameCategory(a.ctx, id, strings.TrimSpace(name)); err != nil {
				return errMsg{err}
			}
			return statusMsg("category renamed")
		},
		a.refresh(),
	)
}

func (a *App) deleteCategoryCmd(id string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			if err := a.tracker.DeleteCategory(a.ctx, id); err != nil {
				return errMsg{err}
			}
			return statusMsg("category removed")
		},
		a.refresh(),
	)
}

func (a *App) importCmd(path string) tea.Cmd {
	abs := path
	if !filepath.IsAbs(path) {
		if p, err := filepath.Abs(path); err == nil {
			abs = p
		}
	}
	a.status = "importing..."
	return tea.Sequence(
		func() tea.Msg {
			data, err := os.ReadFile(abs)
			if err != nil {
				return errMsg{fmt.Errorf("read %s: %w", abs, err)}
			}
			company, items := receipt.ParseScan(string(data))
			if company == "" || len(items) == 0 {
				return errMsg{fmt.Errorf("%s: no store name or line items found", filepath.Base(abs))}
			}
			in := service.NewTransaction{CompanyName: company, Date: a.now()}
			for _, it := range items {
				in.Products = append(in.Products, service.NewProduct{Name: it.Name, Price: it.Price})
			}
			if _, err := a.tracker.AddTransaction(a.ctx, in); err != nil {
				return errMsg{err}
			}
			return statusMsg(fmt.Sprintf("imported %d items from %s", len(items), company))
		},
		a.refresh(),
	)
}

func (a *App) cheapestStoreCmd(list string) tea.Cmd {
	items := splitList(list)
	if len(items) == 0 {
		return func() tea.Msg { return errMsg{fmt.Errorf("enter a comma-separated shopping list")} }
	}
	a.status = "comparing stores..."
	return func() tea.Msg {
		quote, err := a.shopping.CheapestStore(a.ctx, items, a.visitedOnly)
		if err != nil {
			return errMsg{err}
		}
		return quoteMsg(quote)
	}
}

// key handling

func (a *App) handleImportKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	}
	switch m.Type {
	case tea.KeyEsc:
		a.state = viewDashboard
		a.status = ""
	case tea.KeyEnter:
		path := strings.TrimSpace(a.importPath)
		if path == "" {
			a.status = "enter a receipt file path"
			return a, nil
		}
		return a, a.importCmd(path)
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(a.importPath) > 0 {
			a.importPath = a.importPath[:len(a.importPath)-1]
		}
	case tea.KeySpace:
		a.importPath += " "
	case tea.KeyRunes:
		a.importPath += string(m.Runes)
	}
	return a, nil
}

func (a *App) handleShoppingKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "ctrl+v":
		a.visitedOnly = !a.visitedOnly
		return a, nil
	}
	switch m.Type {
	case tea.KeyEsc:
		a.state = viewDashboard
		a.status = ""
	case tea.KeyEnter:
		return a, a.cheapestStoreCmd(a.shoppingList)
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(a.shoppingList) > 0 {
			a.shoppingList = a.shoppingList[:len(a.shoppingList)-1]
		}
	case tea.KeySpace:
		a.shoppingList += " "
	case tea.KeyRunes:
		a.shoppingList += string(m.Runes)
	}
	return a, nil
}

func (a *App) handleSettingsKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "esc", "d":
		a.state = viewDashboard
		a.status = ""
		return a, nil
	case "up", "k":
		if a.settingsCursor > 0 {
			a.settingsCursor--
		}
	case "down", "j":
		if a.settingsCursor < len(a.snap.Categories)-1 {
			a.settingsCursor++
		}
	case "n":
		a.modal = modalNewCategory
		a.inputBuffer = ""
		return a, nil
	case "enter":
		if len(a.snap.Categories) == 0 {
			a.status = "no categories to rename"
			return a, nil
		}
		c := a.snap.Categories[a.settingsCursor]
		a.modal = modalEditCategory
		a.editingCategoryID = c.ID
		a.inputBuffer = c.Name
		return a, nil
	case "backspace", "delete":
		if len(a.snap.Categories) == 0 {
			return a, nil
		}
		return a, a.deleteCategoryCmd(a.snap.Categories[a.settingsCursor].ID)
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case modalCategoryPicker:
		switch m.String() {
		case "esc":
			a.modal = modalNone
		case "up", "k":
			if a.categoryCursor > 0 {
				a.categoryCursor--
			}
		case "down", "j":
			if a.categoryCursor < len(a.snap.Categories) { // +1 for [none]
				a.categoryCursor++
			}
		case "enter":
			a.modal = modalNone
			if len(a.snap.Transactions) == 0 {
				return a, nil
			}
			tx := a.snap.Transactions[a.txCursor]
			if a.categoryCursor == 0 {
				return a, a.setCategoryCmd(tx.ID, nil)
			}
			idx := a.categoryCursor - 1
			if idx >= len(a.snap.Categories) {
				return a, nil
			}
			catID := a.snap.Categories[idx].ID
			return a, a.setCategoryCmd(tx.ID, &catID)
		}
	case modalNewCategory, modalEditCategory, modalSetBudget:
		switch m.Type {
		case tea.KeyEsc:
			a.modal = modalNone
			a.inputBuffer = ""
		case tea.KeyEnter:
			text := strings.TrimSpace(a.inputBuffer)
			if text == "" {
				a.status = "enter a value"
				return a, nil
			}
			mode := a.modal
			a.modal = modalNone
			a.inputBuffer = ""
			switch mode {
			case modalNewCategory:
				return a, a.createCategoryCmd(text)
			case modalEditCategory:
				return a, a.renameCategoryCmd(a.editingCategoryID, text)
			case modalSetBudget:
				return a, a.setBudgetCmd(text)
			}
		case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
			if len(a.inputBuffer) > 0 {
				a.inputBuffer = a.inputBuffer[:len(a.inputBuffer)-1]
			}
		case tea.KeySpace:
			a.inputBuffer += " "
		case tea.KeyRunes:
			a.inputBuffer += string(m.Runes)
		}
	}
	return a, nil
}

// parseBudgetInput reads "<category name or 'total'> <limit> [frame]", e.g.
// "Groceries 250 month" or "total 1200". The frame defaults to the one on
// screen; the date range spans the frame's natural period from today.
func (a *App) parseBudgetInput(input string) (ledger.Key, ledger.Details, error) {
	fields := strings.Fields(input)
	if len(fields) < 2 {
		return ledger.Key{}, ledger.Details{}, fmt.Errorf("expected '<category> <limit> [frame]'")
	}

	frame := a.budgetFrame
	if f := ledger.Frame(fields[len(fields)-1]); ledger.ValidFrame(f) {
		frame = f
		fields = fields[:len(fields)-1]
	}
	if len(fields) < 2 {
		return ledger.Key{}, ledger.Details{}, fmt.Errorf("expected '<category> <limit> [frame]'")
	}

	limit, err := decimal.NewFromString(fields[len(fields)-1])
	if err != nil {
		return ledger.Key{}, ledger.Details{}, fmt.Errorf("limit %q: %w", fields[len(fields)-1], err)
	}
	name := strings.Join(fields[:len(fields)-1], " ")

	key := ledger.Total()
	if !strings.EqualFold(name, "total") {
		found := false
		for _, c := range a.snap.Categories {
			if strings.EqualFold(c.Name, name) {
				key = ledger.ForCategory(c.ID)
				found = true
				break
			}
		}
		if !found {
			return ledger.Key{}, ledger.Details{}, fmt.Errorf("unknown category %q", name)
		}
	}

	start := a.now()
	var end time.Time
	switch frame {
	case ledger.FrameWeek:
		end = start.AddDate(0, 0, 7)
	case ledger.FrameMonth:
		end = start.AddDate(0, 1, 0)
	default:
		end = start.AddDate(1, 0, 0)
	}
	return key, ledger.Details{Limit: limit, Frame: frame, Start: start, End: end}, nil
}

// messages
type snapshotMsg service.Snapshot

type statusMsg string

type errMsg struct{ error }

type quoteMsg catalog.StoreQuote

// styles
var titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

func (a *App) View() string {
	var body string
	switch a.state {
	case viewTransactions:
		body = a.renderTransactions()
	case viewBudgets:
		body = a.renderBudgets()
	case viewShopping:
		body = a.renderShopping()
	case viewImport:
		body = a.renderImport()
	case viewSettings:
		body = a.renderSettings()
	default:
		body = a.renderDashboard()
	}
	if a.modal != modalNone {
		body += "\n\n" + a.renderModal()
	}
	return body
}

func (a *App) renderDashboard() string {
	now := a.now()
	title := titleStyle.Render("SpendWise - " + now.Format("January 2006"))

	thisMonth := analytics.FilterByWindow(a.snap.Transactions, analytics.ThisMonth(), now)
	body := fmt.Sprintf("Spent this month: %s%s\nAll time: %s%s  Transactions: %d",
		a.currency, analytics.Total(thisMonth).StringFixed(2),
		a.currency, a.snap.TotalSpent.StringFixed(2), len(a.snap.Transactions))

	delta := analytics.MonthOverMonthDelta(a.snap.Transactions, now)
	if delta.HasPrior {
		body += fmt.Sprintf("\nvs last month: %+.1f%%", delta.PercentChange)
	}

	body += "\nTop categories this month:"
	for _, cs := range analytics.TopCategories(thisMonth, 5) {
		body += fmt.Sprintf("\n- %-24s %s%s", cs.Category, a.currency, cs.Amount.StringFixed(2))
	}

	if a.snap.Budgets != nil {
		if key, d, ok := a.snap.Budgets.ClosestToLimit(a.snap.SpentByKey); ok {
			pct := a.snap.Budgets.SpentPercentage(key, a.snap.SpentByKey)
			body += fmt.Sprintf("\nClosest to limit: %s (%.0f%% of %s%s)",
				a.snap.CategoryName(key.CategoryID), pct*100, a.currency, d.Limit.StringFixed(2))
		}
	}

	body += "\n[t] Transactions  [b] Budgets  [s] Shopping  [i] Import receipt  [p] Settings  [q] Quit"
	if a.status != "" {
		body += "\n" + a.status
	}
	return fmt.Sprintf("%s\n%s", title, body)
}

func (a *App) renderTransactions() string {
	title := titleStyle.Render("Transactions")
	out := title + "\n"
	for i, t := range a.snap.Transactions {
		marker := " "
		if i == a.txCursor {
			marker = "▶"
		}
		cat := "[uncategorized]"
		if t.CategoryName != nil && *t.CategoryName != "" {
			cat = *t.CategoryName
		}
		out += fmt.Sprintf("%s %s  %-30s  %s%8s  %s (%d items)\n",
			marker, t.PurchaseDate.Format(a.dateFormat), t.CompanyName,
			a.currency, t.TotalPrice().StringFixed(2), cat, len(t.Products))
	}
	out += "[c] Pick category  [del] Delete  [d] Dashboard  [b] Budgets  [q] Quit"
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderBudgets() string {
	title := titleStyle.Render(fmt.Sprintf("Budgets (%s view)", a.budgetFrame))
	out := title + "\n"
	if len(a.budgetKeys) == 0 {
		out += "(no budgets for this view)\n"
	}
	now := a.now()
	for i, key := range a.budgetKeys {
		marker := " "
		if i == a.budgetCursor {
			marker = "▶"
		}
		d, _ := a.snap.Budgets.Get(key)
		name := "Total"
		if !key.IsTotal() {
			name = a.snap.CategoryName(key.CategoryID)
		}
		remaining := a.snap.Budgets.Remaining(key, a.snap.SpentByKey)
		pct := a.snap.Budgets.SpentPercentage(key, a.snap.SpentByKey)
		days, expired := a.snap.Budgets.RemainingDays(key, now)
		timing := fmt.Sprintf("%d days left", days)
		if expired {
			timing = "expired"
		}
		out += fmt.Sprintf("%s %-20s %s%s of %s%s left  %3.0f%% spent  %s\n",
			marker, name,
			a.currency, remaining.StringFixed(2),
			a.currency, d.Limit.StringFixed(2),
			pct*100, timing)
	}
	out += "[n] Set budget  [del] Delete  [w] Cycle week/month/total  [d] Dashboard  [q] Quit"
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderShopping() string {
	title := titleStyle.Render("Cheapest Store")
	scope := "all stores"
	if a.visitedOnly {
		scope = "stores you've shopped at"
	}
	body := fmt.Sprintf("Shopping list (comma-separated): %s\nComparing against: %s\n[enter] Compare  [ctrl+v] Toggle scope  [esc] Back", a.shoppingList, scope)
	if a.lastQuote != nil {
		body += fmt.Sprintf("\n\n%s wins at %s%s:", a.lastQuote.Store, a.currency, a.lastQuote.Total.StringFixed(2))
		for _, item := range splitList(a.shoppingList) {
			if p, ok := a.lastQuote.Items[item]; ok {
				body += fmt.Sprintf("\n- %-24s %s%s", item, a.currency, p.StringFixed(2))
			}
		}
	}
	if a.status != "" {
		body += "\n" + a.status
	}
	return fmt.Sprintf("%s\n%s", title, body)
}

func (a *App) renderImport() string {
	title := titleStyle.Render("Import Receipt")
	body := fmt.Sprintf("Receipt file: %s\nFirst line is the store name; the rest are product names and prices.\n[enter] Import  [esc] Back  [q] Quit", a.importPath)
	if a.status != "" {
		body += "\n" + a.status
	}
	return fmt.Sprintf("%s\n%s", title, body)
}

func (a *App) renderSettings() string {
	title := titleStyle.Render("Settings")
	out := title + "\nCategories\n"
	if len(a.snap.Categories) == 0 {
		out += "  (no categories yet)\n"
	} else {
		for i, c := range a.snap.Categories {
			marker := " "
			if i == a.settingsCursor {
				marker = "▶"
			}
			out += fmt.Sprintf("%s %s\n", marker, c.Name)
		}
	}
	out += "\n[n] New  [enter] Rename  [del] Delete\n"
	out += "[d] Dashboard  [q] Quit"
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalCategoryPicker:
		out := titleStyle.Render("Select Category") + "\n"
		options := []string{"[none] (clear category)"}
		for _, c := range a.snap.Categories {
			options = append(options, c.Name)
		}
		for i, opt := range options {
			marker := " "
			if i == a.categoryCursor {
				marker = "▶"
			}
			out += fmt.Sprintf("%s %s\n", marker, opt)
		}
		out += "[enter] Select  [esc] Cancel"
		return out
	case modalNewCategory:
		return titleStyle.Render("New category") + fmt.Sprintf("\n%s\n[enter] Save  [esc] Cancel", a.inputBuffer)
	case modalEditCategory:
		return titleStyle.Render("Rename category") + fmt.Sprintf("\n%s\n[enter] Save  [esc] Cancel", a.inputBuffer)
	case modalSetBudget:
		return titleStyle.Render("Set budget: <category or 'total'> <limit> [week|month|total]") +
			fmt.Sprintf("\n%s\n[enter] Save  [esc] Cancel", a.inputBuffer)
	default:
		return ""
	}
}

func nextFrame(f ledger.Frame) ledger.Frame {
	switch f {
	case ledger.FrameWeek:
		return ledger.FrameMonth
	case ledger.FrameMonth:
		return ledger.FrameTotal
	default:
		return ledger.FrameWeek
	}
}

func splitList(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		p := strings.TrimSpace(part)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
