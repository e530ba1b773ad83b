package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/spendwise/spendwise/internal/analytics"
	"github.com/spendwise/spendwise/internal/config"
	"github.com/spendwise/spendwise/internal/database/repository"
	"github.com/spendwise/spendwise/internal/ledger"
	"github.com/spendwise/spendwise/internal/receipt"
	"github.com/spendwise/spendwise/internal/service"
	"github.com/spendwise/spendwise/internal/session"
)

func init() {
	addCmd.Flags().StringVar(&addStore, "store", "", "store the purchase was made at (required)")
	addCmd.Flags().StringVar(&addDate, "date", "", "purchase date as YYYY-MM-DD (default today)")
	addCmd.Flags().StringVar(&addCategory, "category", "", "category name")
	addCmd.Flags().StringArrayVar(&addItems, "item", nil, "line item as 'name=price', repeatable (required)")

	importCmd.Flags().BoolVar(&importPaste, "paste", false, "treat input as pasted receipt text without a store line")
	importCmd.Flags().StringVar(&importStore, "store", "", "store name for --paste imports")

	reportCmd.Flags().StringVar(&reportMonth, "month", "", "report a specific month as YYYY-MM")
	reportCmd.Flags().BoolVar(&reportWeek, "week", false, "report the current week")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "report all recorded spending")

	budgetSetCmd.Flags().StringVar(&budgetFrame, "frame", "month", "budget period: week, month or total")
	budgetSetCmd.Flags().StringVar(&budgetStart, "start", "", "start date as YYYY-MM-DD (default today)")
	budgetSetCmd.Flags().StringVar(&budgetEnd, "end", "", "end date as YYYY-MM-DD (default start plus one period)")

	cheapestCmd.Flags().BoolVar(&cheapestVisited, "visited", false, "only compare stores you have shopped at")

	userRegisterCmd.Flags().StringVar(&userName, "name", "", "display name for the new profile (required)")
	userRegisterCmd.Flags().StringVar(&userPassword, "password", "", "password for the profile (required)")
	userLoginCmd.Flags().StringVar(&userPassword, "password", "", "password for the profile (required)")

	budgetCmd.AddCommand(budgetSetCmd, budgetLsCmd, budgetRmCmd)
	categoryCmd.AddCommand(categoryAddCmd, categoryLsCmd, categoryRmCmd, categoryRenameCmd)
	userCmd.AddCommand(userRegisterCmd, userLoginCmd)
	rootCmd.AddCommand(addCmd, importCmd, reportCmd, budgetCmd, categoryCmd, cheapestCmd, suggestCmd, userCmd)
}

var (
	addStore    string
	addDate     string
	addCategory string
	addItems    []string

	importPaste bool
	importStore string

	reportMonth string
	reportWeek  bool
	reportAll   bool

	budgetFrame string
	budgetStart string
	budgetEnd   string

	cheapestVisited bool

	userName     string
	userPassword string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a purchase with its line items",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		date := time.Now().UTC()
		if addDate != "" {
			date, err = time.Parse(repository.DateLayout, addDate)
			if err != nil {
				return fmt.Errorf("date %q: %w", addDate, err)
			}
		}

		in := service.NewTransaction{CompanyName: addStore, Date: date}
		for _, raw := range addItems {
			name, priceStr, found := strings.Cut(raw, "=")
			if !found {
				return fmt.Errorf("item %q: expected 'name=price'", raw)
			}
			price, err := decimal.NewFromString(strings.TrimSpace(priceStr))
			if err != nil {
				return fmt.Errorf("item %q: %w", raw, err)
			}
			in.Products = append(in.Products, service.NewProduct{Name: strings.TrimSpace(name), Price: price})
		}
		if addCategory != "" {
			id, err := categoryIDByName(cmd.Context(), app, addCategory)
			if err != nil {
				return err
			}
			in.CategoryID = &id
		}

		id, err := app.tracker.AddTransaction(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Printf("recorded %s: %d items at %s\n", id, len(in.Products), addStore)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [receipt-file]",
	Short: "Import a scanned or pasted receipt",
	Long: `Import reads a receipt text file whose first line is the store name,
followed by product names and prices, and records it as a purchase.

With --paste the input is treated as pasted receipt text (names and prices
in any interleaved order, no store line); the store comes from --store and
the text is read from the file argument, or stdin when none is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		var data []byte
		switch {
		case len(args) == 1:
			data, err = os.ReadFile(args[0])
		case importPaste:
			data, err = io.ReadAll(cmd.InOrStdin())
		default:
			return fmt.Errorf("a receipt file is required unless --paste reads stdin")
		}
		if err != nil {
			return err
		}

		var (
			company string
			items   []receipt.Item
		)
		if importPaste {
			if importStore == "" {
				return fmt.Errorf("--paste requires --store")
			}
			company, items = importStore, receipt.ParseText(string(data))
		} else {
			company, items = receipt.ParseScan(string(data))
		}
		if company == "" || len(items) == 0 {
			return fmt.Errorf("no store name or line items found")
		}

		in := service.NewTransaction{CompanyName: company, Date: time.Now().UTC()}
		for _, it := range items {
			in.Products = append(in.Products, service.NewProduct{Name: it.Name, Price: it.Price})
		}
		id, err := app.tracker.AddTransaction(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Printf("recorded %s: %d items at %s\n", id, len(items), company)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize spending for a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		snap, err := app.tracker.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		window := analytics.ThisMonth()
		label := "this month"
		switch {
		case reportAll:
			window, label = analytics.AllTime(), "all time"
		case reportWeek:
			window, label = analytics.ThisWeek(), "this week"
		case reportMonth != "":
			m, err := time.Parse("2006-01", reportMonth)
			if err != nil {
				return fmt.Errorf("month %q: %w", reportMonth, err)
			}
			window = analytics.SpecificMonth(m.Month(), m.Year())
			label = m.Format("January 2006")
		}

		txs := analytics.FilterByWindow(snap.Transactions, window, now)
		cur := app.cfg.UI.CurrencySymbol
		fmt.Printf("Spending %s: %s%s over %d transactions\n", label, cur, analytics.Total(txs).StringFixed(2), len(txs))
		for _, cs := range analytics.TopCategories(txs, 0) {
			fmt.Printf("  %-24s %s%s\n", cs.Category, cur, cs.Amount.StringFixed(2))
		}

		if reportAll {
			if avg := analytics.AverageMonthlySpending(snap.Transactions); !avg.IsZero() {
				fmt.Printf("Average per month: %s%s\n", cur, avg.StringFixed(2))
			}
			if hi, lo, ok := analytics.HighestAndLowestMonth(snap.Transactions); ok {
				fmt.Printf("Highest month: %s %d (%s%s)  Lowest: %s %d (%s%s)\n",
					hi.Month, hi.Year, cur, hi.Total.StringFixed(2),
					lo.Month, lo.Year, cur, lo.Total.StringFixed(2))
			}
		} else {
			delta := analytics.MonthOverMonthDelta(snap.Transactions, now)
			if delta.HasPrior {
				fmt.Printf("vs last month: %+.1f%%\n", delta.PercentChange)
			}
		}
		return nil
	},
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage budgets",
}

var budgetSetCmd = &cobra.Command{
	Use:   "set <category|total> <limit>",
	Short: "Set or replace a budget",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		limit, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("limit %q: %w", args[1], err)
		}
		frame := ledger.Frame(budgetFrame)
		if !ledger.ValidFrame(frame) {
			return fmt.Errorf("frame %q: want week, month or total", budgetFrame)
		}

		key, err := budgetKey(cmd.Context(), app, args[0])
		if err != nil {
			return err
		}

		start := time.Now().UTC()
		if budgetStart != "" {
			start, err = time.Parse(repository.DateLayout, budgetStart)
			if err != nil {
				return fmt.Errorf("start %q: %w", budgetStart, err)
			}
		}
		var end time.Time
		if budgetEnd != "" {
			end, err = time.Parse(repository.DateLayout, budgetEnd)
			if err != nil {
				return fmt.Errorf("end %q: %w", budgetEnd, err)
			}
		} else {
			switch frame {
			case ledger.FrameWeek:
				end = start.AddDate(0, 0, 7)
			case ledger.FrameMonth:
				end = start.AddDate(0, 1, 0)
			default:
				end = start.AddDate(1, 0, 0)
			}
		}

		err = app.tracker.SetBudget(cmd.Context(), key, ledger.Details{Limit: limit, Frame: frame, Start: start, End: end})
		if err != nil {
			return err
		}
		fmt.Printf("budget set: %s %s%s per %s until %s\n",
			args[0], app.cfg.UI.CurrencySymbol, limit.StringFixed(2), frame, end.Format(repository.DateLayout))
		return nil
	},
}

var budgetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List budgets with remaining amounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		snap, err := app.tracker.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		if snap.Budgets.Len() == 0 {
			fmt.Println("no budgets set")
			return nil
		}

		cur := app.cfg.UI.CurrencySymbol
		now := time.Now().UTC()
		for _, key := range snap.Budgets.Keys() {
			d, _ := snap.Budgets.Get(key)
			name := "Total"
			if !key.IsTotal() {
				name = snap.CategoryName(key.CategoryID)
			}
			remaining := snap.Budgets.Remaining(key, snap.SpentByKey)
			pct := snap.Budgets.SpentPercentage(key, snap.SpentByKey)
			days, expired := snap.Budgets.RemainingDays(key, now)
			timing := fmt.Sprintf("%d days left", days)
			if expired {
				timing = "expired"
			}
			fmt.Printf("%-20s %s%8s of %s%8s left  %3.0f%% spent  [%s]  %s\n",
				name, cur, remaining.StringFixed(2), cur, d.Limit.StringFixed(2), pct*100, d.Frame, timing)
		}
		return nil
	},
}

var budgetRmCmd = &cobra.Command{
	Use:   "rm <category|total>",
	Short: "Remove a budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		key, err := budgetKey(cmd.Context(), app, args[0])
		if err != nil {
			return err
		}
		return app.tracker.DeleteBudget(cmd.Context(), key)
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		id, err := app.tracker.AddCategory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("created %s (%s)\n", args[0], id)
		return nil
	},
}

var categoryLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		cats, err := app.tracker.Categories.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range cats {
			fmt.Printf("%s  %s\n", c.ID, c.Name)
		}
		return nil
	},
}

var categoryRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a category; its purchases become uncategorized",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		id, err := categoryIDByName(cmd.Context(), app, args[0])
		if err != nil {
			return err
		}
		return app.tracker.DeleteCategory(cmd.Context(), id)
	},
}

var categoryRenameCmd = &cobra.Command{
	Use:   "rename <old-name> <new-name>",
	Short: "Rename a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		id, err := categoryIDByName(cmd.Context(), app, args[0])
		if err != nil {
			return err
		}
		return app.tracker.RenameCategory(cmd.Context(), id, args[1])
	},
}

var cheapestCmd = &cobra.Command{
	Use:   "cheapest <item>...",
	Short: "Find the cheapest store for a shopping list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		quote, err := app.shopping.CheapestStore(cmd.Context(), args, cheapestVisited)
		if err != nil {
			return err
		}
		cur := app.cfg.UI.CurrencySymbol
		fmt.Printf("%s fulfils the list for %s%s:\n", quote.Store, cur, quote.Total.StringFixed(2))
		for _, item := range args {
			fmt.Printf("  %-24s %s%s\n", item, cur, quote.Items[item].StringFixed(2))
		}
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the active profile",
}

var userRegisterCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create a profile and switch to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		auth := &session.Authenticator{Users: repository.NewUserRepo(app.db)}
		if _, err := auth.Register(cmd.Context(), userName, args[0], userPassword); err != nil {
			return err
		}

		app.cfg.User.Name = userName
		app.cfg.User.Email = args[0]
		if err := config.Save(app.cfg); err != nil {
			return err
		}
		fmt.Printf("registered %s, now the active profile\n", args[0])
		return nil
	},
}

var userLoginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Switch the active profile to an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		users := repository.NewUserRepo(app.db)
		auth := &session.Authenticator{Users: users}
		if _, err := auth.Login(cmd.Context(), args[0], userPassword); err != nil {
			return err
		}
		u, err := users.GetByEmail(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		app.cfg.User.Name = u.Name
		app.cfg.User.Email = u.Email
		if err := config.Save(app.cfg); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", args[0])
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <name>",
	Short: "Suggest canonical product names for a partial name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		sugg, err := app.tracker.SuggestProductNames(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !sugg.Found {
			fmt.Println("no matches")
			return nil
		}
		for _, name := range sugg.Canonicals {
			fmt.Println(name)
		}
		return nil
	},
}

func categoryIDByName(ctx context.Context, app *appContext, name string) (string, error) {
	cats, err := app.tracker.Categories.List(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", name)
}

func budgetKey(ctx context.Context, app *appContext, name string) (ledger.Key, error) {
	if strings.EqualFold(name, "total") {
		return ledger.Total(), nil
	}
	id, err := categoryIDByName(ctx, app, name)
	if err != nil {
		return ledger.Key{}, err
	}
	return ledger.ForCategory(id), nil
}
