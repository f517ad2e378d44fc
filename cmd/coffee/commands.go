package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"coffee/internal/core"
	"coffee/internal/stats"
)

const dayLayout = "2006-01-02"

func newAddCmd(a *app) *cobra.Command {
	var (
		typeName string
		amount   string
		day      string
		cafe     bool
		price    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a coffee",
		Long: `Log a coffee. Espresso is always 30 ml; filter coffee takes --amount.
A price is stored only with --cafe. Flags left out reuse the last entry's
type and café setting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := a.svc.Defaults()
			form := core.Form{
				Type:           defaults.Type,
				AmountText:     defaults.Amount,
				IsCafePurchase: defaults.IsCafePurchase,
				PriceText:      defaults.Price,
			}

			flags := cmd.Flags()
			if flags.Changed("type") {
				t, err := core.ParseCoffeeType(typeName)
				if err != nil {
					return err
				}
				form.Type = t
			}
			if flags.Changed("amount") {
				form.AmountText = amount
			}
			if flags.Changed("cafe") {
				form.IsCafePurchase = cafe
			}
			if flags.Changed("price") {
				form.PriceText = price
			}

			d, err := parseDay(day, time.Now().In(a.cfg.Location()))
			if err != nil {
				return err
			}
			form.Day = d

			rec, err := a.svc.AddFromForm(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s %s (%s)\n",
				rec.Type.Label(), formatAmount(rec.Amount), rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", string(core.Espresso), "coffee type: espresso or filter")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "filter coffee amount in ml")
	cmd.Flags().StringVarP(&day, "day", "d", "", "day of the coffee (YYYY-MM-DD, today, yesterday)")
	cmd.Flags().BoolVar(&cafe, "cafe", false, "bought at a café")
	cmd.Flags().StringVarP(&price, "price", "p", "", "price paid, with --cafe")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged coffees, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			return printRecords(cmd.OutOrStdout(), records, a.cfg.Location(), time.Now())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n records")
	return cmd
}

func newDayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "Show the coffees of one day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().In(a.cfg.Location())
			day := now
			if len(args) == 1 {
				d, err := parseDay(args[0], now)
				if err != nil {
					return err
				}
				day = d
			}

			records, err := a.svc.Day(cmd.Context(), day)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := printRecords(out, records, a.cfg.Location(), time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s: %s, %s spent\n", day.Format(dayLayout),
				formatAmount(stats.TotalAmount(records)), formatPrice(stats.TotalSpend(records)))
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete logged coffees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := a.svc.Delete(cmd.Context(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show totals for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := stats.ParsePeriod(period)
			if err != nil {
				return err
			}
			sum, err := a.svc.Summary(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), p, sum)
		},
	}
	addPeriodFlag(cmd, &period)
	return cmd
}

func newTypesCmd(a *app) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "Count coffees per type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := stats.ParsePeriod(period)
			if err != nil {
				return err
			}
			counts, err := a.svc.Types(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printTypes(cmd.OutOrStdout(), counts)
		},
	}
	addPeriodFlag(cmd, &period)
	return cmd
}

func newChartCmd(a *app) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Chart consumption and café prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := stats.ParsePeriod(period)
			if err != nil {
				return err
			}
			chart, err := a.svc.Chart(cmd.Context(), p)
			if err != nil {
				return err
			}
			printChart(cmd.OutOrStdout(), chart)
			return nil
		},
	}
	addPeriodFlag(cmd, &period)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every record as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.svc.Export(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge records from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			n, err := a.svc.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records\n", n)
			return nil
		},
	}
}

func newDefaultsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Show the remembered entry values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.svc.Defaults()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "type:   %s\n", d.Type)
			fmt.Fprintf(out, "cafe:   %t\n", d.IsCafePurchase)
			fmt.Fprintf(out, "amount: %s\n", d.Amount)
			fmt.Fprintf(out, "price:  %s\n", d.Price)
			return nil
		},
	}
}

func addPeriodFlag(cmd *cobra.Command, period *string) {
	names := make([]string, 0, len(stats.Periods()))
	for _, p := range stats.Periods() {
		names = append(names, string(p))
	}
	cmd.Flags().StringVar(period, "period", string(stats.Week), "period: "+strings.Join(names, ", "))
}

// parseDay reads a calendar day in now's location. An empty string means
// the zero time, which callers treat as today.
func parseDay(s string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return time.Time{}, nil
	case "today":
		return core.StartOfDay(now), nil
	case "yesterday":
		return core.StartOfDay(now).AddDate(0, 0, -1), nil
	}
	d, err := time.ParseInLocation(dayLayout, strings.TrimSpace(s), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: want YYYY-MM-DD", s)
	}
	return d, nil
}
