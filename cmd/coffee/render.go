package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"coffee/internal/core"
	"coffee/internal/services"
	"coffee/internal/stats"
)

const barWidth = 40

var typeStyles = map[core.CoffeeType]lipgloss.Style{
	core.Espresso: lipgloss.NewStyle().Foreground(lipgloss.Color("#8B5A2B")),
	core.Filter:   lipgloss.NewStyle().Foreground(lipgloss.Color("#D2A679")),
}

var dimStyle = lipgloss.NewStyle().Faint(true)

func styleFor(t core.CoffeeType) lipgloss.Style {
	if s, ok := typeStyles[t]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

func formatAmount(ml float64) string {
	return humanize.Commaf(math.Round(ml*10)/10) + " ml"
}

func formatPrice(p float64) string {
	return fmt.Sprintf("%.2f", p)
}

func printRecords(w io.Writer, records []core.Record, loc *time.Location, now time.Time) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No coffees logged.")
		return err
	}

	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tPRICE\tWHEN")
	for _, r := range records {
		price := "-"
		if r.Price != nil {
			price = formatPrice(*r.Price)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Date.In(loc).Format("2006-01-02 15:04"),
			r.Type.Label(),
			formatAmount(r.Amount),
			price,
			humanize.RelTime(r.Date, now, "ago", "from now"))
	}
	return tw.Flush()
}

func printSummary(w io.Writer, p stats.Period, sum stats.Summary) error {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "Period\t%s\n", p)
	fmt.Fprintf(tw, "Coffees\t%d\n", sum.Count)
	fmt.Fprintf(tw, "Total\t%s\n", formatAmount(sum.TotalAmount))
	fmt.Fprintf(tw, "Spent\t%s\n", formatPrice(sum.TotalSpend))
	fmt.Fprintf(tw, "Per day\t%.2f\n", sum.AveragePerDay)
	return tw.Flush()
}

func printTypes(w io.Writer, counts []stats.TypeCount) error {
	if len(counts) == 0 {
		_, err := fmt.Fprintln(w, "No coffees logged.")
		return err
	}
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Type.Label(), c.Count)
	}
	return tw.Flush()
}

// printChart draws one horizontal bar per bucket, colored by the bucket's
// representative type, followed by the café prices of the period.
func printChart(w io.Writer, chart services.Chart) {
	if len(chart.Points) == 0 {
		fmt.Fprintln(w, "No coffees logged.")
		return
	}

	layout := "Mon 02 Jan"
	if chart.Granularity == stats.MonthGrain {
		layout = "Jan 2006"
	}

	var peak float64
	for _, p := range chart.Points {
		peak = math.Max(peak, p.Amount)
	}

	for _, p := range chart.Points {
		n := 0
		if peak > 0 {
			n = int(math.Round(p.Amount / peak * barWidth))
		}
		if n == 0 && p.Amount > 0 {
			n = 1
		}
		bar := styleFor(p.Type).Render(strings.Repeat("█", n))
		fmt.Fprintf(w, "%-10s %s %s\n", p.Date.Format(layout), bar,
			dimStyle.Render(formatAmount(p.Amount)))
	}

	if len(chart.Prices) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Café prices")
	for _, p := range chart.Prices {
		fmt.Fprintf(w, "%s  %s\n", p.Date.Format("2006-01-02"), formatPrice(p.Price))
	}
}
