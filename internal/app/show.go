package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Show prints recent readings as a table.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	readings, err := store.browser.ListRecentReadings(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		fmt.Fprintln(os.Stdout, "no readings found")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Time (UTC)", "Index", "Hour", "Weekday", "Overtime", "Weekend"})

	data := make([][]string, 0, len(readings))
	for _, r := range readings {
		data = append(data, []string{
			r.ObservedAt.UTC().Format(time.RFC3339),
			r.IndexValue.StringFixed(2),
			fmt.Sprintf("%d", r.HourOfDay),
			fmt.Sprintf("%d", r.Weekday),
			fmt.Sprintf("%t", r.IsOvertime),
			fmt.Sprintf("%t", r.IsWeekend),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// Spikes prints recent spike records as a table.
func (a *App) Spikes(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	spikes, err := store.browser.ListRecentSpikes(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(spikes) == 0 {
		fmt.Fprintln(os.Stdout, "no spikes found")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Time (UTC)", "From", "To", "Change", "Notes"})

	data := make([][]string, 0, len(spikes))
	for _, s := range spikes {
		data = append(data, []string{
			s.ObservedAt.UTC().Format(time.RFC3339),
			s.IndexFrom.StringFixed(2),
			s.IndexTo.StringFixed(2),
			s.ChangeAmount.StringFixed(2),
			s.Notes,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
