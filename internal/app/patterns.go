package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Patterns prints the derived hourly/weekday aggregates and the most recent
// blended forecast rows. Aggregates are maintained by the database backend
// only.
func (a *App) Patterns(ctx context.Context, forecastLimit int) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	if store.patterns == nil {
		return errors.New("patterns require the postgres backend; the file backend stores readings and spikes only")
	}

	hourly, err := store.patterns.HourlyPatterns(ctx)
	if err != nil {
		return err
	}
	weekday, err := store.patterns.WeekdayPatterns(ctx)
	if err != nil {
		return err
	}

	if len(hourly) == 0 && len(weekday) == 0 {
		fmt.Fprintln(os.Stdout, "no patterns computed yet")
		return nil
	}

	fmt.Fprintln(os.Stdout, "Hourly patterns:")
	hourTable := tablewriter.NewWriter(os.Stdout)
	hourTable.Header([]string{"Hour", "Avg", "Min", "Max", "Stddev", "Count"})
	hourRows := make([][]string, 0, len(hourly))
	for _, p := range hourly {
		hourRows = append(hourRows, []string{
			fmt.Sprintf("%d", p.Hour),
			p.AvgIndex.StringFixed(2),
			p.MinIndex.StringFixed(2),
			p.MaxIndex.StringFixed(2),
			p.StddevIndex.StringFixed(2),
			fmt.Sprintf("%d", p.SampleCount),
		})
	}
	if err := hourTable.Bulk(hourRows); err != nil {
		return err
	}
	if err := hourTable.Render(); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Weekday patterns (0=Sunday):")
	dayTable := tablewriter.NewWriter(os.Stdout)
	dayTable.Header([]string{"Weekday", "Avg", "Min", "Max", "Stddev", "Count"})
	dayRows := make([][]string, 0, len(weekday))
	for _, p := range weekday {
		dayRows = append(dayRows, []string{
			fmt.Sprintf("%d", p.Weekday),
			p.AvgIndex.StringFixed(2),
			p.MinIndex.StringFixed(2),
			p.MaxIndex.StringFixed(2),
			p.StddevIndex.StringFixed(2),
			fmt.Sprintf("%d", p.SampleCount),
		})
	}
	if err := dayTable.Bulk(dayRows); err != nil {
		return err
	}
	if err := dayTable.Render(); err != nil {
		return err
	}

	if forecastLimit <= 0 {
		return nil
	}

	forecast, err := store.patterns.LatestForecast(ctx, forecastLimit)
	if err != nil {
		return err
	}
	if len(forecast) == 0 {
		return nil
	}

	fmt.Fprintln(os.Stdout, "Blended forecast (0.6 hourly + 0.3 weekday + 0.1 global):")
	fcTable := tablewriter.NewWriter(os.Stdout)
	fcTable.Header([]string{"Time (UTC)", "Index", "Hourly Avg", "Weekday Avg", "Forecast"})
	fcRows := make([][]string, 0, len(forecast))
	for _, row := range forecast {
		fcRows = append(fcRows, []string{
			row.ObservedAt.UTC().Format(time.RFC3339),
			row.IndexValue.StringFixed(2),
			row.HourlyAvg.StringFixed(2),
			row.WeekdayAvg.StringFixed(2),
			row.Blended.StringFixed(2),
		})
	}
	if err := fcTable.Bulk(fcRows); err != nil {
		return err
	}
	return fcTable.Render()
}
