package app

import (
	"context"
	"fmt"
	"os"

	"pizza-index-watcher/internal/service"
)

// Once runs a single collection tick and prints the outcome. Returns an
// error only when the tick failed; a duplicate-minute skip is a successful
// no-op.
func (a *App) Once(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(nil, store.sink)

	result, err := svc.ProcessTick(ctx)
	if err != nil {
		fmt.Fprintln(os.Stdout, "status=error")
		return err
	}

	switch result.Status {
	case service.StatusSkipped:
		fmt.Fprintf(os.Stdout, "status=skipped index=%s\n", result.Index.StringFixed(2))
	default:
		fmt.Fprintf(os.Stdout, "status=success index=%s spike=%t\n", result.Index.StringFixed(2), result.SpikeFired)
	}
	return nil
}
