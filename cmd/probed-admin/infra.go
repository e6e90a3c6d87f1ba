package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/domain"
	"github.com/checkernet/probed/internal/providers"
	"github.com/checkernet/probed/internal/queue"
)

func runMutexesCommand(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("mutexes", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var staleAfter time.Duration
	fs.DurationVar(
		&staleAfter,
		"stale-after",
		cmdCtx.Config.Worker.MutexStale(),
		"Age beyond which a claim is flagged as stale",
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		rows, err := data.NewMutexRepo(db).List(ctx)
		if err != nil {
			return err
		}
		return printMutexRows(rows, staleAfter)
	})
}

func printMutexRows(rows []domain.MutexRow, staleAfter time.Duration) error {
	if len(rows) == 0 {
		return writeln(os.Stdout, "(no mutexes held)")
	}

	now := time.Now().UTC()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "SP ADDRESS\tJOB TYPE\tJOB ID\tHOSTNAME\tHELD FOR\tSTALE"); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writef(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			row.SPAddress,
			row.JobType,
			row.JobID,
			row.Hostname,
			now.Sub(row.AcquiredAt).Round(time.Second),
			row.Stale(now, staleAfter),
		); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush mutex table: %w", err)
	}

	return writef(os.Stdout, "\nTotal held mutexes: %d\n", len(rows))
}

func runReleaseMutexCommand(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("release-mutex", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var spAddress string
	fs.StringVar(&spAddress, "sp", "", "Provider address whose mutex should be released (required)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	spAddress = strings.TrimSpace(spAddress)
	if spAddress == "" {
		return errors.New("--sp is required")
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewMutexRepo(db)

		row, held, err := repo.Get(ctx, spAddress)
		if err != nil {
			return err
		}
		if !held {
			return writef(os.Stdout, "No mutex held for %s\n", spAddress)
		}

		released, err := repo.ForceRelease(ctx, spAddress)
		if err != nil {
			return err
		}
		if !released {
			// Lost a race with the owning worker's own release.
			return writef(os.Stdout, "Mutex for %s was already released\n", spAddress)
		}

		cmdCtx.Logger.Info("mutex force-released",
			"sp_address", spAddress,
			"job_type", string(row.JobType),
			"job_id", row.JobID,
			"hostname", row.Hostname,
		)
		return writef(os.Stdout, "Released mutex for %s (was held by %s since %s)\n",
			spAddress, row.Hostname, row.AcquiredAt.UTC().Format(time.RFC3339))
	})
}

func runQueueStatsCommand(cmdCtx *commandContext, _ []string) error {
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		store := queue.NewStore(db, queue.StoreOptions{Logger: cmdCtx.Logger})

		counts, err := store.CountStates(ctx, []string{
			queue.StateCreated,
			queue.StateActive,
			queue.StateCompleted,
			queue.StateFailed,
			queue.StateCancelled,
		})
		if err != nil {
			return err
		}
		if printErr := printQueueCounts(counts); printErr != nil {
			return printErr
		}

		now := time.Now().UTC()
		queued, err := store.MinAgeByState(ctx, queue.StateCreated, now)
		if err != nil {
			return err
		}
		active, err := store.MinAgeByState(ctx, queue.StateActive, now)
		if err != nil {
			return err
		}
		return printQueueAges(queued, active)
	})
}

func printQueueCounts(counts []domain.QueueStateCount) error {
	if err := writef(os.Stdout, "Queue occupancy\n"); err != nil {
		return err
	}
	if len(counts) == 0 {
		return writeln(os.Stdout, "  (queue is empty)")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "QUEUE\tSTATE\tCOUNT"); err != nil {
		return err
	}
	for _, c := range counts {
		if err := writef(w, "%s\t%s\t%d\n", c.Queue, c.State, c.Count); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush queue count table: %w", err)
	}
	return nil
}

func printQueueAges(queued, active []domain.QueueAge) error {
	if len(queued) == 0 && len(active) == 0 {
		return nil
	}

	if err := writef(os.Stdout, "\nOldest job age\n"); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "QUEUE\tSTATE\tAGE"); err != nil {
		return err
	}
	for _, a := range queued {
		if err := writeQueueAgeRow(w, a, queue.StateCreated); err != nil {
			return err
		}
	}
	for _, a := range active {
		if err := writeQueueAgeRow(w, a, queue.StateActive); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush queue age table: %w", err)
	}
	return nil
}

func writeQueueAgeRow(w *tabwriter.Writer, a domain.QueueAge, state string) error {
	age := time.Duration(a.AgeSeconds * float64(time.Second)).Round(time.Second)
	return writef(w, "%s\t%s\t%s\n", a.Queue, state, age)
}

func runProvidersCommand(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var add, remove string
	fs.StringVar(&add, "add", "", "Provider address to add to the active set")
	fs.StringVar(&remove, "remove", "", "Provider address to remove from the active set")

	if err := fs.Parse(args); err != nil {
		return err
	}

	add = strings.TrimSpace(add)
	remove = strings.TrimSpace(remove)
	if add != "" && remove != "" {
		return errors.New("--add and --remove are mutually exclusive")
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		store := providers.NewStore(db)

		switch {
		case add != "":
			if err := store.Add(ctx, add); err != nil {
				return err
			}
			if err := writef(os.Stdout, "Added provider %s\n", add); err != nil {
				return err
			}
		case remove != "":
			removed, err := store.Remove(ctx, remove)
			if err != nil {
				return err
			}
			if !removed {
				return writef(os.Stdout, "Provider %s was not in the active set\n", remove)
			}
			if err := writef(os.Stdout, "Removed provider %s\n", remove); err != nil {
				return err
			}
		}

		addrs, err := store.ListActiveProviders(ctx)
		if err != nil {
			return err
		}
		return printProviders(addrs)
	})
}

func printProviders(addrs []string) error {
	if len(addrs) == 0 {
		return writeln(os.Stdout, "(no active providers)")
	}
	if err := writef(os.Stdout, "Active providers (%d):\n", len(addrs)); err != nil {
		return err
	}
	for _, addr := range addrs {
		if err := writef(os.Stdout, "  %s\n", addr); err != nil {
			return err
		}
	}
	return nil
}
