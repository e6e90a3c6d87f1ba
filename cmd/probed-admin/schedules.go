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
)

type scheduleListOptions struct {
	JobType    string
	PausedOnly bool
}

type scheduleTargetOptions struct {
	JobType   domain.JobType
	SPAddress string
}

func parseScheduleListFlags(args []string) (scheduleListOptions, error) {
	fs := flag.NewFlagSet("schedules", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts scheduleListOptions
	fs.StringVar(&opts.JobType, "job-type", "", "Filter by job type (deal, retrieval, metrics, metrics_cleanup, providers_refresh)")
	fs.BoolVar(&opts.PausedOnly, "paused", false, "Only show paused rows")

	if err := fs.Parse(args); err != nil {
		return scheduleListOptions{}, err
	}

	opts.JobType = strings.TrimSpace(opts.JobType)
	if opts.JobType != "" && !domain.JobType(opts.JobType).Valid() {
		return scheduleListOptions{}, fmt.Errorf("unknown job type %q", opts.JobType)
	}

	return opts, nil
}

func parseScheduleTargetFlags(name string, args []string) (scheduleTargetOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var jobType, spAddress string
	fs.StringVar(&jobType, "job-type", "", "Job type of the schedule row (required)")
	fs.StringVar(&spAddress, "sp", "", "Provider address (omit for global job types)")

	if err := fs.Parse(args); err != nil {
		return scheduleTargetOptions{}, err
	}

	jobType = strings.TrimSpace(jobType)
	if jobType == "" {
		return scheduleTargetOptions{}, errors.New("--job-type is required")
	}
	jt := domain.JobType(jobType)
	if !jt.Valid() {
		return scheduleTargetOptions{}, fmt.Errorf("unknown job type %q", jobType)
	}

	spAddress = strings.TrimSpace(spAddress)
	if jt.PerProvider() && spAddress == "" {
		return scheduleTargetOptions{}, fmt.Errorf("--sp is required for job type %q", jobType)
	}
	if !jt.PerProvider() && spAddress != "" {
		return scheduleTargetOptions{}, fmt.Errorf("job type %q is global; --sp must be omitted", jobType)
	}

	return scheduleTargetOptions{JobType: jt, SPAddress: spAddress}, nil
}

func runSchedulesCommand(cmdCtx *commandContext, args []string) error {
	opts, err := parseScheduleListFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewScheduleRepo(db)
		rows, err := repo.List(ctx)
		if err != nil {
			return err
		}

		filtered := filterScheduleRows(rows, opts)
		if printErr := printScheduleRows(filtered, len(rows)); printErr != nil {
			return printErr
		}
		return nil
	})
}

func filterScheduleRows(rows []domain.ScheduleRow, opts scheduleListOptions) []domain.ScheduleRow {
	out := rows[:0:0]
	for _, row := range rows {
		if opts.JobType != "" && string(row.JobType) != opts.JobType {
			continue
		}
		if opts.PausedOnly && !row.Paused {
			continue
		}
		out = append(out, row)
	}
	return out
}

func printScheduleRows(rows []domain.ScheduleRow, total int) error {
	if len(rows) == 0 {
		return writeln(os.Stdout, "(no schedule rows matched)")
	}

	now := time.Now().UTC()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "JOB TYPE\tSP ADDRESS\tINTERVAL\tNEXT RUN (UTC)\tDUE IN\tLAST RUN (UTC)\tPAUSED"); err != nil {
		return err
	}
	for _, row := range rows {
		addr := row.SPAddress
		if row.Global() {
			addr = "(global)"
		}
		lastRun := "-"
		if row.LastRunAt != nil {
			lastRun = row.LastRunAt.UTC().Format(time.RFC3339)
		}
		if err := writef(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			row.JobType,
			addr,
			row.Interval,
			row.NextRunAt.UTC().Format(time.RFC3339),
			renderDueIn(now, row),
			lastRun,
			row.Paused,
		); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush schedule table: %w", err)
	}

	return writef(os.Stdout, "\nShowing %d of %d schedule rows\n", len(rows), total)
}

func renderDueIn(now time.Time, row domain.ScheduleRow) string {
	if row.Paused {
		return "paused"
	}
	delta := row.NextRunAt.Sub(now).Round(time.Second)
	if delta <= 0 {
		return "overdue " + (-delta).String()
	}
	return delta.String()
}

func runPauseCommand(cmdCtx *commandContext, args []string) error {
	return setSchedulePaused(cmdCtx, "pause", args, true)
}

func runResumeCommand(cmdCtx *commandContext, args []string) error {
	return setSchedulePaused(cmdCtx, "resume", args, false)
}

func setSchedulePaused(cmdCtx *commandContext, name string, args []string, paused bool) error {
	opts, err := parseScheduleTargetFlags(name, args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewScheduleRepo(db)
		if setErr := repo.SetPaused(ctx, opts.JobType, opts.SPAddress, paused); setErr != nil {
			if errors.Is(setErr, data.ErrScheduleNotFound) {
				return fmt.Errorf("no schedule row for %s/%s", opts.JobType, renderTarget(opts.SPAddress))
			}
			return setErr
		}

		verb := "paused"
		if !paused {
			verb = "resumed"
		}
		return writef(os.Stdout, "Schedule %s/%s %s\n", opts.JobType, renderTarget(opts.SPAddress), verb)
	})
}

func renderTarget(spAddress string) string {
	if spAddress == "" {
		return "(global)"
	}
	return spAddress
}
