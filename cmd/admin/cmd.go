package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/anjiri1684/academy_billing/services"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	errHelp     = errors.New("help provided")
	errFailures = errors.New("some students could not be reallocated")
)

type reallocator interface {
	Reallocate(ctx context.Context, studentID uuid.UUID, opts services.Options) (services.StudentReport, error)
	ReallocateAll(ctx context.Context, opts services.Options) (services.BatchReport, error)
}

type commandLine struct {
	svc     reallocator
	classes services.ClassScanner
	migrate func() error
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  reallocate [-student UUID] [-dry-run] - reassign completed classes to packages in chronological order")
	fmt.Fprintln(cli.out, "  fixdurations [-dry-run]                - recompute stored class durations from start and end times")
	fmt.Fprintln(cli.out, "  migrate                                - create or update the database schema")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	reallocateCmd := flag.NewFlagSet("reallocate", flag.ContinueOnError)
	reallocateCmd.SetOutput(cli.out)
	reallocateStudent := reallocateCmd.String("student", "", "Only reallocate this student. All students with packages otherwise.")
	reallocateDryRun := reallocateCmd.Bool("dry-run", false, "Report what would change without writing anything.")

	fixDurationsCmd := flag.NewFlagSet("fixdurations", flag.ContinueOnError)
	fixDurationsCmd.SetOutput(cli.out)
	fixDurationsDryRun := fixDurationsCmd.Bool("dry-run", false, "Report what would change without writing anything.")

	switch args[1] {
	case "reallocate":
		if err := reallocateCmd.Parse(args[2:]); err != nil {
			return helpOr(err)
		}
		opts := services.Options{DryRun: *reallocateDryRun}
		if *reallocateStudent == "" {
			return cli.reallocateAll(ctx, opts)
		}
		studentID, err := uuid.Parse(*reallocateStudent)
		if err != nil {
			reallocateCmd.Usage()
			return errors.Wrapf(err, "invalid student id %q", *reallocateStudent)
		}
		return cli.reallocateOne(ctx, studentID, opts)
	case "fixdurations":
		if err := fixDurationsCmd.Parse(args[2:]); err != nil {
			return helpOr(err)
		}
		report, err := services.RepairDurations(ctx, cli.classes, *fixDurationsDryRun)
		if err != nil {
			return err
		}
		return cli.print(report)
	case "migrate":
		if err := cli.migrate(); err != nil {
			return errors.Wrap(err, "migrating database")
		}
		fmt.Fprintln(cli.out, "Database migrated.")
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) reallocateOne(ctx context.Context, studentID uuid.UUID, opts services.Options) error {
	report, err := cli.svc.Reallocate(ctx, studentID, opts)
	if err != nil {
		return err
	}
	return cli.print(report)
}

func (cli *commandLine) reallocateAll(ctx context.Context, opts services.Options) error {
	batch, err := cli.svc.ReallocateAll(ctx, opts)
	if err != nil {
		return err
	}
	if err := cli.print(batch); err != nil {
		return err
	}
	if batch.TotalErrors > 0 {
		return errors.Wrapf(errFailures, "%d student(s) failed", batch.TotalErrors)
	}
	return nil
}

func (cli *commandLine) print(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func helpOr(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return errHelp
	}
	return err
}
