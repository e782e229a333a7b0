package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"AIToolNews/internal/app"
	"AIToolNews/internal/config"
	"AIToolNews/internal/logging"
)

const usage = `usage: aitoolnews <command> [flags]

commands:
  run                    collect, then build the site and publish
  collect                archive new posts and feed articles only
  build                  render the static site only
  publish [-force-digest] post to social and chat only
  backfill [-dry-run]    re-summarize records with placeholder fields
  import-history <file>  load a legacy posted-history JSON into the social ledger
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command, args := os.Args[1], os.Args[2:]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	forceDigest := flags.Bool("force-digest", false, "send the chat digest outside its hour")
	dryRun := flags.Bool("dry-run", false, "report what backfill would change without writing")
	_ = flags.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, app.Options{ForceDigest: *forceDigest}, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	switch command {
	case "run":
		err = application.Run(ctx)
	case "collect":
		err = application.Collect(ctx)
	case "build":
		err = application.Build(ctx)
	case "publish":
		err = application.Publish(ctx)
	case "backfill":
		err = application.Backfill(ctx, *dryRun)
	case "import-history":
		if flags.NArg() != 1 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = application.ImportHistory(ctx, flags.Arg(0))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		application.Close()
		os.Exit(1)
	}
}
