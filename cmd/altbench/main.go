package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/altbench/altbench/internal/app"
	"github.com/altbench/altbench/internal/common"
)

const usage = `altbench - altcoin composite benchmark

Usage:
  altbench <command> [flags]

Commands:
  coins      Refresh the coin universe from the market-cap listing
  fetch      Bring every tracked price table current up to yesterday
  index      Recompute the composite index and composition
  compare    Compare one asset against the composite (renders a chart)
  status     Show stored pairs, index coverage and universe age
  purge      Remove stored data (see purge -h)
  version    Print version information
`

func main() {
	// Local development secrets; absence is not an error.
	godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	if command == "version" {
		fmt.Println(common.GetFullVersion())
		return
	}

	a, err := app.NewApp(os.Getenv("ALTBENCH_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, a, command, args); err != nil {
		a.Logger.Error().Err(err).Str("command", command).Msg("Command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "coins":
		return runCoins(ctx, a)
	case "fetch":
		return runFetch(ctx, a, args)
	case "index":
		return runIndex(ctx, a)
	case "compare":
		return runCompare(ctx, a, args)
	case "status":
		return runStatus(ctx, a)
	case "purge":
		return runPurge(a, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func runCoins(ctx context.Context, a *app.App) error {
	u, err := a.RefreshUniverse(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Universe refreshed: %d coins accepted, %d skipped\n",
		len(u.Coins), len(a.Filter.Skipped()))
	return nil
}

func runFetch(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	full := fs.Bool("full", false, "discard stored price tables and re-download every history")
	fs.Parse(args)

	series, failures, err := a.FetchAll(ctx, *full)
	if err != nil {
		return err
	}
	fmt.Printf("Fetched %d pairs current\n", len(series))
	for _, f := range failures {
		fmt.Printf("  failed: %s: %v\n", f.AssetID, f.Err)
	}
	return nil
}

func runIndex(ctx context.Context, a *app.App) error {
	result, err := a.BuildIndex(ctx)
	if err != nil {
		return err
	}
	if len(result.Index) == 0 {
		fmt.Println("No index days computed; fetch price data first")
		return nil
	}
	first := result.Index[0].Date.Format("2006-01-02")
	last := result.Index[len(result.Index)-1].Date.Format("2006-01-02")
	fmt.Printf("Composite index: %d days (%s to %s) from %d assets\n",
		len(result.Index), first, last, result.AssetsProcessed)
	return nil
}

func runCompare(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	fs.Parse(args)

	// With no asset argument, compare everything stored.
	if fs.NArg() < 1 {
		comparisons, failures := a.CompareAll(ctx)
		for _, cmp := range comparisons {
			printComparison(cmp)
		}
		for _, f := range failures {
			fmt.Printf("  skipped: %s: %v\n", f.AssetID, f.Err)
		}
		fmt.Printf("Compared %d assets, skipped %d\n", len(comparisons), len(failures))
		return nil
	}

	cmp, err := a.Compare(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	printComparison(cmp)
	return nil
}

func printComparison(cmp *app.Comparison) {
	fmt.Printf("%s: chart charts/%s", cmp.AssetID, cmp.ChartFile)
	if cmp.Trend != nil {
		fmt.Printf(", slope %.6f/day, r2 %.3f over %d points", cmp.Trend.Slope, cmp.Trend.R2, cmp.Trend.Points)
	}
	fmt.Println()
}

func runStatus(ctx context.Context, a *app.App) error {
	st, err := a.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Pairs stored:   %d\n", st.Pairs)
	if st.IndexDays > 0 {
		fmt.Printf("Index days:     %d (%s to %s)\n", st.IndexDays,
			st.IndexFirst.Format("2006-01-02"), st.IndexLast.Format("2006-01-02"))
	} else {
		fmt.Println("Index days:     0 (not built)")
	}
	if st.UniverseAge > 0 {
		fmt.Printf("Universe age:   %s\n", st.UniverseAge.Round(time.Second))
	}
	return nil
}

func runPurge(a *app.App, args []string) error {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	prices := fs.Bool("prices", false, "remove stored price tables")
	indexData := fs.Bool("index", false, "remove index and composition output")
	fs.Parse(args)

	if !*prices && !*indexData {
		return fmt.Errorf("nothing to purge; pass -prices and/or -index")
	}
	p, i := a.Purge(*prices, *indexData)
	fmt.Printf("Removed %d price tables, %d index tables\n", p, i)
	return nil
}
