package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dusk-indust/codescope/internal/config"
	"github.com/dusk-indust/codescope/internal/engine"
	"github.com/dusk-indust/codescope/internal/export"
)

// CLI flags parsed from command line.
type cliFlags struct {
	Root              string
	Format            string
	Languages         string
	Workers           int
	Complexity        bool
	Security          bool
	Dataflow          bool
	Refactoring       bool
	CouplingThreshold int
	Impact            string
	MaxDepth          int
	IncludeExternal   bool
	Verbose           bool
	Version           bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("codescope", flag.ContinueOnError)
	fs.StringVar(&flags.Root, "root", ".", "repository root to scan")
	fs.StringVar(&flags.Format, "format", "json", "output format: json or mermaid")
	fs.StringVar(&flags.Languages, "languages", "", "comma-separated language ids to scan (default: all)")
	fs.IntVar(&flags.Workers, "workers", 0, "parse workers (default: one per CPU)")
	fs.BoolVar(&flags.Complexity, "complexity", false, "run the complexity analyzer per file")
	fs.BoolVar(&flags.Security, "security", false, "run the security scanner per file")
	fs.BoolVar(&flags.Dataflow, "dataflow", false, "run the taint analyzer per file")
	fs.BoolVar(&flags.Refactoring, "refactoring", false, "run the refactoring analyzer per file")
	fs.IntVar(&flags.CouplingThreshold, "coupling-threshold", 0, "extraction-candidate coupling threshold (default 3)")
	fs.StringVar(&flags.Impact, "impact", "", "run impact analysis against the named function")
	fs.IntVar(&flags.MaxDepth, "max-depth", 0, "caller traversal depth for impact analysis (default 3)")
	fs.BoolVar(&flags.IncludeExternal, "include-external", false, "keep references to unresolved external targets")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(flags.Root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	opts := engine.Options{
		Workers:           flags.Workers,
		Excludes:          cfg.Excludes(),
		IncludeExternal:   flags.IncludeExternal || cfg.IncludeExternal,
		Complexity:        flags.Complexity,
		Security:          flags.Security,
		Dataflow:          flags.Dataflow,
		Refactoring:       flags.Refactoring,
		CouplingThreshold: flags.CouplingThreshold,
		ImpactTarget:      flags.Impact,
		MaxCallerDepth:    flags.MaxDepth,
	}
	if opts.Workers == 0 {
		opts.Workers = cfg.Workers
	}
	if opts.CouplingThreshold == 0 {
		opts.CouplingThreshold = cfg.CouplingThreshold
	}
	if opts.MaxCallerDepth == 0 {
		opts.MaxCallerDepth = cfg.MaxCallerDepth
	}
	if flags.Languages != "" {
		opts.Languages = splitList(flags.Languages)
	} else {
		opts.Languages = cfg.Languages
	}

	res, err := engine.New(nil).ScanDir(context.Background(), flags.Root, opts)
	if err != nil {
		return err
	}

	if flags.Verbose || cfg.Verbose {
		log.Printf("scanned %d files (%d failed): %d entities, %d references",
			res.Stats.FilesScanned, res.Stats.FilesFailed,
			res.Stats.Entities, res.Stats.References)
		for _, fe := range res.Errors {
			log.Printf("skipped %s", fe.Error())
		}
	}

	switch flags.Format {
	case "json":
		return export.WriteJSON(os.Stdout, res)
	case "mermaid":
		_, err := fmt.Print(export.GenerateMermaid(res))
		return err
	default:
		return fmt.Errorf("unknown format: %s", flags.Format)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
