package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/yourorg/cc-corpus/internal/config"
	"github.com/yourorg/cc-corpus/internal/ledger"
	"github.com/yourorg/cc-corpus/internal/record"
)

func runList(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file (yaml)")
	ledgerDir := fs.String("ledger", "", "badger ledger directory")
	stage := fs.String("stage", "", "only records at this stage")
	summary := fs.Bool("summary", false, "print record counts per stage")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	l, err := openLedger(*cfgPath, *ledgerDir)
	if err != nil {
		return err
	}
	defer l.Close()

	if *summary {
		return printCounts(l, *jsonOut)
	}

	var entries []ledger.Entry
	if *stage != "" {
		st, err := record.ParseStage(*stage)
		if err != nil {
			return err
		}
		entries, err = l.ListByStage(st)
		if err != nil {
			return err
		}
	} else if entries, err = l.List(); err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(entries)
	}
	for _, e := range entries {
		line := fmt.Sprintf("%-40s %-14s %s", e.Record.ID, e.Record.Stage, e.UpdatedAt.Format("2006-01-02T15:04:05Z"))
		if e.Error != "" {
			line += "  " + e.Error
		}
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintf(stdout, "total: %d\n", len(entries))
	return nil
}

func printCounts(l *ledger.Ledger, jsonOut bool) error {
	counts, err := l.Counts()
	if err != nil {
		return err
	}
	if jsonOut {
		byName := make(map[string]int, len(counts))
		for st, n := range counts {
			byName[st.String()] = n
		}
		return printJSON(byName)
	}
	for _, st := range record.Stages() {
		if n := counts[st]; n > 0 {
			fmt.Fprintf(stdout, "%-14s %d\n", st, n)
		}
	}
	return nil
}

// runForget drops records from the ledger so the next run starts them
// from the files on disk.
func runForget(args []string) error {
	fs := flag.NewFlagSet("forget", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file (yaml)")
	ledgerDir := fs.String("ledger", "", "badger ledger directory")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("expected record ids or crawl urls")
	}
	l, err := openLedger(*cfgPath, *ledgerDir)
	if err != nil {
		return err
	}
	defer l.Close()
	for _, arg := range fs.Args() {
		id := arg
		if u, err := record.ParseURL(arg); err == nil {
			id = u.ID()
		}
		if err := l.Delete(id); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "forgot", id)
	}
	return nil
}

func openLedger(cfgPath, dir string) (*ledger.Ledger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	override(&cfg.LedgerDir, dir)
	if cfg.LedgerDir == "" {
		return nil, errors.New("--ledger (or ledger_dir) is required")
	}
	return ledger.Open(cfg.LedgerDir)
}

func runPath(args []string) error {
	fs := flag.NewFlagSet("path", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file (yaml)")
	root := fs.String("root", "", "storage root (cc_path) override")
	stage := fs.String("stage", "", "print only this stage's path")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected exactly one crawl url")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	override(&cfg.Root, *root)
	layout, err := record.NewLayout(cfg.Root)
	if err != nil {
		return err
	}
	rec, err := record.FromURL(fs.Arg(0), layout)
	if err != nil {
		return err
	}

	stages := record.Stages()
	if *stage != "" {
		st, err := record.ParseStage(strings.TrimSpace(*stage))
		if err != nil {
			return err
		}
		stages = []record.Stage{st}
	}
	for _, st := range stages {
		if st == record.Void || st == record.Error {
			continue
		}
		p, err := rec.Path(st)
		if err != nil {
			return err
		}
		if len(stages) == 1 {
			fmt.Fprintln(stdout, p)
			continue
		}
		fmt.Fprintf(stdout, "%-14s %s\n", st, p)
	}
	return nil
}
