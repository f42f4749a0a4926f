// Package cli implements the ccpipe command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

var stdout io.Writer = os.Stdout

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}
	switch args[0] {
	case "run":
		return runBatch(args[1:])
	case "ls":
		return runList(args[1:])
	case "forget":
		return runForget(args[1:])
	case "path":
		return runPath(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Fprintln(stdout, "ccpipe: fetch, stage and extract Common Crawl WARC segments")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Commands:")
	fmt.Fprintln(stdout, "  run     take archives to the preprocessed stage (urls as args or --jobs file)")
	fmt.Fprintln(stdout, "  ls      list records known to the ledger, optionally by stage")
	fmt.Fprintln(stdout, "  forget  drop records from the ledger")
	fmt.Fprintln(stdout, "  path    print the stage paths of a crawl url")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Every command accepts --config <file.yaml>; CC_* env vars override it.")
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
