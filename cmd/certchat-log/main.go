// Command certchat-log is a tool for viewing and analyzing certchat protocol
// log files.
//
// Log files are written by certchat when it runs with -protocol-log.
//
// Usage:
//
//	certchat-log <command> [flags] <file.clog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	certchat-log view alice.clog
//
//	# View only the handshake
//	certchat-log view -layer handshake alice.clog
//
//	# View traffic received from bob
//	certchat-log view -direction in -peer bob alice.clog
//
//	# Export to JSONL
//	certchat-log export -format jsonl alice.clog
//
//	# Keep one connection
//	certchat-log filter -conn-id 0f3c9a1e-7d2b-4c55-9e61-2a8f3b7c1d40 -o one.clog alice.clog
//
//	# Show statistics
//	certchat-log stats alice.clog
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/certchat/certchat-go/cmd/certchat-log/commands"
	"github.com/certchat/certchat-go/pkg/version"
)

const (
	viewSummary   = "View log file in human-readable format"
	exportSummary = "Export log file to JSON or CSV format"
	filterSummary = "Filter log file and write to new file"
	statsSummary  = "Show statistics about the log file"
)

type subcommand struct {
	name    string
	summary string
	run     func(args []string)
}

var subcommands = []subcommand{
	{"view", viewSummary, runView},
	{"export", exportSummary, runExport},
	{"filter", filterSummary, runFilter},
	{"stats", statsSummary, runStats},
	{"version", "Show the certchat-log version", func([]string) { fmt.Println(version.String("certchat-log")) }},
}

func usage() string {
	var b strings.Builder
	b.WriteString("certchat-log - certchat Protocol Log Analyzer\n\n")
	b.WriteString("Usage:\n  certchat-log <command> [flags] <file.clog>\n\nCommands:\n")
	for _, sc := range subcommands {
		fmt.Fprintf(&b, "  %-8s %s\n", sc.name, sc.summary)
	}
	b.WriteString("\nUse \"certchat-log <command> -help\" for more information about a command.\n")
	return b.String()
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage())
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "-h", "-help", "--help", "help":
		fmt.Print(usage())
		return
	}
	for _, sc := range subcommands {
		if sc.name == name {
			sc.run(os.Args[2:])
			return
		}
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
	fmt.Fprint(os.Stderr, usage())
	os.Exit(1)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// newFlagSet builds the flag set for a subcommand whose usage line is
// "certchat-log <name> <synopsis>".
func newFlagSet(name, summary, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "certchat-log %s - %s\n\nUsage:\n  certchat-log %s %s\n", name, summary, name, synopsis)
		hasFlags := false
		fs.VisitAll(func(*flag.Flag) { hasFlags = true })
		if hasFlags {
			fmt.Fprint(os.Stderr, "\nFlags:\n")
			fs.PrintDefaults()
		}
	}
	return fs
}

// parse parses args and returns the single positional log path, exiting
// with usage when it is missing.
func parse(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := newFlagSet("view", viewSummary, "[flags] <file.clog>")
	layer := fs.String("layer", "", "Filter by layer (transport, handshake, session)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, state, error)")
	peer := fs.String("peer", "", "Filter by peer certificate subject")
	path := parse(fs, args)

	filter := commands.ViewFilter{Peer: *peer}
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fail(err)
		}
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fail(err)
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", exportSummary, "[flags] <file.clog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := parse(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", filterSummary, "-o <out.clog> [flags] <file.clog>")
	var opts commands.FilterOptions
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	fs.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVar(&opts.Peer, "peer", "", "Filter by peer certificate subject")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, handshake, session)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, state, error)")
	path := parse(fs, args)

	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, opts.Output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", statsSummary, "<file.clog>")
	path := parse(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
