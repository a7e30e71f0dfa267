// Command pirex manages a PIREX library file on the local disk and runs
// boolean searches against it.
//
// Usage:
//
//	pirex --dir data add --author "Herman Melville" --title "Moby Dick" moby.txt
//	pirex --dir data search "white ^ whale ~ ship"
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/library"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/logger"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "pirex",
		Usage:     "Catalog works and run boolean searches over their documents",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory holding the library file",
				Value:   "data",
				EnvVars: []string{"PIREX_STORAGE_SNAPSHOT_DIR"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Catalog a plain-text work; each paragraph becomes a document",
				ArgsUsage: "<file>",
				Action:    addCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author of the work", Required: true},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Title of the work", Required: true},
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove the opus with the given ordinal",
				ArgsUsage: "<ordinal>",
				Action:    removeCommand,
			},
			{
				Name:   "purge",
				Usage:  "Remove every opus from the library",
				Action: purgeCommand,
			},
			{
				Name:   "summary",
				Usage:  "Print the cataloged works and index totals",
				Action: summaryCommand,
			},
			{
				Name:      "search",
				Usage:     "Search the library with a boolean query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum documents to print (0 prints all)"},
					&cli.BoolFlag{Name: "strict", Usage: "Keep an empty intermediate match set empty"},
					&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	slog.SetDefault(logger.New(c.App.ErrWriter, c.String("log-level"), "text"))
	return nil
}

func openLibrary(c *cli.Context, opts ...library.Option) (*library.Library, error) {
	store := snapshot.NewStore(c.String("dir"))
	opts = append(opts, library.WithPersister(store, config.BackendFile))
	lib := library.New(opts...)
	if err := lib.Open(c.Context); err != nil {
		return nil, err
	}
	return lib, nil
}

func addCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("add takes exactly one file")
	}
	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	summary, err := lib.AddFile(c.Context, c.String("author"), c.String("title"), c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "OPUS %d: %s\t%s\t%d documents\n", summary.Ordinal, summary.Author, summary.Title, summary.Documents)
	fmt.Fprintf(c.App.Writer, "Index Terms: %d\nPostings: %d\n", summary.Terms, summary.Postings)
	return nil
}

func removeCommand(c *cli.Context) error {
	ordinal, err := strconv.Atoi(c.Args().First())
	if err != nil || ordinal < 1 {
		return fmt.Errorf("remove needs a positive opus ordinal, got %q", c.Args().First())
	}
	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	if err := lib.RemoveOpus(c.Context, ordinal); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed opus %d\n", ordinal)
	return nil
}

func purgeCommand(c *cli.Context) error {
	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	n := lib.Stats().Opi
	lib.Purge(c.Context)
	fmt.Fprintf(c.App.Writer, "purged %d opi\n", n)
	return nil
}

func summaryCommand(c *cli.Context) error {
	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, lib.Summary())
	return nil
}

func searchCommand(c *cli.Context) error {
	raw := strings.Join(c.Args().Slice(), " ")
	lib, err := openLibrary(c, library.WithExecutorOptions(executor.WithStrictEmpty(c.Bool("strict"))))
	if err != nil {
		return err
	}
	result, err := lib.Search(c.Context, raw, c.Int("limit"))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(c.App.Writer, result)
	return nil
}

func printResult(w io.Writer, result *executor.SearchResult) {
	terms := make([]string, len(result.Terms))
	for i, t := range result.Terms {
		terms[i] = t.Text
	}
	fmt.Fprintf(w, "query: [%s] advanced=%t\n", strings.Join(terms, " "), result.Advanced)
	fmt.Fprintf(w, "%d matching documents\n", result.TotalHits)
	for _, h := range result.Results {
		fmt.Fprintf(w, "OPUS %d DOC %d (%s, %s): %s\n", h.OpusOrdinal, h.DocOrdinal, h.Author, h.Title, h.Preview)
	}
	if len(result.Results) < result.TotalHits {
		fmt.Fprintf(w, "... %d more\n", result.TotalHits-len(result.Results))
	}
}
