package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/djivites/startup-intelligence-rag-sample/internal/config"
	"github.com/djivites/startup-intelligence-rag-sample/internal/feed"
	"github.com/djivites/startup-intelligence-rag-sample/internal/index"
	"github.com/djivites/startup-intelligence-rag-sample/internal/ingest"
	"github.com/djivites/startup-intelligence-rag-sample/internal/query"
	"github.com/djivites/startup-intelligence-rag-sample/internal/retrieval"
	"github.com/djivites/startup-intelligence-rag-sample/internal/storage"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Crawl configured feeds and archive new articles",
	Long: `Crawl configured feeds and archive new articles.

URLs already recorded as processed are skipped without fetching.

Examples:
  startupintel ingest
  startupintel ingest --source blog
  startupintel ingest --extract-facts`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.cfg.Feeds.LoadFeeds()
		if err != nil {
			return err
		}
		sources, err := feedSources(entries, source)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			printWarning("No feeds configured for source %q", source)
			return nil
		}

		withFacts := a.cfg.Ingest.ExtractFacts
		if cmd.Flags().Changed("extract-facts") {
			withFacts, _ = cmd.Flags().GetBool("extract-facts")
		}

		ctx, stop := signalContext()
		defer stop()

		if withFacts {
			if err := a.ensureEngine(ctx); err != nil {
				return err
			}
		}

		stats, err := a.pipeline(withFacts, ingest.ObserverFunc(printEvent)).Run(ctx, sources)
		if err != nil {
			return err
		}
		printSuccess("Run %d: %d archived, %d marked, %d skipped, %d too short, %d failed",
			stats.RunID, stats.Archived, stats.Marked, stats.Skipped, stats.TooShort, stats.Failed)
		if withFacts {
			printStatus("Facts", "%d extracted, %d degraded", stats.Facts, stats.Degraded)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("source", "all", "feeds to crawl: news, blog or all")
	ingestCmd.Flags().Bool("extract-facts", false, "extract facts for each archived article (default from ingest.extract_facts)")
}

// --- facts ---

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Extract structured facts from archived articles",
	Long: `Extract structured facts from archived articles that have no fact
record yet. Records are written as JSON under <data_dir>/processed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		kinds, err := kindsFor(kind)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()
		if err := a.ensureEngine(ctx); err != nil {
			return err
		}

		p := a.pipeline(true, ingest.ObserverFunc(printEvent))
		for _, k := range kinds {
			stats, err := p.ExtractArchived(ctx, k)
			if err != nil {
				return fmt.Errorf("extracting %s facts: %w", k, err)
			}
			printSuccess("%s: %d articles, %d extracted, %d degraded, %d already done, %d failed",
				k, stats.Articles, stats.Extracted, stats.Degraded, stats.Existing, stats.Failed)
		}
		return nil
	},
}

func init() {
	factsCmd.Flags().String("kind", "all", "archive to process: news, blog or all")
}

// --- index ---

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed fact records into the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		prune, _ := cmd.Flags().GetBool("prune")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()
		if err := a.ensureEngine(ctx); err != nil {
			return err
		}

		res, err := index.New(a.embedder(), a.vectors).WithPrune(prune).Build(ctx, a.cfg.Storage.FactsDir())
		if err != nil {
			return err
		}
		printSuccess("Indexed %d documents (%d skipped, %d pruned)", res.Indexed, res.Skipped, res.Pruned)
		return nil
	},
}

func init() {
	indexCmd.Flags().Bool("prune", false, "remove indexed documents whose fact record is gone")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed facts",
	Long: `Answer a question from the indexed facts.

Without arguments, starts an interactive session where follow-up questions
are rewritten using the conversation so far. An empty line exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _ := cmd.Flags().GetInt("k")
		sourceType, _ := cmd.Flags().GetString("source")
		sessionID, _ := cmd.Flags().GetString("session")
		showDocs, _ := cmd.Flags().GetBool("show-docs")
		if sourceType != "" {
			kind, err := feed.ParseKind(sourceType)
			if err != nil {
				return err
			}
			sourceType = string(kind)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()
		if err := a.ensureEngine(ctx); err != nil {
			return err
		}

		svc := a.query(a.sessions())
		ask := func(q string) error {
			ans, err := svc.Ask(ctx, query.Request{Question: q, SessionID: sessionID, TopK: k, SourceType: sourceType})
			if err != nil {
				return err
			}
			if ans.StandaloneQuestion != ans.Question {
				printStatus("Question", "%s", ans.StandaloneQuestion)
			}
			fmt.Println(ans.Text)
			if showDocs {
				printChunks(ans.Documents)
			}
			return nil
		}

		if len(args) > 0 {
			return ask(strings.Join(args, " "))
		}

		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		sc := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, colorize(ansiCyan, "? "))
			if !sc.Scan() {
				return sc.Err()
			}
			q := strings.TrimSpace(sc.Text())
			if q == "" {
				return nil
			}
			if err := ask(q); err != nil {
				printError("%v", err)
			}
			fmt.Println()
		}
	},
}

func init() {
	askCmd.Flags().Int("k", 0, "number of documents to retrieve (default retrieval.top_k)")
	askCmd.Flags().String("source", "", "restrict retrieval to news or blog documents")
	askCmd.Flags().String("session", "", "session id for follow-up questions")
	askCmd.Flags().Bool("show-docs", false, "print the documents the answer was grounded on")
}

// --- recall ---

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Semantic search over the indexed facts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		chunks, err := a.query(nil).Recall(ctx, q, limit)
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		printChunks(chunks)
		return nil
	},
}

func init() {
	recallCmd.Flags().Int("limit", 5, "maximum number of results")
}

func printChunks(chunks []retrieval.Chunk) {
	for i, c := range chunks {
		fmt.Printf("\n%s [score: %.3f]\n", colorize(ansiBold, fmt.Sprintf("Result %d", i+1)), c.Score)
		if c.SourceURL != "" {
			fmt.Printf("  Source: %s\n", c.SourceURL)
		}
		text := c.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Printf("  %s\n", strings.ReplaceAll(text, "\n", "\n  "))
	}
}

// --- processed ---

var processedCmd = &cobra.Command{
	Use:   "processed",
	Short: "Inspect the processed URL table",
}

var processedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List processed URLs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.MetadataDir())
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		rows, err := store.ListProcessedURLs(cmd.Context(), storage.ListFilter{Source: source, Limit: limit})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No processed URLs.")
			return nil
		}
		for _, r := range rows {
			fmt.Printf("%s  %-12s  %s\n",
				r.CreatedAt.Format("2006-01-02 15:04"),
				colorize(ansiCyan, r.Source),
				r.URL,
			)
		}
		return nil
	},
}

func init() {
	processedListCmd.Flags().String("source", "", "filter by source tag: funding_news or blog")
	processedListCmd.Flags().Int("limit", 20, "maximum number of rows (0 for all)")
	processedCmd.AddCommand(processedListCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE\tTYPE\tENV")
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.Key, k.Value, k.Type, k.Env)
		}
		return tw.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value.\n\nValid keys:\n  " +
		strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
