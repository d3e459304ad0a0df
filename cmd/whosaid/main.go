package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/whosaid/whosaid/internal/config"
	"github.com/whosaid/whosaid/internal/conversation"
	"github.com/whosaid/whosaid/internal/engine"
	"github.com/whosaid/whosaid/internal/identity"
	"github.com/whosaid/whosaid/internal/live"
	"github.com/whosaid/whosaid/internal/source"
)

var (
	version    = "dev"
	commit     = "none"
	buildDate  = "unknown"
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "whosaid",
		Short: "Resolve who said what across your contacts and messages",
		Long: `Whosaid reconciles a contact export and a messaging database into a
single identity graph, then answers which messages belong to which
person and which conversation thread.`,
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(meCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(mergesCmd())
	rootCmd.AddCommand(conversationsCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{"version": version, "commit": commit, "date": buildDate})
			} else {
				fmt.Printf("whosaid %s (%s, %s)\n", version, commit, buildDate)
			}
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Default()
			if err := cfg.Save(); err != nil {
				fail("Failed to write config: %v", err)
			}
			configDir, _ := config.GetConfigDir()
			if jsonOutput {
				printJSON(map[string]any{"ok": true, "config_dir": configDir})
			} else {
				fmt.Printf("✓ Config directory: %s\n", configDir)
				fmt.Println("Edit config.yaml to point at your contacts export and chat.db.")
			}
		},
	}
}

func meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the configured local identity",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if jsonOutput {
				printJSON(cfg.Me)
				return
			}
			name := cfg.Me.Name
			if name == "" {
				name = "(unset)"
			}
			fmt.Printf("Name: %s\n", name)
			for _, p := range cfg.Me.Phones {
				fmt.Printf("Phone: %s\n", p)
			}
			for _, e := range cfg.Me.Emails {
				fmt.Printf("Email: %s\n", e)
			}
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the identity graph by name or identifier",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng := openEngine(loadConfig())
			defer eng.Close()

			candidates := eng.Resolve(args[0])
			reportNotes(eng)
			if jsonOutput {
				printJSON(identitiesJSON(candidates))
				return
			}
			if len(candidates) == 0 {
				fmt.Println("No matches.")
				return
			}
			for _, id := range candidates {
				printIdentity(id)
			}
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show identity graph statistics",
		Run: func(cmd *cobra.Command, args []string) {
			eng := openEngine(loadConfig())
			defer eng.Close()

			st := eng.Stats()
			reportNotes(eng)
			if jsonOutput {
				printJSON(st)
				return
			}
			fmt.Printf("Identities: %d\n", st.Total)
			fmt.Printf("  with phone: %d\n", st.WithPhone)
			fmt.Printf("  with email: %d\n", st.WithEmail)
			for src, n := range st.BySource {
				fmt.Printf("  from %s: %d\n", src, n)
			}
		},
	}
}

func mergesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merges",
		Short: "Show the fuzzy-merge audit trail",
		Run: func(cmd *cobra.Command, args []string) {
			eng := openEngine(loadConfig())
			defer eng.Close()

			events := eng.MergeEvents()
			if jsonOutput {
				printJSON(events)
				return
			}
			if len(events) == 0 {
				fmt.Println("No fuzzy merges.")
				return
			}
			for _, ev := range events {
				fmt.Printf("%s merged into %s (score %.2f, matched on %q)\n",
					ev.SourceKey, ev.TargetKey, ev.Score, ev.MatchedOn)
			}
		},
	}
}

func conversationsCmd() *cobra.Command {
	var limit, messages int
	var since, until string

	cmd := &cobra.Command{
		Use:   "conversations <query>",
		Short: "Show recent conversations with a person",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng := openEngine(loadConfig())
			defer eng.Close()

			candidates := eng.Resolve(args[0])
			reportNotes(eng)
			if len(candidates) == 0 {
				fail("No identity matches %q", args[0])
			}
			if len(candidates) > 1 {
				fmt.Fprintf(os.Stderr, "Ambiguous query %q matches %d identities:\n", args[0], len(candidates))
				for _, id := range candidates {
					fmt.Fprintf(os.Stderr, "  %s (%s)\n", id.DisplayName, id.Key)
				}
				os.Exit(1)
			}

			opts := conversation.Options{ConversationLimit: limit, MessageLimit: messages}
			var err error
			if opts.Since, err = parseDate(since); err != nil {
				fail("Invalid --since: %v", err)
			}
			if opts.Until, err = parseDate(until); err != nil {
				fail("Invalid --until: %v", err)
			}

			res := eng.Conversations(candidates[0], opts)
			if jsonOutput {
				printJSON(res)
				return
			}
			if res.Degraded {
				fmt.Fprintf(os.Stderr, "Degraded: %s\n", res.Detail)
				os.Exit(1)
			}
			if len(res.Conversations) == 0 {
				fmt.Println(res.Detail)
				return
			}
			for _, c := range res.Conversations {
				fmt.Printf("Thread %d with", c.ThreadID)
				for i, p := range c.Participants {
					if i > 0 {
						fmt.Print(",")
					}
					fmt.Printf(" %s", p.DisplayName)
				}
				fmt.Println()
				for _, m := range c.Messages {
					fmt.Printf("  [%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04"), m.Sender, m.Text)
				}
			}
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Max conversations to return")
	cmd.Flags().IntVar(&messages, "messages", 0, "Max messages per conversation")
	cmd.Flags().StringVar(&since, "since", "", "Only messages on/after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "Only messages on/before this date (YYYY-MM-DD)")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch source files and keep the identity graph fresh",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			eng := openEngine(cfg)
			defer eng.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			w := live.NewWatcher(eng, cfg.Sources.ContactsFile, cfg.Sources.ChatDB)
			w.Logf = log.Printf
			log.Println("Press Ctrl+C to stop")
			if err := w.Run(ctx); err != nil {
				fail("Watch failed: %v", err)
			}
		},
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	return cfg
}

// openEngine builds an engine from config. Missing sources are passed as
// nil; the engine reports them as build notes instead of refusing to run.
func openEngine(cfg *config.Config) *engine.Engine {
	var contacts source.ContactSource
	if cfg.Sources.ContactsFile != "" {
		contacts = source.NewContactFile(cfg.Sources.ContactsFile)
	}

	var messages source.MessageSource
	if cfg.Sources.ChatDB != "" {
		db, err := source.OpenChatDB(cfg.Sources.ChatDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			messages = db
		}
	}

	return engine.New(cfg, contacts, messages)
}

func reportNotes(eng *engine.Engine) {
	if jsonOutput {
		return
	}
	for _, note := range eng.BuildNotes() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", note)
	}
}

func printIdentity(id *identity.Identity) {
	fmt.Printf("%s (%s)\n", id.DisplayName, id.Key)
	for _, ident := range id.Identifiers {
		fmt.Printf("  %s: %s\n", ident.Kind, ident.Normalized)
	}
	fmt.Printf("  sources: %v\n", id.Sources)
}

type identityJSON struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"display_name"`
	Identifiers []string `json:"identifiers"`
	Sources     []string `json:"sources"`
}

func identitiesJSON(ids []*identity.Identity) []identityJSON {
	out := make([]identityJSON, 0, len(ids))
	for _, id := range ids {
		j := identityJSON{Key: id.Key, DisplayName: id.DisplayName, Sources: id.Sources}
		for _, ident := range id.Identifiers {
			j.Identifiers = append(j.Identifiers, ident.Key)
		}
		out = append(out, j)
	}
	return out
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("use YYYY-MM-DD: %w", err)
	}
	return &t, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
