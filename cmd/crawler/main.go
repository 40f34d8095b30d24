package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/basislager/dstcrawl/app_config"
	"github.com/basislager/dstcrawl/collector"
	"github.com/basislager/dstcrawl/store"
	"github.com/basislager/dstcrawl/utils/dotenv"
	Logger "github.com/basislager/dstcrawl/utils/log"
)

var (
	flagSQLitePath  string
	flagSkipConsent bool
	flagRelations   bool
)

func newAPI(ctx context.Context, extra ...collector.Option) (*collector.API, error) {
	opts := extra
	switch {
	case flagSQLitePath != "":
		s, err := store.OpenSQLite(flagSQLitePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, collector.WithStore(s))
	case os.Getenv("DB_HOST") != "":
		s, err := store.Open()
		if err != nil {
			return nil, err
		}
		opts = append(opts, collector.WithStore(s))
	default:
		Logger.Log.Warn("no database configured, crawl results stay transient")
	}

	api := collector.NewAPI(opts...)
	if !flagSkipConsent {
		if err := api.UpdateCookies(ctx); err != nil {
			return nil, err
		}
	}
	return api, nil
}

func crawlTicker(ctx context.Context, api *collector.API, id int64) error {
	ticker, err := api.GetTicker(ctx, id)
	if err != nil {
		return err
	}
	threads, err := api.GetTickerThreads(ctx, ticker)
	if err != nil {
		return err
	}
	for _, thread := range threads {
		if _, err := api.GetThreadPostings(ctx, thread); err != nil {
			return err
		}
	}
	return nil
}

func crawlArticle(ctx context.Context, api *collector.API, id int64) error {
	article, err := api.GetArticle(ctx, id)
	if err != nil {
		return err
	}
	_, err = api.GetArticlePostings(ctx, article)
	return err
}

func parseID(arg string) (int64, error) {
	return strconv.ParseInt(arg, 10, 64)
}

func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		Logger.Log.Fatal(err)
	}

	root := &cobra.Command{
		Use:           "crawler",
		Short:         "Archive tickers, articles and their forums",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagSQLitePath, "sqlite", os.Getenv("SQLITE_PATH"), "archive into this SQLite file instead of the configured Postgres database")
	root.PersistentFlags().BoolVar(&flagSkipConsent, "skip-consent", false, "skip the cookie consent flow")

	tickerCmd := &cobra.Command{
		Use:   "ticker <id>",
		Short: "Crawl one ticker with all threads and postings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			api, err := newAPI(cmd.Context())
			if err != nil {
				return err
			}
			return crawlTicker(cmd.Context(), api, id)
		},
	}

	articleCmd := &cobra.Command{
		Use:   "article <id>",
		Short: "Crawl one article and its forum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			api, err := newAPI(cmd.Context())
			if err != nil {
				return err
			}
			return crawlArticle(cmd.Context(), api, id)
		},
	}

	userCmd := &cobra.Command{
		Use:   "user <legacy-id>",
		Short: "Resolve one user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			api, err := newAPI(cmd.Context())
			if err != nil {
				return err
			}
			var opts []collector.UserOption
			if flagRelations {
				opts = append(opts, collector.WithRelationships())
			}
			user, err := api.GetUser(cmd.Context(), id, opts...)
			if err != nil {
				return err
			}
			if user.IsDeleted() {
				Logger.Log.Infof("user %d was deleted at %s", user.ID, user.Deleted)
			} else {
				Logger.Log.Infof("user %d: %s", user.ID, *user.Name)
			}
			return nil
		},
	}
	userCmd.Flags().BoolVar(&flagRelations, "relationships", false, "also fetch followees and followers")

	ressortCmd := &cobra.Command{
		Use:   "ressort <name>",
		Short: "Crawl every ticker and article of a ressort in a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			window := app_config.RessortRange{Name: args[0], From: from, To: to}
			start, end, err := window.Dates()
			if err != nil {
				return err
			}
			api, err := newAPI(cmd.Context())
			if err != nil {
				return err
			}
			return crawlRessort(cmd.Context(), api, args[0], start, end)
		},
	}
	ressortCmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	ressortCmd.Flags().String("to", "", "end date (YYYY-MM-DD), defaults to today")
	_ = ressortCmd.MarkFlagRequired("from")

	runCmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run a crawl described by a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := app_config.ParseCrawlConfig(args[0])
			if err != nil {
				return err
			}
			var extra []collector.Option
			if config.WithRelationships {
				extra = append(extra, collector.WithRelationshipExpansion())
			}
			api, err := newAPI(cmd.Context(), extra...)
			if err != nil {
				return err
			}
			return runConfig(cmd.Context(), api, config)
		},
	}

	root.AddCommand(tickerCmd, articleCmd, userCmd, ressortCmd, runCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		Logger.Log.Fatal(err)
	}
}

func crawlRessort(ctx context.Context, api *collector.API, name string, start, end time.Time) error {
	entries, err := api.GetRessortEntries(ctx, name, start, end)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		switch entry.Kind {
		case collector.EntryTicker:
			err = crawlTicker(ctx, api, entry.ID)
		case collector.EntryArticle:
			err = crawlArticle(ctx, api, entry.ID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func runConfig(ctx context.Context, api *collector.API, config app_config.CrawlConfig) error {
	for _, id := range config.Tickers {
		if err := crawlTicker(ctx, api, id); err != nil {
			return err
		}
	}
	for _, id := range config.Articles {
		if err := crawlArticle(ctx, api, id); err != nil {
			return err
		}
	}
	for _, window := range config.Ressorts {
		start, end, err := window.Dates()
		if err != nil {
			return err
		}
		if err := crawlRessort(ctx, api, window.Name, start, end); err != nil {
			return err
		}
	}
	return nil
}
