// Command kiebitz administers a Kiebitz deployment: it creates system and
// mediator keys, verifies providers, derives backup secrets and runs a
// development relay.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	kiebitz "github.com/kiebitz/client-go"
)

var (
	version = "dev"

	appointmentsURL string
	storageURL      string
	rootKey         string
	storeDSN        string
	logLevel        string
	timeout         time.Duration

	logger *zap.Logger
)

func main() {
	// .env is optional and never overrides the environment.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "kiebitz",
		Short:        "Kiebitz appointment system tooling",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if appointmentsURL == "" {
				appointmentsURL = os.Getenv("KIEBITZ_APPOINTMENTS_URL")
			}
			if storageURL == "" {
				storageURL = os.Getenv("KIEBITZ_STORAGE_URL")
			}
			if rootKey == "" {
				rootKey = os.Getenv("KIEBITZ_ROOT_KEY")
			}
			if storeDSN == "" {
				storeDSN = os.Getenv("KIEBITZ_STORE_DSN")
			}
			if !cmd.Flags().Changed("log-level") {
				if lvl := os.Getenv("KIEBITZ_LOG_LEVEL"); lvl != "" {
					logLevel = lvl
				}
			}

			var err error
			logger, err = newLogger(logLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&appointmentsURL, "url", "", "appointments relay URL (or set KIEBITZ_APPOINTMENTS_URL)")
	root.PersistentFlags().StringVar(&storageURL, "storage-url", "", "backup relay URL (or set KIEBITZ_STORAGE_URL)")
	root.PersistentFlags().StringVar(&rootKey, "root-key", "", "pinned admin root public key (or set KIEBITZ_ROOT_KEY)")
	root.PersistentFlags().StringVar(&storeDSN, "store", "", "state store DSN, e.g. sqlite://kiebitz.db (or set KIEBITZ_STORE_DSN)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error (or set KIEBITZ_LOG_LEVEL)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(keysCmd(), adminCmd(), mediatorCmd(), secretCmd(), relayCmd(), versionCmd())
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}

// clientOptions builds role client options from the global flags. The
// returned close function releases the store, if one was opened.
func clientOptions() ([]kiebitz.Option, func(), error) {
	if appointmentsURL == "" {
		return nil, nil, fmt.Errorf("--url is required (or set KIEBITZ_APPOINTMENTS_URL)")
	}
	opts := []kiebitz.Option{
		kiebitz.WithBaseURL(appointmentsURL),
		kiebitz.WithTimeout(timeout),
		kiebitz.WithLogger(logger),
	}
	if storageURL != "" {
		opts = append(opts, kiebitz.WithStorageURL(storageURL))
	}
	if rootKey != "" {
		opts = append(opts, kiebitz.WithRootKey(rootKey))
	}

	closeFn := func() {}
	if storeDSN != "" {
		s, err := kiebitz.OpenStore(storeDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		opts = append(opts, kiebitz.WithStore(s))
		closeFn = func() {
			if err := s.Close(); err != nil {
				logger.Warn("failed to close store", zap.Error(err))
			}
		}
	}
	return opts, closeFn, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kiebitz version %s\n", version)
		},
	}
}
