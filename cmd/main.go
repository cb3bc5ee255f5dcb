package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/eatonphil/sqlview"
)

type options struct {
	databasePath string
	host         string
	port         int
	debug        bool
	cors         bool
	historyFile  string
}

func (o options) config() sqlview.Config {
	cfg := sqlview.DefaultConfig()
	cfg.DatabasePath = o.databasePath
	cfg.Host = o.host
	cfg.Port = o.port
	cfg.Debug = o.debug
	cfg.CORS = o.cors
	cfg.HistoryFile = o.historyFile
	return cfg
}

func newLogger(debug bool) *logrus.Logger {
	logger := logrus.New()
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.Infof("log level %s", logger.Level)
	return logger
}

func addDatabaseFlags(fs *pflag.FlagSet, o *options) {
	fs.StringVar(&o.databasePath, "db", os.Getenv("SQLVIEW_DB"), "path to the SQLite database file")
	fs.BoolVar(&o.debug, "debug", false, "use debug log level")
}

func newRootCmd() *cobra.Command {
	o := options{}
	defaults := sqlview.DefaultConfig()

	cmd := &cobra.Command{
		Use:          "sqlview",
		Short:        "Browse and query a SQLite database from the browser",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(o.debug)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			err := sqlview.ListenAndServe(ctx, o.config(), logger)
			if errors.Is(err, sqlview.ErrDatabaseNotFound) {
				logger.Error("Make sure the database exists and the path is correct.")
			}
			return err
		},
	}

	addDatabaseFlags(cmd.PersistentFlags(), &o)
	cmd.Flags().StringVar(&o.host, "host", defaults.Host, "host to listen on")
	cmd.Flags().IntVar(&o.port, "port", defaults.Port, "port to listen on")
	cmd.Flags().BoolVar(&o.cors, "cors", defaults.CORS, "allow cross-origin requests")

	cmd.AddCommand(newShellCmd(&o))

	return cmd
}

func newShellCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "shell",
		Short:        "Open an interactive read-only prompt on the database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.config()
			if err := cfg.Validate(); err != nil {
				return err
			}

			return sqlview.RunRepl(cmd.Context(), sqlview.NewGateway(cfg.DatabasePath), cfg.HistoryFile)
		},
	}

	cmd.Flags().StringVar(&o.historyFile, "history", sqlview.DefaultConfig().HistoryFile, "file to keep prompt history in")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
