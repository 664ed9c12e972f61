// Package app wires configuration, logging, the contact store and the shell into the root
// command of the contact book.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/contact-book/internal/config"
	"gitlab.com/dirk.krummacker/contact-book/internal/logging"
	"gitlab.com/dirk.krummacker/contact-book/internal/shell"
	"gitlab.com/dirk.krummacker/contact-book/internal/store"
	"go.uber.org/zap"
)

// NewRootCommand returns the contact-book command. Every call returns an independent command, so
// tests can run it several times.
func NewRootCommand() *cobra.Command {
	v := config.NewViper()
	var configFile string

	cmd := &cobra.Command{
		Use:   "contact-book",
		Short: "Store, search, update and delete personal contacts",
		Long: `contact-book keeps names, phone numbers and email addresses in a local SQLite file
and lets you manage them from an interactive menu.

Settings can be given in contactbook.yaml, as CONTACTBOOK_* environment variables, or as flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default ./contactbook.yaml)")
	flags.String("db", "", "path of the SQLite database file (default contacts.db)")
	flags.String("log-file", "", "write diagnostic logs to this file")
	_ = v.BindPFlag("database.path", flags.Lookup("db"))
	_ = v.BindPFlag("log.file", flags.Lookup("log-file"))
	return cmd
}

// run opens the store and hands the console to the shell until the operator exits.
func run(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sqlDB, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	contacts, err := store.New(sqlDB, logger)
	if err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("open contact store %s: %w", cfg.Database.Path, err)
	}
	defer contacts.Close()

	logger.Info("contact book started", zap.String("database", cfg.Database.Path))
	sh := shell.New(contacts, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	if err := sh.Run(cmd.Context()); err != nil {
		return err
	}
	logger.Info("contact book stopped")
	return nil
}
