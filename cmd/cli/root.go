package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

// app is the state shared by every subcommand once the root has loaded the
// config.
type app struct {
	configPath string
	cfg        utils.Config
	log        *logger.Logger
	db         *sql.DB
}

func (a *app) openDB() (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.Open(database.FromSettings(a.cfg.Database))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	if a.log != nil {
		a.log.Sync()
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "jornada",
		Short:         "Study plan and catalog tools for Jornada de Dados",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := utils.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			mode := "prod"
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				mode = "dev"
			}
			if a.log, err = logger.New(mode); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", utils.DefaultConfigPath(), "config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	root.AddCommand(
		newSearchCmd(a),
		newReconcileCmd(a),
		newProgressCmd(a),
		newTracksCmd(a),
		newWatchCmd(a),
		newHashPasswordCmd(),
	)
	return root
}
