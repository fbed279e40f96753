package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anuragrao04/classroom-attendance/bootstrap"
	"github.com/anuragrao04/classroom-attendance/config"
	"github.com/anuragrao04/classroom-attendance/database"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Classroom attendance server with rotating QR and manual codes",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
}

// initStore loads configuration, sets up logging and opens the database.
func initStore() (config.Config, *database.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	bootstrap.Log(cfg.Log, debug)
	store, err := database.Connect(database.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
		Log:    logrus.WithField("component", "database"),
	})
	if err != nil {
		return cfg, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return cfg, nil, err
	}
	return cfg, store, nil
}
