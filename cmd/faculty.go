package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anuragrao04/classroom-attendance/auth"
)

var facultyCmd = &cobra.Command{
	Use:   "faculty",
	Short: "Manage faculty accounts",
}

var (
	facultyUsername string
	facultyPassword string
)

var facultyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a faculty account",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := initStore()
		if err != nil {
			return err
		}
		defer store.Close()
		f, err := auth.RegisterFaculty(context.Background(), store, facultyUsername, facultyPassword)
		if err != nil {
			return errors.WithMessage(err, "could not add faculty")
		}
		logrus.WithFields(logrus.Fields{"id": f.ID, "username": f.Username}).Info("faculty added")
		return nil
	},
}

func init() {
	facultyAddCmd.Flags().StringVarP(&facultyUsername, "username", "u", "", "login name")
	facultyAddCmd.Flags().StringVarP(&facultyPassword, "password", "p", "", "password, at least 8 characters")
	_ = facultyAddCmd.MarkFlagRequired("username")
	_ = facultyAddCmd.MarkFlagRequired("password")
	facultyCmd.AddCommand(facultyAddCmd)
	rootCmd.AddCommand(facultyCmd)
}
