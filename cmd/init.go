package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/noctivagous/todotracker/internal/project"
	"github.com/noctivagous/todotracker/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a tracker project in a directory",
	Long:  "Init creates the .todos directory with a project config and an empty database. Defaults to the current directory.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	dbPath, err := project.Init(abs)
	if err != nil {
		return err
	}

	// Opening the store creates the schema.
	st, err := store.Open(cmd.Context(), dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized tracker project in %s\n", abs)
	fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n", dbPath)
	return nil
}
