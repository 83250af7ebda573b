package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noctivagous/todotracker/internal/config"
	"github.com/noctivagous/todotracker/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade the project database schema",
	Long:  "Migrate applies any pending schema upgrades to the project database, backing up the file before the first change.",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().Bool("check", false, "report the schema version without migrating")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	dbPath := resolveDB(cfg)

	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", dbPath, err)
	}
	defer st.Close()

	needed, current, target, err := st.NeedsMigration(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if check, _ := cmd.Flags().GetBool("check"); check {
		fmt.Fprintf(out, "Database: %s\n", dbPath)
		fmt.Fprintf(out, "Schema version: %d (build expects %d)\n", current, target)
		if needed {
			fmt.Fprintln(out, "Migration needed: run 'todotracker migrate'")
		}
		return nil
	}

	if !needed {
		fmt.Fprintf(out, "Database is up to date (schema v%d)\n", current)
		return nil
	}

	applied, err := st.Migrate(ctx)
	if err != nil {
		return err
	}
	for _, v := range applied {
		fmt.Fprintf(out, "Applied migration v%d -> v%d\n", v, v+1)
	}
	fmt.Fprintf(out, "Database migrated to schema v%d\n", target)
	return nil
}
