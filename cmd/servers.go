package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noctivagous/todotracker/internal/registry"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List registered tracker servers",
	Long:  "Servers lists every tracker instance in the shared registry, dropping entries whose processes have exited.",
	RunE:  runServers,
}

func init() {
	rootCmd.AddCommand(serversCmd)
}

func runServers(cmd *cobra.Command, args []string) error {
	regDir, err := registry.DefaultDir()
	if err != nil {
		return err
	}
	reg, err := registry.New(regDir)
	if err != nil {
		return err
	}

	servers, err := reg.CleanupStale()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(servers) == 0 {
		fmt.Fprintln(out, "No tracker servers are running.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tPORT\tPID\tUPTIME\tDATABASE")
	for _, s := range servers {
		uptime := time.Since(s.StartedAt).Round(time.Second)
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", s.ProjectName, s.Port, s.PID, uptime, s.DBPath)
	}
	return w.Flush()
}
