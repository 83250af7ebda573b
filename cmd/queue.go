package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noctivagous/todotracker/internal/config"
	"github.com/noctivagous/todotracker/internal/engine"
	"github.com/noctivagous/todotracker/internal/store"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and reorder the execution queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the execution queue in order",
	RunE:  runQueueList,
}

var queueAddCmd = &cobra.Command{
	Use:   "add <task-id>",
	Short: "Append a task to the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueAdd,
}

var queueRemoveCmd = &cobra.Command{
	Use:   "remove <task-id>",
	Short: "Remove a task from the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueRemove,
}

var queueUpCmd = &cobra.Command{
	Use:   "up <task-id>",
	Short: "Move a task one position earlier",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueUp,
}

var queueDownCmd = &cobra.Command{
	Use:   "down <task-id>",
	Short: "Move a task one position later",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueDown,
}

var queueNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Repair queue numbering to a contiguous 1..N",
	RunE:  runQueueNormalize,
}

func init() {
	queueListCmd.Flags().Int("min-size", 0, "only show tasks at least this size (1-5)")
	queueListCmd.Flags().Int("max-size", 0, "only show tasks at most this size (1-5)")
	queueListCmd.Flags().Int("limit", 0, "cap the number of tasks shown")

	queueCmd.AddCommand(queueListCmd, queueAddCmd, queueRemoveCmd, queueUpCmd, queueDownCmd, queueNormalizeCmd)
	rootCmd.AddCommand(queueCmd)
}

func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func runQueueList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, _, cleanup, err := openEngine(ctx, config.Load())
	if err != nil {
		return err
	}
	defer cleanup()

	var f store.QueuedFilter
	if v, _ := cmd.Flags().GetInt("min-size"); v != 0 {
		f.MinSize = &v
	}
	if v, _ := cmd.Flags().GetInt("max-size"); v != 0 {
		f.MaxSize = &v
	}
	f.Limit, _ = cmd.Flags().GetInt("limit")

	tasks, err := eng.Queued(ctx, f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "Queue is empty.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tID\tSTATUS\tSIZE\tCLASS\tTITLE")
	for _, t := range tasks {
		size := "-"
		if t.TaskSize != nil {
			size = strconv.Itoa(*t.TaskSize)
		}
		class := "-"
		if t.PriorityClass != nil {
			class = *t.PriorityClass
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n", t.Queue, t.ID, t.Status, size, class, t.Title)
	}
	return w.Flush()
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	return queueMutate(cmd, args[0], "queued at position %d", func(c *queueCtx, id int64) (*store.Task, error) {
		return c.eng.AddToQueue(c.ctx, id)
	})
}

func runQueueRemove(cmd *cobra.Command, args []string) error {
	return queueMutate(cmd, args[0], "removed from queue", func(c *queueCtx, id int64) (*store.Task, error) {
		return c.eng.RemoveFromQueue(c.ctx, id)
	})
}

func runQueueUp(cmd *cobra.Command, args []string) error {
	return queueMutate(cmd, args[0], "moved to position %d", func(c *queueCtx, id int64) (*store.Task, error) {
		return c.eng.MoveUp(c.ctx, id)
	})
}

func runQueueDown(cmd *cobra.Command, args []string) error {
	return queueMutate(cmd, args[0], "moved to position %d", func(c *queueCtx, id int64) (*store.Task, error) {
		return c.eng.MoveDown(c.ctx, id)
	})
}

func runQueueNormalize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, _, cleanup, err := openEngine(ctx, config.Load())
	if err != nil {
		return err
	}
	defer cleanup()

	if err := eng.Normalize(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Queue normalized.")
	return nil
}

type queueCtx struct {
	ctx context.Context
	eng *engine.Engine
}

// queueMutate runs one queue operation against a task id argument and prints
// the result. The format string may reference the task's new position.
func queueMutate(cmd *cobra.Command, arg, format string, op func(*queueCtx, int64) (*store.Task, error)) error {
	id, err := parseTaskID(arg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eng, _, cleanup, err := openEngine(ctx, config.Load())
	if err != nil {
		return err
	}
	defer cleanup()

	task, err := op(&queueCtx{ctx: ctx, eng: eng}, id)
	if err != nil {
		return err
	}

	msg := format
	if strings.Contains(format, "%d") {
		msg = fmt.Sprintf(format, task.Queue)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Task %d (%s) %s\n", task.ID, task.Title, msg)
	return nil
}
