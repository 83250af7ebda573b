package engine

import (
	"context"
	"fmt"

	"github.com/noctivagous/todotracker/internal/store"
	"github.com/noctivagous/todotracker/internal/telemetry"
)

// DependencyInfo is a dependency edge resolved with the counterpart task's
// summary. For Prerequisites the counterpart is the task depended upon;
// for Dependents it is the waiting task.
type DependencyInfo struct {
	Edge store.Dependency
	Task store.TaskSummary
}

// AddDependency records that dependent must wait for prerequisite to
// complete. Self-edges are rejected, missing tasks are reported, and an
// edge that would close a cycle is refused before anything is written.
// Adding an edge that already exists returns the existing edge unchanged.
func (e *Engine) AddDependency(ctx context.Context, dependentID, prerequisiteID int64) (*store.Dependency, error) {
	if dependentID == prerequisiteID {
		return nil, fmt.Errorf("%w: task %d cannot depend on itself", ErrInvalidArgument, dependentID)
	}

	var (
		edge    *store.Dependency
		created bool
	)
	err := e.withTx(ctx, func(tx *store.Tx) error {
		for _, id := range []int64{dependentID, prerequisiteID} {
			ok, err := tx.TaskExists(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: task %d", ErrNotFound, id)
			}
		}

		// The new edge closes a cycle exactly when the prerequisite already
		// reaches the dependent through existing depends-on edges.
		onPath, err := hasPath(ctx, tx, prerequisiteID, dependentID)
		if err != nil {
			return err
		}
		if onPath {
			return fmt.Errorf("%w: %d depends on %d", ErrCycle, dependentID, prerequisiteID)
		}

		existing, err := tx.FindDependency(ctx, dependentID, prerequisiteID)
		if err != nil {
			return err
		}
		if existing != nil {
			edge = existing
			return nil
		}

		edge, err = tx.InsertDependency(ctx, dependentID, prerequisiteID)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		e.record(telemetry.KindDependencyAdded, dependentID, map[string]any{
			"depends_on": prerequisiteID,
		})
	}
	return edge, nil
}

// RemoveDependency deletes a dependency edge by id. Queue state is not
// affected.
func (e *Engine) RemoveDependency(ctx context.Context, edgeID int64) error {
	var taskID int64
	err := e.withTx(ctx, func(tx *store.Tx) error {
		edge, err := tx.Dependency(ctx, edgeID)
		if err != nil {
			return err
		}
		if edge == nil {
			return fmt.Errorf("%w: dependency %d", ErrNotFound, edgeID)
		}
		taskID = edge.TaskID
		_, err = tx.DeleteDependency(ctx, edgeID)
		return err
	})
	if err != nil {
		return err
	}
	e.record(telemetry.KindDependencyRemoved, taskID, map[string]any{"edge": edgeID})
	return nil
}

// Prerequisites returns the tasks the given task depends on, one entry per
// edge with the prerequisite's summary attached.
func (e *Engine) Prerequisites(ctx context.Context, taskID int64) ([]DependencyInfo, error) {
	return e.resolvedEdges(ctx, taskID, prerequisites)
}

// Dependents returns the tasks waiting on the given task, one entry per
// edge with the dependent's summary attached.
func (e *Engine) Dependents(ctx context.Context, taskID int64) ([]DependencyInfo, error) {
	return e.resolvedEdges(ctx, taskID, dependents)
}

type edgeDirection int

const (
	prerequisites edgeDirection = iota
	dependents
)

func (e *Engine) resolvedEdges(ctx context.Context, taskID int64, dir edgeDirection) ([]DependencyInfo, error) {
	var infos []DependencyInfo
	err := e.withTx(ctx, func(tx *store.Tx) error {
		ok, err := tx.TaskExists(ctx, taskID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: task %d", ErrNotFound, taskID)
		}

		var edges []store.Dependency
		if dir == prerequisites {
			edges, err = tx.DependenciesOf(ctx, taskID)
		} else {
			edges, err = tx.DependentsOf(ctx, taskID)
		}
		if err != nil {
			return err
		}

		for _, edge := range edges {
			counterpart := edge.DependsOnID
			if dir == dependents {
				counterpart = edge.TaskID
			}
			summary, err := tx.TaskSummary(ctx, counterpart)
			if err != nil {
				return err
			}
			if summary == nil {
				// Edge rows cascade with their tasks, so a dangling edge
				// means the database was edited externally. Skip it.
				continue
			}
			infos = append(infos, DependencyInfo{Edge: edge, Task: *summary})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// IsReady reports whether all of a task's prerequisites have completed. A
// task with no prerequisites is ready. A cancelled prerequisite does not
// satisfy the dependency; only completed does.
func (e *Engine) IsReady(ctx context.Context, taskID int64) (bool, error) {
	ready := true
	err := e.withTx(ctx, func(tx *store.Tx) error {
		ok, err := tx.TaskExists(ctx, taskID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: task %d", ErrNotFound, taskID)
		}
		edges, err := tx.DependenciesOf(ctx, taskID)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			summary, err := tx.TaskSummary(ctx, edge.DependsOnID)
			if err != nil {
				return err
			}
			if summary != nil && summary.Status != store.StatusCompleted {
				ready = false
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return ready, nil
}

// hasPath reports whether dst is reachable from src by following
// depends-on edges forward. The visited set guarantees termination even
// on malformed graphs that already contain a cycle.
func hasPath(ctx context.Context, tx *store.Tx, src, dst int64) (bool, error) {
	visited := make(map[int64]bool)
	stack := []int64{src}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == dst {
			return true, nil
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		next, err := tx.DependsOnIDs(ctx, current)
		if err != nil {
			return false, err
		}
		stack = append(stack, next...)
	}
	return false, nil
}
