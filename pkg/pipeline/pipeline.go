// Package pipeline plans and drives a whole run: topologically order
// processes from their Requires edges, run them one at a time in that
// order, and fold every process's tri-state result into on_complete
// (spec §4.6/§4.7). Independent branches are not run concurrently; only
// the jobs within one process run in parallel.
package pipeline

import (
	"context"
	"fmt"

	"pipex/pkg/model"
	"pipex/pkg/plugin"
	"pipex/pkg/process"
	"pipex/pkg/render"
)

// Pipeline is one planned, runnable instance of a model.PipelineSpec.
type Pipeline struct {
	Spec     *model.PipelineSpec
	Renderer render.Renderer
	Plugins  *plugin.Snapshot

	order []*model.ProcessSpec // topologically sorted
}

// New validates the process graph (cycle detection, unknown Requires
// names) and returns a Pipeline ready to Run.
func New(spec *model.PipelineSpec, renderer render.Renderer, plugins *plugin.Snapshot) (*Pipeline, error) {
	order, err := topoSort(spec)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Spec: spec, Renderer: renderer, Plugins: plugins, order: order}, nil
}

// topoSort orders processes so every process appears after everything it
// Requires, detecting cycles with the standard white/gray/black DFS.
func topoSort(spec *model.PipelineSpec) ([]*model.ProcessSpec, error) {
	byName := make(map[string]*model.ProcessSpec, len(spec.Processes))
	for _, p := range spec.Processes {
		byName[p.Name] = p
	}
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(spec.Processes))
	var order []*model.ProcessSpec

	var visit func(name string) error
	visit = func(name string) error {
		p, ok := byName[name]
		if !ok {
			return fmt.Errorf("pipeline %s: process %q is required but not defined", spec.Name, name)
		}
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("pipeline %s: cycle detected at process %q", spec.Name, name)
		}
		color[name] = gray
		for _, req := range p.Requires {
			if err := visit(req); err != nil {
				return err
			}
		}
		color[name] = black
		order = append(order, p)
		return nil
	}

	for _, p := range spec.Processes {
		if err := visit(p.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Run executes every process in dependency order, building each one's
// input table from its upstreams' outputs as they finish (spec §4.7). A
// process's predecessors have all completed by the time topoSort would
// place it, so a single linear pass over `order` already respects the
// dependency graph. Each process finishes before the next starts, even
// when the two do not depend on each other; concurrency exists only among
// one process's jobs, inside Process.Run's forks pool.
func (pl *Pipeline) Run(ctx context.Context) (bool, error) {
	pl.Plugins.Broadcast(plugin.OnStart, pl.Spec.Name)

	outputs := make(map[string]*model.Table, len(pl.order))
	succeeded := true

	for _, spec := range pl.order {
		proc := process.New(pl.Spec.Name, spec, pl.Spec.Workdir, pl.Renderer, pl.Plugins)

		input, err := proc.ComputeInput(outputs)
		if err != nil {
			return false, model.NewError(model.KindProcInputValue, "pipeline "+pl.Spec.Name, err)
		}
		pl.Plugins.Broadcast(plugin.OnProcInputComputed, spec.Name)

		if err := proc.Materialize(input); err != nil {
			return false, err
		}
		pl.Plugins.Broadcast(plugin.OnProcScriptComputed, spec.Name)

		result, err := proc.Run(ctx)
		outputs[spec.Name] = proc.Output()

		if result == model.ProcFailed {
			succeeded = false
			if spec.ErrorStrategy == model.ErrorHalt {
				pl.Plugins.Broadcast(plugin.OnComplete, pl.Spec.Name, succeeded)
				return false, err
			}
		}
	}

	pl.Plugins.Broadcast(plugin.OnComplete, pl.Spec.Name, succeeded)
	return succeeded, nil
}

// Shutdown asks on_proc_shutdown whether a graceful stop is permitted
// before the caller cancels ctx; callers own the actual cancellation, this
// just gives plugins a veto (spec §4.1's first-available-veto class).
func (pl *Pipeline) Shutdown() bool {
	return pl.Plugins.VetoAll(plugin.OnProcShutdown, pl.Spec.Name)
}
