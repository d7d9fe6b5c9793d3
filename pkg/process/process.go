// Package process expands a process declaration into jobs and drives
// them to completion (spec §4.6/§4.7): compute the input table (a
// literal table for a start process, or the horizontal concatenation of
// its upstream Requires' output tables), materialize one job per row,
// render each job's script and output paths, then dispatch the jobs
// through a forks-gated pool and fold their results into the tri-state
// on_proc_done flag.
package process

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sourcegraph/conc/pool"

	"pipex/pkg/backend"
	"pipex/pkg/job"
	"pipex/pkg/model"
	"pipex/pkg/plugin"
	"pipex/pkg/render"
)

// Process is the runtime counterpart of a model.ProcessSpec: it owns the
// spec plus the collaborators needed to turn rows into jobs.
type Process struct {
	Spec     *model.ProcessSpec
	Pipeline string
	Workdir  string

	Renderer render.Renderer
	Plugins  *plugin.Snapshot

	jobs        []*job.Job
	outputTable *model.Table
}

// New builds a Process for one pipeline run.
func New(pipeline string, spec *model.ProcessSpec, workdir string, renderer render.Renderer, plugins *plugin.Snapshot) *Process {
	return &Process{
		Spec:     spec,
		Pipeline: pipeline,
		Workdir:  workdir,
		Renderer: renderer,
		Plugins:  plugins,
	}
}

// ComputeInput builds this process's input table (spec §4.7's tie-break:
// a start process with input_data wins; otherwise its Requires tables,
// in declared order, are concatenated).
func (p *Process) ComputeInput(upstream map[string]*model.Table) (*model.Table, error) {
	if p.Spec.InputTable != nil {
		return p.Spec.InputTable, nil
	}
	if len(p.Spec.Requires) == 0 {
		return model.NewTable(nil, nil)
	}
	tables := make([]*model.Table, 0, len(p.Spec.Requires))
	for _, name := range p.Spec.Requires {
		t, ok := upstream[name]
		if !ok {
			return nil, fmt.Errorf("process %s: upstream %s has not produced an output table", p.Spec.Name, name)
		}
		tables = append(tables, t)
	}
	t, err := model.Concat(tables...)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", p.Spec.Name, err)
	}
	return t, nil
}

// Materialize builds one job per input row: renders the script, resolves
// output paths through norm_outpath, and records each slot's declared
// type for later signature normalization.
func (p *Process) Materialize(input *model.Table) error {
	p.broadcastNoArg(plugin.OnProcInit)

	inputKind := make(map[string]model.SlotType, len(p.Spec.Input))
	for _, slot := range p.Spec.Input {
		inputKind[slot.Name] = slot.Type
	}

	n := input.NRow()
	p.jobs = make([]*job.Job, 0, n)
	for i := 0; i < n; i++ {
		row := input.Row(i)
		tag := tagFromRow(row, i)

		j, err := job.New(p.Pipeline, p.Spec.Name, tag, i, p.Workdir)
		if err != nil {
			return fmt.Errorf("process %s: %w", p.Spec.Name, err)
		}
		j.InputRow = row
		j.InputKind = inputKind
		j.OutputDecl = p.Spec.Output
		j.Cache = p.Spec.Cache
		j.ErrorStrategy = p.Spec.ErrorStrategy
		j.NumRetries = p.Spec.NumRetries
		j.Dirsig = p.Spec.Dirsig
		j.SchedulerName = p.Spec.Scheduler
		j.SchedulerOpts = p.Spec.SchedulerOpts
		j.Lang = p.Spec.Lang
		j.Plugins = p.Plugins

		b, err := backend.New(p.Spec.Scheduler)
		if err != nil {
			return model.NewError(model.KindConfig, "process "+p.Spec.Name, err)
		}
		j.Backend = b

		vars := map[string]any{
			"in":   row,
			"proc": p.Spec.Name,
			"job":  map[string]any{"index": i, "tag": tag},
		}

		outputRow := make(map[string]any, len(p.Spec.Output))
		for _, out := range p.Spec.Output {
			rendered, err := p.Renderer.Render(out.Template, vars)
			if err != nil {
				return err
			}
			if out.Type == model.SlotVar {
				outputRow[out.Name] = rendered
				vars["out_"+out.Name] = rendered
				continue
			}
			normAny, err := p.Plugins.FirstValue(plugin.NormOutpath, model.Scheme(rendered), rendered, j.OutputDirPath())
			if err != nil {
				return model.NewError(model.KindProcOutputValue, "process "+p.Spec.Name+" output "+out.Name, err)
			}
			path, _ := normAny.(string)
			outputRow[out.Name] = path
			vars["out_"+out.Name] = path
		}
		j.OutputRow = outputRow

		script, err := p.Renderer.Render(p.Spec.Script, vars)
		if err != nil {
			return model.NewError(model.KindTemplateRender, "process "+p.Spec.Name, err)
		}
		j.Script = script

		p.jobs = append(p.jobs, j)
	}
	return nil
}

// Run dispatches every materialized job through a pool capped at
// Spec.Forks (spec §5's forks gate), waits for all of them, and folds
// their tri-state results into the on_proc_done outcome: true only if
// every job succeeded-or-cached, false if any failed and the process is
// allowed to continue past it.
func (p *Process) Run(ctx context.Context) (model.ProcSuccess, error) {
	forks := p.Spec.Forks
	if forks <= 0 {
		forks = len(p.jobs)
		if forks == 0 {
			forks = 1
		}
	}

	pl := pool.New().WithMaxGoroutines(forks)
	results := make([]model.ProcSuccess, len(p.jobs))
	errs := make([]error, len(p.jobs))

	for i, j := range p.jobs {
		i, j := i, j
		pl.Go(func() {
			res, err := j.Run(ctx)
			results[i] = res
			errs[i] = err
		})
	}
	pl.Wait()

	overall := model.ProcSucceeded
	anyCached := false
	anyRan := false
	var firstErr error
	for i, res := range results {
		switch res {
		case model.ProcCached:
			anyCached = true
		case model.ProcSucceeded:
			anyRan = true
		case model.ProcFailed:
			overall = model.ProcFailed
			if firstErr == nil {
				firstErr = errs[i]
			}
			if p.Spec.ErrorStrategy == model.ErrorHalt {
				p.buildOutputTable()
				p.Plugins.Broadcast(plugin.OnProcDone, p.Spec.Name, overall)
				return model.ProcFailed, firstErr
			}
		}
	}
	if overall == model.ProcSucceeded && anyCached && !anyRan {
		overall = model.ProcCached
	}

	p.buildOutputTable()
	p.Plugins.Broadcast(plugin.OnProcDone, p.Spec.Name, overall)
	return overall, firstErr
}

// Output returns the table of this process's output rows, for
// downstream processes whose Requires names it.
func (p *Process) Output() *model.Table { return p.outputTable }

func (p *Process) buildOutputTable() {
	cols := make([]string, len(p.Spec.Output))
	for i, out := range p.Spec.Output {
		cols[i] = out.Name
	}
	rows := make([][]any, len(p.jobs))
	for i, j := range p.jobs {
		row := make([]any, len(cols))
		for c, name := range cols {
			row[c] = j.OutputRow[name]
		}
		rows[i] = row
	}
	t, _ := model.NewTable(cols, rows)
	p.outputTable = t
}

func (p *Process) broadcastNoArg(hook string) {
	p.Plugins.Broadcast(hook, p.Spec.Name)
}

func tagFromRow(row map[string]any, i int) string {
	if v, ok := row["tag"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return strconv.Itoa(i)
}
