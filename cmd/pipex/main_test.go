package main

import (
	"testing"

	"pipex/pkg/enginecfg"
	"pipex/pkg/model"
)

func TestApplyDefaultsFillsUnsetFields(t *testing.T) {
	spec := &model.PipelineSpec{
		Processes: []*model.ProcessSpec{
			{Name: "a"},
			{Name: "b", Scheduler: "sge", Forks: 3},
		},
	}
	cfg := &enginecfg.Config{Workdir: "./work", Outdir: "./out", Forks: 2, Scheduler: "local"}

	applyDefaults(spec, cfg)

	if spec.Workdir != "./work" || spec.Outdir != "./out" || spec.Forks != 2 {
		t.Fatalf("pipeline-level defaults not applied: %+v", spec)
	}
	if spec.Processes[0].Scheduler != "local" || spec.Processes[0].Forks != 2 {
		t.Fatalf("process a should inherit scheduler/forks defaults: %+v", spec.Processes[0])
	}
	if spec.Processes[1].Scheduler != "sge" || spec.Processes[1].Forks != 3 {
		t.Fatalf("process b's explicit scheduler/forks should not be overwritten: %+v", spec.Processes[1])
	}
}

func TestApplyDefaultsDoesNotOverwriteExplicitPipelineFields(t *testing.T) {
	spec := &model.PipelineSpec{Workdir: "./explicit", Outdir: "./explicit-out", Forks: 7}
	cfg := &enginecfg.Config{Workdir: "./work", Outdir: "./out", Forks: 2}

	applyDefaults(spec, cfg)

	if spec.Workdir != "./explicit" || spec.Outdir != "./explicit-out" || spec.Forks != 7 {
		t.Fatalf("explicit pipeline fields were overwritten: %+v", spec)
	}
}
