// Package specfile loads a pipeline definition from a YAML file into the
// declarative model.PipelineSpec/model.ProcessSpec types. Grounded on the
// same yaml.v3 fork viper already pulls in for its own file layer
// (pkg/enginecfg), rather than hand-rolling a parser.
package specfile

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"pipex/pkg/model"
)

type fileSpec struct {
	Name      string         `yaml:"name"`
	Workdir   string         `yaml:"workdir"`
	Outdir    string         `yaml:"outdir"`
	Forks     int            `yaml:"forks"`
	Plugins   []string       `yaml:"plugins"`
	Starts    []string       `yaml:"starts"`
	Config    map[string]any `yaml:"config"`
	Processes []fileProcess  `yaml:"processes"`
}

type fileProcess struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
	Desc string `yaml:"desc"`

	Input  []fileSlot `yaml:"input"`
	Output []fileSlot `yaml:"output"`

	InputTable *fileTable `yaml:"input_table"`
	Requires   []string   `yaml:"requires"`

	Script string `yaml:"script"`
	Lang   string `yaml:"lang"`

	Forks         int            `yaml:"forks"`
	Cache         string         `yaml:"cache"`
	ErrorStrategy string         `yaml:"error_strategy"`
	NumRetries    int            `yaml:"num_retries"`
	Dirsig        int            `yaml:"dirsig"`
	Scheduler     string         `yaml:"scheduler"`
	SchedulerOpts map[string]any `yaml:"scheduler_opts"`
}

type fileSlot struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Template string `yaml:"template"`
}

type fileTable struct {
	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

// Load reads and converts a pipeline YAML file.
func Load(path string) (*model.PipelineSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("specfile: %w", err)
	}
	var fs fileSpec
	if err := yaml.Unmarshal(b, &fs); err != nil {
		return nil, model.NewError(model.KindConfig, "parsing "+path, err)
	}
	return convert(&fs)
}

func convert(fs *fileSpec) (*model.PipelineSpec, error) {
	spec := &model.PipelineSpec{
		Name:    fs.Name,
		Workdir: fs.Workdir,
		Outdir:  fs.Outdir,
		Forks:   fs.Forks,
		Starts:  fs.Starts,
		Config:  fs.Config,
		Plugins: fs.Plugins,
	}
	for _, fp := range fs.Processes {
		p, err := convertProcess(&fp)
		if err != nil {
			return nil, err
		}
		spec.Processes = append(spec.Processes, p)
	}
	return spec, nil
}

func convertProcess(fp *fileProcess) (*model.ProcessSpec, error) {
	p := &model.ProcessSpec{
		Name:          fp.Name,
		Tag:           fp.Tag,
		Desc:          fp.Desc,
		Requires:      fp.Requires,
		Script:        fp.Script,
		Lang:          fp.Lang,
		Forks:         fp.Forks,
		Cache:         model.CacheMode(orDefault(fp.Cache, "true")),
		ErrorStrategy: model.ErrorStrategy(orDefault(fp.ErrorStrategy, "halt")),
		NumRetries:    fp.NumRetries,
		Dirsig:        fp.Dirsig,
		Scheduler:     orDefault(fp.Scheduler, "local"),
		SchedulerOpts: fp.SchedulerOpts,
	}
	for _, s := range fp.Input {
		p.Input = append(p.Input, model.InputSlot{Name: s.Name, Type: model.SlotType(s.Type)})
	}
	for _, s := range fp.Output {
		p.Output = append(p.Output, model.OutputSlot{Name: s.Name, Type: model.SlotType(s.Type), Template: s.Template})
	}
	if fp.InputTable != nil {
		t, err := model.NewTable(fp.InputTable.Columns, fp.InputTable.Rows)
		if err != nil {
			return nil, fmt.Errorf("specfile: process %s: %w", fp.Name, err)
		}
		p.InputTable = t
	}
	return p, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
