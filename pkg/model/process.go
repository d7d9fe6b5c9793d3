package model

// ProcessSpec is the declarative description of a process (spec §3). It
// is plain data — behavior (input expansion, job materialization,
// dispatch) lives in package process, which reads a ProcessSpec rather
// than subclassing it.
type ProcessSpec struct {
	Name string
	Tag  string
	Desc string

	Input  []InputSlot
	Output []OutputSlot

	// InputTable is used when this process is a pipeline start: input_data
	// must be a literal table (spec §4.7 tie-break).
	InputTable *Table
	// Requires lists the upstream processes whose Output tables are
	// horizontally concatenated, in this order, to build InputData when
	// this process is not a start process.
	Requires []string

	Script string
	Lang   string

	Forks         int
	Cache         CacheMode
	ErrorStrategy ErrorStrategy
	NumRetries    int
	Dirsig        int

	Scheduler     string
	SchedulerOpts map[string]any
}

// PipelineSpec is the declarative graph of processes (spec §3).
type PipelineSpec struct {
	Name      string
	Workdir   string
	Outdir    string
	Forks     int // default Forks for processes that leave theirs at 0 (copied down by cmd/pipex); no cap spans processes
	Processes []*ProcessSpec
	Starts    []string // process names with no upstream Requires
	Config    map[string]any
	Plugins   []string // selection strings: "name", "+name", "-name"
}
