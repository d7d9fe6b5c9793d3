package plugin

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CorePlugin is the built-in plugin (priority −1000, spec §4.1) that
// implements the value hooks for local paths and keeps per-process
// progress counters. URIs containing "://" are left to later plugins
// (it returns nil to delegate); everything else is a local filesystem
// path.
type CorePlugin struct {
	mu       sync.Mutex
	progress map[string]*Progress // keyed by process name
}

// Progress counts terminal job outcomes for one process.
type Progress struct {
	Total     int
	Succeeded int
	Failed    int
	Cached    int
	Killed    int
}

// NewCorePlugin builds the core plugin and its registration record.
func NewCorePlugin() (*CorePlugin, *Plugin) {
	c := &CorePlugin{progress: map[string]*Progress{}}
	p := &Plugin{
		Name:     "core",
		Priority: -1000,
		Impls: map[string]Impl{
			NormInpath:   c.normInpath,
			NormOutpath:  c.normOutpath,
			GetMtime:     c.getMtime,
			OutputExists: c.outputExists,
			ClearPath:    c.clearPath,

			OnJobSucceeded: c.onTerminal("succeeded"),
			OnJobFailed:    c.onTerminal("failed"),
			OnJobCached:    c.onTerminal("cached"),
			OnJobKilled:    c.onTerminal("killed"),
			OnJobQueued:    c.onQueued,
		},
	}
	return c, p
}

func isRemote(uri string) bool { return strings.Contains(uri, "://") }

// normInpath expands ~ and resolves to an absolute path for local inputs.
// args: (uri string)
func (c *CorePlugin) normInpath(args ...any) (any, error) {
	uri := args[0].(string)
	if isRemote(uri) {
		return nil, nil
	}
	if strings.HasPrefix(uri, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		uri = filepath.Join(home, strings.TrimPrefix(uri, "~"))
	}
	abs, err := filepath.Abs(uri)
	if err != nil {
		return nil, err
	}
	return filepath.Clean(abs), nil
}

// normOutpath rejects absolute output templates and creates the job's
// output directory. args: (uri string, jobOutdir string)
func (c *CorePlugin) normOutpath(args ...any) (any, error) {
	uri := args[0].(string)
	jobOutdir := args[1].(string)
	if isRemote(uri) {
		return nil, nil
	}
	if filepath.IsAbs(uri) {
		return nil, &pathError{msg: "output path must not be absolute: " + uri}
	}
	if err := os.MkdirAll(jobOutdir, 0o755); err != nil {
		return nil, err
	}
	return filepath.Join(jobOutdir, uri), nil
}

// getMtime returns the path's mtime, seconds resolution. For a directory
// it recurses up to dirsig levels, returning the latest mtime seen.
// args: (path string, dirsig int)
func (c *CorePlugin) getMtime(args ...any) (any, error) {
	path := args[0].(string)
	if isRemote(path) {
		return nil, nil
	}
	dirsig := 0
	if len(args) > 1 {
		dirsig = args[1].(int)
	}
	sec, err := latestMtime(path, dirsig)
	if err != nil {
		return nil, err
	}
	return sec, nil
}

func latestMtime(path string, depth int) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	latest := info.ModTime().Unix()
	if !info.IsDir() || depth <= 0 {
		return latest, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		sub, err := latestMtime(filepath.Join(path, e.Name()), depth-1)
		if err != nil {
			continue
		}
		if sub > latest {
			latest = sub
		}
	}
	return latest, nil
}

// outputExists checks a declared output exists; directory outputs must be
// non-empty. args: (path string, isDir bool)
func (c *CorePlugin) outputExists(args ...any) (any, error) {
	path := args[0].(string)
	if isRemote(path) {
		return nil, nil
	}
	isDir := args[1].(bool)
	info, err := os.Stat(path)
	if err != nil {
		return false, nil
	}
	if isDir {
		if !info.IsDir() {
			return false, nil
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return false, nil
		}
		return len(entries) > 0, nil
	}
	return true, nil
}

// clearPath unlinks a symlink/file or wipes-and-recreates a directory.
// args: (path string, isDir bool)
func (c *CorePlugin) clearPath(args ...any) (any, error) {
	path := args[0].(string)
	if isRemote(path) {
		return nil, nil
	}
	isDir := args[1].(bool)
	if fi, err := os.Lstat(path); err == nil {
		if fi.Mode()&os.ModeSymlink != 0 {
			return true, os.Remove(path)
		}
	}
	if isDir {
		if err := os.RemoveAll(path); err != nil {
			return nil, err
		}
		return true, os.MkdirAll(path, 0o755)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return true, nil
}

// onQueued ensures a Progress record exists and bumps Total. args: (proc string)
func (c *CorePlugin) onQueued(args ...any) (any, error) {
	proc := args[0].(string)
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.progressFor(proc)
	p.Total++
	return nil, nil
}

func (c *CorePlugin) onTerminal(kind string) Impl {
	return func(args ...any) (any, error) {
		proc := args[0].(string)
		c.mu.Lock()
		defer c.mu.Unlock()
		p := c.progressFor(proc)
		switch kind {
		case "succeeded":
			p.Succeeded++
		case "failed":
			p.Failed++
		case "cached":
			p.Cached++
		case "killed":
			p.Killed++
		}
		return nil, nil
	}
}

func (c *CorePlugin) progressFor(proc string) *Progress {
	p, ok := c.progress[proc]
	if !ok {
		p = &Progress{}
		c.progress[proc] = p
	}
	return p
}

// Snapshot returns a copy of the progress counters for proc.
func (c *CorePlugin) Snapshot(proc string) Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.progress[proc]; ok {
		return *p
	}
	return Progress{}
}

type pathError struct{ msg string }

func (e *pathError) Error() string { return e.msg }
