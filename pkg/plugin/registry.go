// Package plugin implements the plugin registry and hook dispatcher
// (spec §4.1): an ordered, priority-sorted list of plugins, each
// providing zero or more named hook implementations, combined by one of
// three reducer classes (broadcast, first-available veto, first-available
// value).
//
// The registry is built once per pipeline and frozen before the run
// starts (spec §9 design note): register, then Select, then Freeze
// returns an immutable Snapshot used for the remainder of the run.
package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"pipex/pkg/model"
)

// Reducer classifies how a hook's results are combined.
type Reducer int

const (
	Broadcast Reducer = iota
	Veto
	Value
)

// Impl is one plugin's implementation of one hook. Args/return values are
// passed as `any` because hooks differ widely in shape; callers type-
// assert. Returning nil means "abstain" for Veto/Value hooks.
type Impl func(args ...any) (any, error)

// Plugin is one registered extension.
type Plugin struct {
	Name     string
	Priority int // lower runs first
	Enabled  bool
	Impls    map[string]Impl
}

// Registry holds the mutable, build-time plugin list. Register plugins
// during module load, call Select to apply a pipeline's selection
// strings, then Freeze to get the immutable Snapshot used for a run.
type Registry struct {
	plugins []*Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a plugin. Plugins are enabled by default; Select narrows
// or widens that per pipeline.
func (r *Registry) Register(p *Plugin) {
	if p.Impls == nil {
		p.Impls = map[string]Impl{}
	}
	p.Enabled = true
	r.plugins = append(r.plugins, p)
}

// Select applies a pipeline's plugin selection strings, in order:
//   - a bare name restricts the enabled set to exactly the named plugins
//     (the first bare name seen disables everything else first)
//   - "+name" additionally enables a plugin
//   - "-name" disables a plugin
//
// Parsing order matters: a bare name resets the set; subsequent prefixed
// entries mutate that narrowed set.
func (r *Registry) Select(selectors []string) error {
	sawBareName := false
	for _, sel := range selectors {
		switch {
		case strings.HasPrefix(sel, "+"):
			name := sel[1:]
			if err := r.setEnabled(name, true); err != nil {
				return err
			}
		case strings.HasPrefix(sel, "-"):
			name := sel[1:]
			if err := r.setEnabled(name, false); err != nil {
				return err
			}
		default:
			if !sawBareName {
				for _, p := range r.plugins {
					p.Enabled = false
				}
				sawBareName = true
			}
			if err := r.setEnabled(sel, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) setEnabled(name string, enabled bool) error {
	for _, p := range r.plugins {
		if p.Name == name {
			p.Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("plugin: unknown plugin %q in selection", name)
}

// Snapshot is the immutable, priority-sorted view of enabled plugins used
// for one pipeline run.
type Snapshot struct {
	plugins []*Plugin
}

// Freeze returns the run snapshot: enabled plugins only, sorted by
// priority ascending (stable, so registration order breaks ties).
func (r *Registry) Freeze() *Snapshot {
	enabled := make([]*Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Priority < enabled[j].Priority })
	return &Snapshot{plugins: enabled}
}

// Broadcast invokes every enabled impl of hook, in priority order,
// ignoring return values. A plugin error is caught and logged with the
// plugin name; it does not stop the broadcast or crash the loop (spec §7).
func (s *Snapshot) Broadcast(hook string, args ...any) {
	for _, p := range s.plugins {
		impl, ok := p.Impls[hook]
		if !ok {
			continue
		}
		if _, err := impl(args...); err != nil {
			slog.Error("plugin hook failed", "component", "plugin:"+p.Name, "hook", hook, "error", err)
		}
	}
}

// VetoAll invokes impls of hook in priority order until one returns non-nil.
// false cancels the action; true or "no impl returned a value" permits it.
// A plugin error during a veto hook is equivalent to abstaining (spec §7).
func (s *Snapshot) VetoAll(hook string, args ...any) bool {
	for _, p := range s.plugins {
		impl, ok := p.Impls[hook]
		if !ok {
			continue
		}
		v, err := impl(args...)
		if err != nil {
			slog.Error("plugin veto hook failed, treating as abstain", "component", "plugin:"+p.Name, "hook", hook, "error", err)
			continue
		}
		if v == nil {
			continue
		}
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return true
}

// FirstValue invokes impls of hook in priority order until one returns a
// non-nil value. If none do, it returns a *model.Error of kind
// KindUnsupportedScheme naming scheme (spec §7); callers of FirstValue
// always know the relevant URI scheme up front.
func (s *Snapshot) FirstValue(hook, scheme string, args ...any) (any, error) {
	for _, p := range s.plugins {
		impl, ok := p.Impls[hook]
		if !ok {
			continue
		}
		v, err := impl(args...)
		if err != nil {
			slog.Error("plugin value hook failed, treating as abstain", "component", "plugin:"+p.Name, "hook", hook, "error", err)
			continue
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, model.NewError(model.KindUnsupportedScheme, hookUnsupported(hook, scheme), nil)
}

func hookUnsupported(hook, scheme string) string {
	return "no plugin implements " + hook + " for scheme \"" + scheme + "://\""
}
