package job

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"pipex/pkg/model"
	"pipex/pkg/plugin"
)

// buildSignature computes the deterministic fingerprint described in
// spec §3/§4.4/§6: rendered script text, normalized input values (file
// inputs become {path,mtime}), normalized output placeholders, and the
// scheduler name.
func (j *Job) buildSignature() (*model.Signature, error) {
	input := make(map[string]any, len(j.InputRow))
	for name, v := range j.InputRow {
		kind := j.InputKind[name]
		switch kind {
		case model.SlotFile, model.SlotDir:
			fm, err := j.normalizeFileValue(v)
			if err != nil {
				return nil, err
			}
			input[name] = fm
		case model.SlotFiles:
			paths, _ := v.([]string)
			out := make([]model.FileMtime, 0, len(paths))
			for _, p := range paths {
				fm, err := j.normalizeFileValue(p)
				if err != nil {
					return nil, err
				}
				out = append(out, *fm)
			}
			input[name] = out
		default:
			input[name] = v
		}
	}

	output := make(map[string]any, len(j.OutputRow))
	for k, v := range j.OutputRow {
		output[k] = v
	}

	return &model.Signature{
		Script:    j.Script,
		Input:     input,
		Output:    output,
		Scheduler: j.SchedulerName,
	}, nil
}

func (j *Job) normalizeFileValue(v any) (*model.FileMtime, error) {
	path, _ := v.(string)
	normAny, err := j.Plugins.FirstValue(plugin.NormInpath, scheme(path), path)
	if err != nil {
		return nil, err
	}
	norm, _ := normAny.(string)

	mtimeAny, err := j.Plugins.FirstValue(plugin.GetMtime, scheme(norm), norm, j.Dirsig)
	if err != nil {
		// a file that doesn't exist yet just signs as mtime 0; the
		// cache then misses on the next comparison once it appears.
		return &model.FileMtime{Path: norm, Mtime: 0}, nil
	}
	mtime, _ := mtimeAny.(int64)
	return &model.FileMtime{Path: norm, Mtime: mtime}, nil
}

// writeSignature persists sig atomically: write-to-temp then rename
// (spec §5: "the cache signature is written atomically").
func (j *Job) writeSignature(sig *model.Signature) error {
	b, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return err
	}
	tmp := j.sigPath() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, j.sigPath())
}

func (j *Job) readSignature() (*model.Signature, bool) {
	b, err := os.ReadFile(j.sigPath())
	if err != nil {
		return nil, false
	}
	var sig model.Signature
	if err := json.Unmarshal(b, &sig); err != nil {
		return nil, false
	}
	return &sig, true
}

// cacheHit implements the §4.4 algorithm for cache="true": compare the
// proposed signature field-by-field against the stored one, then confirm
// every declared output still exists.
func (j *Job) cacheHit(proposed *model.Signature) (bool, error) {
	stored, ok := j.readSignature()
	if !ok {
		return false, nil
	}
	if stored.Script != proposed.Script || stored.Scheduler != proposed.Scheduler {
		return false, nil
	}
	if !reflect.DeepEqual(normalizeForCompare(stored.Input), normalizeForCompare(proposed.Input)) {
		return false, nil
	}
	if !reflect.DeepEqual(stored.Output, proposed.Output) {
		return false, nil
	}
	for _, out := range j.OutputDecl {
		if out.Type == model.SlotVar {
			continue
		}
		path, _ := j.OutputRow[out.Name].(string)
		existsAny, err := j.Plugins.FirstValue(plugin.OutputExists, scheme(path), path, out.Type == model.SlotDir)
		if err != nil {
			return false, err
		}
		exists, _ := existsAny.(bool)
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

// normalizeForCompare round-trips through JSON so FileMtime structs and
// map[string]any built from a freshly-read signature compare equal to
// ones built in-process (reflect.DeepEqual is picky about concrete types
// otherwise).
func normalizeForCompare(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	json.Unmarshal(b, &out)
	return out
}

// scheme delegates to model.Scheme; kept as a package-local name since
// every call site here already reads naturally as scheme(path).
func scheme(uri string) string { return model.Scheme(uri) }

// clearDeclaredOutputs wipes every non-var output before a rerun (spec
// §4.4: "On miss, outputs must be cleared before execution").
func (j *Job) clearDeclaredOutputs() error {
	for _, out := range j.OutputDecl {
		if out.Type == model.SlotVar {
			continue
		}
		path, _ := j.OutputRow[out.Name].(string)
		if path == "" {
			continue
		}
		if _, err := j.Plugins.FirstValue(plugin.ClearPath, scheme(path), path, out.Type == model.SlotDir); err != nil {
			return fmt.Errorf("job: clear output %s: %w", out.Name, err)
		}
	}
	return nil
}

// verifyOutputs checks every declared non-variable output exists,
// returning the first missing slot name, if any (spec §4.5: a SUCCEEDED
// transition requires every non-variable output to satisfy
// output_exists == true).
func (j *Job) verifyOutputs() (missing string, err error) {
	for _, out := range j.OutputDecl {
		if out.Type == model.SlotVar {
			continue
		}
		path, _ := j.OutputRow[out.Name].(string)
		existsAny, err := j.Plugins.FirstValue(plugin.OutputExists, scheme(path), path, out.Type == model.SlotDir)
		if err != nil {
			return "", err
		}
		if exists, _ := existsAny.(bool); !exists {
			return out.Name, nil
		}
	}
	return "", nil
}
