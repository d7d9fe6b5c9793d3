package model

import "fmt"

// Kind classifies an engine error per spec §7.
type Kind string

const (
	KindConfig           Kind = "ConfigError"
	KindProcInputValue    Kind = "ProcInputValueError"
	KindProcOutputValue   Kind = "ProcOutputValueError"
	KindTemplateRender    Kind = "TemplateRenderError"
	KindScheduler         Kind = "SchedulerError"
	KindJobFailed         Kind = "JobFailed"
	KindUnsupportedScheme Kind = "UnsupportedSchemeError"
)

// Error is the engine's tagged error type. Callers switch on Kind rather
// than matching strings.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// UnsupportedScheme builds the "no plugin handled this URI scheme" error,
// always naming the scheme per spec §7.
func UnsupportedScheme(hook, scheme string) *Error {
	return NewError(KindUnsupportedScheme, fmt.Sprintf("no plugin implements %s for scheme %q", hook, scheme), nil)
}

// Scheme extracts the "scheme://" prefix of a URI, or "" for a local path.
// Shared by package job and package process so a job's normalized input/
// output paths and a process's freshly-rendered output templates agree on
// what counts as local vs remote before either ever calls a value hook.
func Scheme(uri string) string {
	for i := 0; i+2 < len(uri); i++ {
		if uri[i] == ':' && uri[i+1] == '/' && uri[i+2] == '/' {
			return uri[:i]
		}
	}
	return ""
}
