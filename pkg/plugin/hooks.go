package plugin

// Hook names, per spec §4.1/§6 ("Hook ABI. Each hook has a fixed name, an
// argument tuple, a reducer class, and a documented return contract").
const (
	// Broadcast lifecycle hooks.
	OnInit      = "on_init"
	OnStart     = "on_start"
	OnComplete  = "on_complete"
	OnProcInit  = "on_proc_init"
	OnProcInputComputed  = "on_proc_input_computed"
	OnProcScriptComputed = "on_proc_script_computed"
	OnProcDone           = "on_proc_done"

	OnJobInit      = "on_job_init"
	OnJobQueued    = "on_job_queued"
	OnJobSubmitted = "on_job_submitted"
	OnJobStarted   = "on_job_started"
	OnJobPolling   = "on_job_polling"
	OnJobSucceeded = "on_job_succeeded"
	OnJobFailed    = "on_job_failed"
	OnJobKilled    = "on_job_killed"
	OnJobCached    = "on_job_cached"

	// First-available veto hooks.
	OnJobSubmitting = "on_job_submitting"
	OnJobKilling    = "on_job_killing"
	OnProcShutdown  = "on_proc_shutdown"

	// First-available value hooks.
	NormInpath   = "norm_inpath"
	NormOutpath  = "norm_outpath"
	GetMtime     = "get_mtime"
	OutputExists = "output_exists"
	ClearPath    = "clear_path"
)
