package checkpoint

// RestoreMode tells the engine where a training run starts from.
type RestoreMode string

const (
	RestoreFresh  RestoreMode = "fresh"
	RestoreLatest RestoreMode = "latest"
)

// Resolve picks the restore mode for the next training run. An explicit
// fresh request always wins; otherwise an existing checkpoint is resumed.
func Resolve(forceFresh bool, info Info) RestoreMode {
	if forceFresh {
		return RestoreFresh
	}
	if info.Exists {
		return RestoreLatest
	}
	return RestoreFresh
}
