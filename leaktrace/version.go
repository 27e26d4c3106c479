package leaktrace

// Version information for the leak tracer.
const (
	// Version is the current version of the tracer runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the tracer.
type Info struct {
	// Version is the runtime version string.
	Version string

	// MaxFrames is the capture depth of the default tracer.
	MaxFrames int

	// Enabled indicates whether the default tracer records allocations.
	Enabled bool
}

// GetInfo returns information about the process-wide default tracer.
//
// Example:
//
//	info := leaktrace.GetInfo()
//	fmt.Printf("leaktracer %s (enabled: %v)\n", info.Version, info.Enabled)
func GetInfo() Info {
	return Info{
		Version:   Version,
		MaxFrames: DefaultMaxFrames,
		Enabled:   defaultTracer.Enabled(),
	}
}
