package codec

// Version information for the codec module.
const (
	// Version is the current version of the codec module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)
