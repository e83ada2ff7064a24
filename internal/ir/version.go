package ir

// Version constants stamped on every persisted trace record.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// EngineVersion is the EIGEN engine version.
	EngineVersion = "0.1.0"
)
