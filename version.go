package procfixture

// Version is the current version of the go-procfixture library
const Version = "1.0.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Target names the monitor the fixtures are built to exercise
	Target string
	// Faults is the number of fault routes served
	Faults int
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version: Version,
		Target:  "procdump",
		Faults:  len(Faults()),
	}
}
