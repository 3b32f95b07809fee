package race

import "fmt"

// Version information for corelock.
const (
	// Version is the current version of the lock annotations.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info describes the annotation runtime.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Observer names the type of the current default Observer.
	Observer string

	// Checking indicates whether the default Observer is a Checker.
	Checking bool
}

// GetInfo returns information about the annotation runtime.
//
// Example:
//
//	info := race.GetInfo()
//	fmt.Printf("corelock %s (observer %s)\n", info.Version, info.Observer)
func GetInfo() Info {
	obs := Default()
	_, checking := obs.(*Checker)
	return Info{
		Version:  Version,
		Observer: fmt.Sprintf("%T", obs),
		Checking: checking,
	}
}
