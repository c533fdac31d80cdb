package collision

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Policy decides what happens when a computed destination path already
// exists on disk.
type Policy int

const (
	// Append adds an incrementing (n) counter before the final suffix
	// until the path is free.
	Append Policy = iota
	// Replace keeps the path and overwrites the existing file.
	Replace
	// Skip omits the colliding file and continues.
	Skip
	// Stop halts extraction entirely at the first collision.
	Stop
)

func (p Policy) String() string {
	switch p {
	case Append:
		return "append"
	case Replace:
		return "replace"
	case Skip:
		return "skip"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy string to a Policy.
// Unknown strings are a hard error.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "append":
		return Append, nil
	case "replace":
		return Replace, nil
	case "skip":
		return Skip, nil
	case "stop":
		return Stop, nil
	default:
		return 0, fmt.Errorf("unknown on-match policy %q", s)
	}
}

// Action is the outcome kind of a resolution
type Action int

const (
	// ActionAccept downloads to Resolution.Path
	ActionAccept Action = iota
	// ActionSkip omits the file and continues extraction
	ActionSkip
	// ActionStop halts extraction
	ActionStop
)

// Resolution is the decision for a single colliding path
type Resolution struct {
	Action Action
	Path   string
}

// Resolve decides the final path for a candidate that already exists on
// disk, per policy. exists answers whether a path is taken; for Append
// it is probed with successive counters until a free path is found.
func Resolve(candidate string, exists func(string) bool, policy Policy) Resolution {
	switch policy {
	case Append:
		ext := filepath.Ext(candidate)
		stem := strings.TrimSuffix(candidate, ext)
		for counter := 1; ; counter++ {
			path := fmt.Sprintf("%s(%d)%s", stem, counter, ext)
			if !exists(path) {
				return Resolution{Action: ActionAccept, Path: path}
			}
		}
	case Replace:
		return Resolution{Action: ActionAccept, Path: candidate}
	case Skip:
		return Resolution{Action: ActionSkip}
	case Stop:
		return Resolution{Action: ActionStop}
	default:
		// Unreachable for parsed policies; treat like Skip to stay safe.
		return Resolution{Action: ActionSkip}
	}
}
