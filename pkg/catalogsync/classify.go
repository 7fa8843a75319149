package catalogsync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/demodeck/pkg/faults"
	"github.com/dukex/demodeck/pkg/host"
)

var (
	missingTargetSignals = []string{
		"cannot change to",
		"No such file or directory",
		"not a git repository",
	}
	authOrNotFoundSignals = []string{
		"Authentication failed",
		"could not read Username",
		"Permission denied",
		"Repository not found",
		"does not appear to be a git repository",
		"not found",
	}
)

// Classify maps a failed git invocation's output to an acquisition reason.
func Classify(output string) faults.Reason {
	for _, signal := range missingTargetSignals {
		if strings.Contains(output, signal) {
			return faults.ReasonMissingTarget
		}
	}

	for _, signal := range authOrNotFoundSignals {
		if strings.Contains(output, signal) {
			return faults.ReasonAuthOrNotFound
		}
	}

	return faults.ReasonGeneric
}

func commandFailure(op string, res host.Result) error {
	reason := Classify(res.Output)

	// Only pull can be rescued by a clone.
	if op != "pull" && reason == faults.ReasonMissingTarget {
		reason = faults.ReasonGeneric
	}

	return faults.Acquisition(op, reason, fmt.Sprintf("exited with code %d", res.ExitCode), outputError(res.Output))
}

func outputError(output string) error {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}

	return errors.New(output)
}
