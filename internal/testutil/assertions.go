package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertStepRan checks the log output within a HarnessResult to confirm that
// step finished at least once.
func AssertStepRan(t *testing.T, result *HarnessResult, step string) {
	t.Helper()
	require.Positive(t, StepRuns(result, step), "expected log output for step %q was not found in logs", step)
}

// StepRuns counts how many times step finished according to the log output.
func StepRuns(result *HarnessResult, step string) int {
	n := 0
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if strings.Contains(line, "Finished step.") && strings.Contains(line, "step="+step+" ") {
			n++
		}
	}
	return n
}
