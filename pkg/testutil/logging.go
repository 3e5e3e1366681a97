package testutil

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// TestLogLevelEnvName selects the logrus level used in verbose test runs.
const TestLogLevelEnvName = "TEST_LOG_LEVEL"

// Logs are discarded unless tests run with -v, in which case they are written
// at TEST_LOG_LEVEL (trace by default).
func init() {
	level := logrus.TraceLevel
	if parsed, err := logrus.ParseLevel(os.Getenv(TestLogLevelEnvName)); err == nil {
		level = parsed
	}
	logrus.SetLevel(level)

	if !isVerbose(os.Args) {
		logrus.StandardLogger().Out = io.Discard
	}
}

func isVerbose(args []string) bool {
	for _, arg := range args {
		if arg == "-test.v" || arg == "-test.v=true" || strings.HasPrefix(arg, "-test.v=test2json") {
			return true
		}
	}
	return false
}

// DisableLogging discards logrus output until reset is called.
func DisableLogging() (reset func()) {
	previous := logrus.StandardLogger().Out
	logrus.StandardLogger().Out = io.Discard
	return func() {
		logrus.StandardLogger().Out = previous
	}
}
