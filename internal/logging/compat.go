package logging

import (
	"os"
)

// Fatalf is for the command-line entry points, which report fatal setup
// errors and exit. Library code should use the leveled API, e.g. log.Error().
func (log *Logger) Fatalf(format string, v ...interface{}) {
	log.Log(Error, 1, format, v...)
	os.Exit(1)
}
