package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

const envVar = "LOGLEVEL"

type tagLevel struct {
	tag   string
	level Level
}

var (
	tagLevels   []tagLevel
	tagLevelsMu sync.RWMutex

	// Tagged loggers handed out so far, re-leveled by Configure.
	derived []*Logger
)

func init() {
	if err := Configure(os.Getenv(envVar)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid %s: %v\n", envVar, err)
	}
}

// Configure parses comma-separated "tag=level" directives, e.g.
// "info,source=debug,session=trace". A directive without "tag=" sets the
// default level. Call it during startup, before any logging goroutines run.
func Configure(directives string) error {
	tagLevelsMu.Lock()
	defer tagLevelsMu.Unlock()

	var firstErr error
	for _, d := range strings.Split(directives, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		v := strings.SplitN(d, "=", 2)
		level, err := ParseLevel(v[len(v)-1])
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("directive '%s': %v", d, err)
			}
			continue
		}
		if len(v) == 1 {
			defaultLevel = level
			DefaultLogger.Level = level
		} else {
			tagLevels = append(tagLevels, tagLevel{v[0], level})
		}
	}
	for _, l := range derived {
		l.Level = lookupLevel(l.Tag, defaultLevel)
	}
	return firstErr
}

func register(l *Logger) *Logger {
	tagLevelsMu.Lock()
	derived = append(derived, l)
	tagLevelsMu.Unlock()
	return l
}

func determineLevel(tag string, fallback Level) Level {
	tagLevelsMu.RLock()
	defer tagLevelsMu.RUnlock()
	return lookupLevel(tag, fallback)
}

func lookupLevel(tag string, fallback Level) Level {
	// Later directives win.
	for i := len(tagLevels) - 1; i >= 0; i-- {
		if tagLevels[i].tag == tag {
			return tagLevels[i].level
		}
	}
	return fallback
}
