package media

import (
	"io"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"

	errors "golang.org/x/xerrors"
)

// An Opener resolves a media locator to a readable byte stream. Permission
// handling, if any, is the opener's business.
type Opener interface {
	Open(locator string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(locator string) (io.ReadCloser, error)

func (f OpenerFunc) Open(locator string) (io.ReadCloser, error) {
	return f(locator)
}

// FileOpener opens plain paths and file:// URLs. The returned stream is an
// *os.File and so also an io.ReadSeeker.
var FileOpener = OpenerFunc(openFile)

func openFile(locator string) (io.ReadCloser, error) {
	path := locator
	if strings.HasPrefix(locator, "file://") {
		u, err := url.Parse(locator)
		if err != nil {
			return nil, errors.Errorf("bad file locator %q: %w", locator, err)
		}
		path = u.Path
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening media: %w", err)
	}
	return f, nil
}

// A Registry dispatches locators to openers by URL scheme. Locators with no
// scheme go to the opener registered for "file".
type Registry struct {
	mu      sync.RWMutex
	openers map[string]Opener
}

// NewRegistry returns a registry that knows about local files.
func NewRegistry() *Registry {
	r := &Registry{openers: map[string]Opener{}}
	r.Register("file", FileOpener)
	return r
}

// Register routes locators with the given scheme to o.
func (r *Registry) Register(scheme string, o Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openers[strings.ToLower(scheme)] = o
}

func (r *Registry) Open(locator string) (io.ReadCloser, error) {
	scheme := "file"
	if i := strings.Index(locator, "://"); i > 0 {
		scheme = strings.ToLower(locator[:i])
	}

	r.mu.RLock()
	o, found := r.openers[scheme]
	r.mu.RUnlock()
	if !found {
		return nil, errors.Errorf("scheme %q (known: %v): %w", scheme, r.schemes(), ErrNotSupported)
	}
	return o.Open(locator)
}

func (r *Registry) schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s []string
	for k := range r.openers {
		s = append(s, k)
	}
	sort.Strings(s)
	return s
}

// DefaultRegistry is used by OpenResource.
var DefaultRegistry = NewRegistry()

// OpenResource opens locator with the default registry.
func OpenResource(locator string) (io.ReadCloser, error) {
	return DefaultRegistry.Open(locator)
}
