//////////////////////////////////////////////////////////////////////////////
//
// Capture-session interception boundary
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

// Package intercept is the boundary between a hooked capture-session request
// and the render sessions. Platform versions expose the request in one of
// three shapes; exactly one is hooked per process.
package intercept

import (
	"runtime/debug"

	"github.com/lanikai/virtucam/internal/gles"
	"github.com/lanikai/virtucam/internal/logging"
	"github.com/lanikai/virtucam/internal/session"
	"github.com/pkg/errors"
)

var log = logging.DefaultLogger.WithTag("intercept")

// Variant is the shape of a capture-session request.
type Variant int

const (
	// SurfaceList is a plain ordered list of destination surfaces.
	SurfaceList Variant = iota

	// OutputConfigurations wraps each surface in an output configuration
	// (API level 24+).
	OutputConfigurations

	// SessionConfiguration wraps the output configurations in a single
	// session configuration object (API level 28+).
	SessionConfiguration
)

func (v Variant) String() string {
	switch v {
	case SurfaceList:
		return "SurfaceList"
	case OutputConfigurations:
		return "OutputConfigurations"
	case SessionConfiguration:
		return "SessionConfiguration"
	}
	return "Variant(?)"
}

// Select picks the variant to hook for a platform API level. Newer
// platforms route the older entry points through the newest one, so hooking
// more than one would see a single request twice.
func Select(apiLevel int) Variant {
	switch {
	case apiLevel >= 28:
		return SessionConfiguration
	case apiLevel >= 24:
		return OutputConfigurations
	default:
		return SurfaceList
	}
}

// Replacer starts render sessions for a request's targets. *session.Manager
// is a Replacer.
type Replacer interface {
	Replace(targets []session.Target) ([]gles.NativeWindow, error)
}

var _ Replacer = (*session.Manager)(nil)

// An Output is one entry of a request. Deferred outputs have no surface yet
// and pass through untouched.
type Output struct {
	Target   session.Target
	Deferred bool
}

// A Request is an intercepted capture-session request.
type Request struct {
	Variant Variant
	Outputs []Output
}

// A Result tells the hook how to rewrite the request. When Modified is
// false the original request must proceed unchanged. Otherwise Substitutes
// holds one surface per output; zero for deferred outputs.
type Result struct {
	Modified    bool
	Substitutes []gles.NativeWindow
}

// A Hook handles requests of one variant.
type Hook struct {
	variant Variant
	r       Replacer
}

// NewHook binds the variant selected for apiLevel.
func NewHook(apiLevel int, r Replacer) *Hook {
	h := &Hook{variant: Select(apiLevel), r: r}
	log.Info("Hooking %v capture sessions (API level %d)", h.variant, apiLevel)
	return h
}

// Variant returns the request shape this hook handles.
func (h *Hook) Variant() Variant {
	return h.variant
}

// Intercept substitutes the request's surfaces. It never panics and never
// fails: on any problem the request proceeds unmodified.
func (h *Hook) Intercept(req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Intercept panic, passing request through: %v\n%s", r, debug.Stack())
			res = Result{}
		}
	}()

	if req.Variant != h.variant {
		log.Warn("Ignoring %v request; this process hooks %v", req.Variant, h.variant)
		return Result{}
	}

	var targets []session.Target
	for _, out := range req.Outputs {
		if !out.Deferred {
			targets = append(targets, out.Target)
		}
	}
	if len(targets) == 0 {
		// A new capture session still ends the previous one.
		if _, err := h.r.Replace(nil); err != nil && errors.Cause(err) != session.ErrDisabled {
			log.Warn("Ending previous sessions: %v", err)
		}
		return Result{}
	}
	log.Debug("Intercepted %v request: %d outputs, %d surfaces", req.Variant, len(req.Outputs), len(targets))

	subs, err := h.r.Replace(targets)
	if errors.Cause(err) == session.ErrDisabled {
		return Result{}
	} else if err != nil {
		log.Error("Substitution failed, passing request through: %v", err)
		return Result{}
	}
	if len(subs) != len(targets) {
		log.Error("Got %d substitutes for %d surfaces, passing request through", len(subs), len(targets))
		return Result{}
	}

	res = Result{Modified: true, Substitutes: make([]gles.NativeWindow, len(req.Outputs))}
	next := 0
	for i, out := range req.Outputs {
		if out.Deferred {
			continue
		}
		res.Substitutes[i] = subs[next]
		next++
	}
	return res
}
