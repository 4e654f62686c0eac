//////////////////////////////////////////////////////////////////////////////
//
// Media resource access, demuxing and hardware decoding
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

// Package media opens media resources by locator, demuxes local containers
// and network streams, and drives hardware video decoders that render onto a
// producer surface.
package media

import (
	"github.com/lanikai/virtucam/internal/logging"
	errors "golang.org/x/xerrors"
)

var log = logging.DefaultLogger.WithTag("media")

var (
	ErrNoVideoTrack = errors.New("no video track")
	ErrNotSupported = errors.New("not supported")
	ErrClosed       = errors.New("decoder closed")
)
