package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrNoFrameRecorder          = errors.New("no frame recorder configured")
	ErrUnknownDescriptionFormat = errors.New("unknown frame description format")
	ErrWatcherClosed            = errors.New("watcher already closed")
	ErrNoDeviceContext          = errors.New("vulkan backend needs a device context")
)
