package client

import (
	"errors"
	"fmt"
)

var (
	// ErrTransferAborted matches every *TransferError
	ErrTransferAborted = errors.New("transfer aborted")

	// ErrIndexRange is returned for tile indices the request frame cannot carry
	ErrIndexRange = errors.New("tile index out of range")
)

// Stage names the part of an exchange that was in progress
type Stage uint8

const (
	StageCount Stage = iota
	StageHeader
	StageChunk
	StageTrailer
)

func (s Stage) String() string {
	switch s {
	case StageCount:
		return "count"
	case StageHeader:
		return "header"
	case StageChunk:
		return "chunk"
	case StageTrailer:
		return "trailer"
	}
	return "unknown"
}

// TransferError reports an exchange cut short by a link failure. Nothing was
// rendered; the request can be retried as a whole.
type TransferError struct {
	Index int // tile index, -1 for a count query
	Stage Stage
	Chunk int // chunk number for StageChunk
	Err   error
}

func (e *TransferError) Error() string {
	what := "image count"
	if e.Index >= 0 {
		what = fmt.Sprintf("tile %d", e.Index)
	}
	where := e.Stage.String()
	if e.Stage == StageChunk {
		where = fmt.Sprintf("chunk %d", e.Chunk)
	}
	return fmt.Sprintf("%s aborted at %s: %v", what, where, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func (e *TransferError) Is(target error) bool {
	return target == ErrTransferAborted
}
