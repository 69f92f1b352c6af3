// Package server is the host end of the tile link: it answers the device's
// count and tile requests from a tile source.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"tilelink/link"
	"tilelink/protocol"
	"tilelink/tile"
)

// Source provides the tiles being served
type Source interface {
	Count() int
	Tile(i int) (*tile.Tile, bool)
}

// Stats counts served requests
type Stats struct {
	Counts  int // count queries answered
	Tiles   int // tiles fully sent
	Blank   int // out of range requests answered with a blank tile
	Aborted int // transfers abandoned while waiting for a ready byte
	Faults  int // line faults seen between requests
	Skipped int // bytes discarded while hunting for a command, as of the last one
}

// Server answers requests arriving on one link
type Server struct {
	link   *link.Link
	format protocol.Format
	src    Source
	parser protocol.Parser
	blank  *tile.Tile

	// ReadyTimeout bounds the wait for each ready byte. Zero waits until
	// the peer sends something.
	ReadyTimeout time.Duration

	// OnTile, if set, is called after every tile request
	OnTile func(index int, err error)

	pending    byte
	hasPending bool
	payload    []byte
	frame      []byte

	mu    sync.Mutex
	stats Stats
}

// ErrNotReady is reported to OnTile when the peer sent something other than
// a ready byte in the middle of a transfer
var ErrNotReady = errors.New("peer not ready")

// New creates a server sending tiles of format f from src
func New(l *link.Link, f protocol.Format, src Source) (*Server, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		link:    l,
		format:  f,
		src:     src,
		blank:   tile.New(f.Width, f.Height),
		payload: make([]byte, 0, f.PayloadSize()),
		frame:   make([]byte, 0, protocol.MaxHeaderSize+protocol.TrailerSize),
	}, nil
}

// Stats returns a snapshot of the counters
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Server) count(f func(*Stats)) {
	s.mu.Lock()
	f(&s.stats)
	s.mu.Unlock()
}

// Serve handles requests until ctx is done or the peer closes the link.
// Line faults and timeouts between requests are logged and survived.
func (s *Server) Serve(ctx context.Context) error {
	glog.Infof("serving %d tiles as %v", s.src.Count(), s.format)
	for {
		b, err := s.next(ctx, 0)
		if err != nil {
			var le *link.Error
			if !errors.As(err, &le) {
				return err
			}
			switch le.Kind {
			case link.KindTimeout:
				continue
			case link.KindCanceled:
				return ctx.Err()
			case link.KindClosed:
				glog.Infof("peer closed the link")
				return nil
			case link.KindIO:
				return err
			}
			glog.Warningf("line fault between requests: %v", err)
			s.count(func(st *Stats) { st.Faults++ })
			s.parser.Reset()
			continue
		}

		req, ok := s.parser.Parse(b)
		if !ok {
			continue
		}
		s.count(func(st *Stats) { st.Skipped = s.parser.Skipped() })
		switch req.Command {
		case protocol.CmdGetImageCount:
			s.sendCount()
		case protocol.CmdGetImage:
			err := s.sendTile(ctx, int(req.Index))
			if s.OnTile != nil {
				s.OnTile(int(req.Index), err)
			}
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// next returns the byte pushed back by an aborted transfer, or reads one
func (s *Server) next(ctx context.Context, timeout time.Duration) (byte, error) {
	if s.hasPending {
		s.hasPending = false
		return s.pending, nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var one [1]byte
	if err := s.link.ReceiveExact(ctx, one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}

func (s *Server) sendCount() {
	n := s.src.Count()
	if n > 0xFFFF {
		n = 0xFFFF
	}
	glog.V(1).Infof("get_image_count -> %d", n)
	s.link.Send(protocol.AppendCount(s.frame[:0], uint16(n)))
	s.count(func(st *Stats) { st.Counts++ })
}

func (s *Server) sendTile(ctx context.Context, index int) error {
	t, ok := s.src.Tile(index)
	if !ok {
		glog.Warningf("get_image %d: only %d tiles, sending a blank tile", index, s.src.Count())
		t = s.blank
		s.count(func(st *Stats) { st.Blank++ })
	} else {
		glog.V(1).Infof("get_image %d -> (%d,%d)", index, t.X, t.Y)
	}

	h := protocol.Header{X: uint8(t.X), Y: uint8(t.Y), Width: t.Width, Height: t.Height}
	hdr := s.format.AppendHeader(s.frame[:0], h)
	s.link.Send(hdr)

	crc := protocol.CRC16(hdr)
	s.payload = t.Payload(s.payload[:0])
	for i := 0; i < s.format.ChunksOf(h); i++ {
		if err := s.awaitReady(ctx); err != nil {
			s.count(func(st *Stats) { st.Aborted++ })
			glog.Warningf("get_image %d: chunk %d: %v", index, i, err)
			return fmt.Errorf("tile %d chunk %d: %w", index, i, err)
		}
		off := i * s.format.Chunk
		chunk := s.payload[off : off+s.format.ChunkLenOf(h, i)]
		crc = protocol.CRC16Update(crc, chunk)
		s.link.Send(chunk)
	}
	if s.format.Checked {
		s.link.Send(protocol.AppendTrailer(s.frame[:0], crc))
	}
	s.count(func(st *Stats) { st.Tiles++ })
	return nil
}

// awaitReady waits for the byte that releases the next chunk. Anything else
// is the start of a new request: it is pushed back for the parser.
func (s *Server) awaitReady(ctx context.Context) error {
	b, err := s.next(ctx, s.ReadyTimeout)
	if err != nil {
		return err
	}
	if b != protocol.Ready {
		s.pending, s.hasPending = b, true
		return fmt.Errorf("%w: got 0x%02x", ErrNotReady, b)
	}
	return nil
}
