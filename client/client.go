// Package client drives the tile request protocol from the device side: it
// asks the host how many tiles exist, fetches them one at a time with ready
// byte pacing and hands complete tiles to a renderer.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tilelink/link"
	"tilelink/protocol"
	"tilelink/tile"
)

// Stats counts protocol outcomes
type Stats struct {
	Requests int // GetImage requests sent
	Shown    int // tiles rendered
	Aborted  int // exchanges cut short by the link
	Rejected int // checked tiles refused for size or checksum
	Retries  int // ShowAll re-requests
}

// Client runs one exchange at a time over a Link. It is not safe for
// concurrent use.
type Client struct {
	link   *link.Link
	format protocol.Format
	asm    *tile.Assembler
	render *tile.Renderer
	debug  link.DebugWriter
	stats  Stats

	frame  [protocol.MaxFrameSize]byte
	header [protocol.MaxHeaderSize]byte
	chunk  []byte
}

// New creates a client for tiles of format f rendered on d
func New(l *link.Link, f protocol.Format, d tile.Display) (*Client, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		link:   l,
		format: f,
		asm:    tile.NewAssembler(f.Width, f.Height),
		render: tile.NewRenderer(d),
		debug:  func(string) {},
		chunk:  make([]byte, f.Chunk),
	}, nil
}

// SetDebugWriter installs a diagnostic output function
func (c *Client) SetDebugWriter(w link.DebugWriter) {
	if w == nil {
		w = func(string) {}
	}
	c.debug = w
}

// Format returns the tile format the client was built for
func (c *Client) Format() protocol.Format {
	return c.format
}

// Stats returns a snapshot of the counters
func (c *Client) Stats() Stats {
	return c.stats
}

// QueryCount asks the host how many tiles it serves
func (c *Client) QueryCount(ctx context.Context) (int, error) {
	c.link.Send(protocol.AppendGetImageCount(c.frame[:0]))

	var reply [protocol.CountReplySize]byte
	if err := c.link.ReceiveExact(ctx, reply[:]); err != nil {
		return 0, c.abort(&TransferError{Index: -1, Stage: StageCount, Err: err})
	}
	n, _ := protocol.DecodeCount(reply[:])
	return int(n), nil
}

// RequestTile fetches tile index. The returned tile is owned by the client
// and overwritten by the next request; it is only returned when every byte
// arrived (and, in checked mode, the size and checksum agree).
func (c *Client) RequestTile(ctx context.Context, index int) (*tile.Tile, error) {
	if index < 0 || index > protocol.MaxIndex {
		return nil, fmt.Errorf("%w: %d", ErrIndexRange, index)
	}
	c.stats.Requests++
	c.link.Send(protocol.AppendGetImage(c.frame[:0], uint16(index)))

	hdr := c.header[:c.format.HeaderSize()]
	if err := c.link.ReceiveExact(ctx, hdr); err != nil {
		return nil, c.abort(&TransferError{Index: index, Stage: StageHeader, Err: err})
	}
	h, _ := c.format.DecodeHeader(hdr)

	checked := c.format.Checked
	var crc uint16
	if checked {
		crc = protocol.CRC16(hdr)
	}
	match := c.format.Matches(h)
	if match {
		c.asm.Begin(int(h.X), int(h.Y))
	}

	// A mismatched checked header is drained at its announced size so the
	// stream stays aligned for the next request.
	ready := [1]byte{protocol.Ready}
	chunks := c.format.ChunksOf(h)
	for i := 0; i < chunks; i++ {
		buf := c.chunk[:c.format.ChunkLenOf(h, i)]
		c.link.Send(ready[:])
		if err := c.link.ReceiveExact(ctx, buf); err != nil {
			return nil, c.abort(&TransferError{Index: index, Stage: StageChunk, Chunk: i, Err: err})
		}
		if checked {
			crc = protocol.CRC16Update(crc, buf)
		}
		if match {
			if _, err := c.asm.Write(buf); err != nil {
				return nil, err
			}
		}
	}

	if !checked {
		return c.asm.Tile(), nil
	}

	var trailer [protocol.TrailerSize]byte
	if err := c.link.ReceiveExact(ctx, trailer[:]); err != nil {
		return nil, c.abort(&TransferError{Index: index, Stage: StageTrailer, Err: err})
	}
	if !match {
		c.stats.Rejected++
		return nil, fmt.Errorf("tile %d: host sent %dx%d, want %dx%d: %w",
			index, h.Width, h.Height, c.format.Width, c.format.Height, protocol.ErrTileSize)
	}
	if want, _ := protocol.DecodeTrailer(trailer[:]); want != crc {
		c.stats.Rejected++
		return nil, fmt.Errorf("tile %d: crc 0x%04x, computed 0x%04x: %w", index, want, crc, protocol.ErrChecksum)
	}
	return c.asm.Tile(), nil
}

func (c *Client) abort(err *TransferError) error {
	c.stats.Aborted++
	c.debug("client: " + err.Error())
	return err
}

// Show fetches tile index and renders it
func (c *Client) Show(ctx context.Context, index int) error {
	t, err := c.RequestTile(ctx, index)
	if err != nil {
		return err
	}
	if err := c.render.Render(t); err != nil {
		return err
	}
	c.stats.Shown++
	return nil
}

// ShowOptions controls ShowAll
type ShowOptions struct {
	// Delay is the pause after each tile
	Delay time.Duration

	// Retries is how many more times a tile is requested after an aborted
	// transfer or a rejected checked tile
	Retries int

	// Progress, if set, is called after every tile attempt sequence
	Progress func(index, count int, err error)
}

// ShowAll queries the tile count and shows every tile in order. It stops at
// the first tile that still fails after its retries.
func (c *Client) ShowAll(ctx context.Context, opts ShowOptions) error {
	count, err := c.QueryCount(ctx)
	for attempt := 0; err != nil && c.retry(ctx, err, attempt, opts.Retries); attempt++ {
		count, err = c.QueryCount(ctx)
	}
	if err != nil {
		return err
	}
	return c.ShowTiles(ctx, count, opts)
}

// ShowTiles shows tiles 0 to count-1 in order, for callers that already
// queried the count. It stops at the first tile that still fails after its
// retries.
func (c *Client) ShowTiles(ctx context.Context, count int, opts ShowOptions) error {
	var err error
	for i := 0; i < count; i++ {
		err = c.Show(ctx, i)
		for attempt := 0; err != nil && c.retry(ctx, err, attempt, opts.Retries); attempt++ {
			err = c.Show(ctx, i)
		}
		if opts.Progress != nil {
			opts.Progress(i, count, err)
		}
		if err != nil {
			return err
		}
		if opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// retry decides whether err is worth another request and clears stale input
func (c *Client) retry(ctx context.Context, err error, attempt, budget int) bool {
	if attempt >= budget || ctx.Err() != nil {
		return false
	}
	if !errors.Is(err, ErrTransferAborted) &&
		!errors.Is(err, protocol.ErrTileSize) &&
		!errors.Is(err, protocol.ErrChecksum) {
		return false
	}
	c.link.Flush()
	c.stats.Retries++
	return true
}
