// Command tilelink-sim runs the panel firmware's tile loop on the desktop.
//
// By default the host runs in the same process on the other end of a pipe;
// with -device the simulator talks to a real host over a serial port.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/golang/glog"

	"tilelink/client"
	"tilelink/display"
	"tilelink/host/library"
	"tilelink/host/serial"
	"tilelink/host/server"
	"tilelink/link"
	"tilelink/protocol"
)

var (
	images    = flag.String("images", "", "Comma separated image files or directories for the built-in host")
	device    = flag.String("device", "", "Serial device of a real host; empty runs one in-process")
	baud      = flag.Int("baud", serial.DefaultBaud, "Baud rate with -device")
	tileSize  = flag.String("tile", "128x128", "Tile size WIDTHxHEIGHT")
	panelSize = flag.String("panel", "", "Panel size WIDTHxHEIGHT (default: one tile)")
	chunk     = flag.Int("chunk", protocol.DefaultFormat.Chunk, "Payload bytes per ready byte")
	checked   = flag.Bool("checked", false, "Sized headers and CRC trailers")
	fit       = flag.String("fit", string(library.FitScale), "Built-in host fit: scale or crop")
	delay     = flag.Duration("delay", 100*time.Millisecond, "Pause between tiles")
	timeout   = flag.Duration("timeout", 2*time.Second, "Receive timeout")
	retries   = flag.Int("retries", 2, "Re-requests per failed tile")
	loop      = flag.Bool("loop", true, "Keep cycling through the tiles")
	scale     = flag.Int("scale", 3, "Window pixels per panel pixel")
	headless  = flag.Bool("headless", false, "No window; stop after one pass")
	out       = flag.String("out", "", "Write the final frame to this PNG file")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func format() (protocol.Format, int, int, error) {
	f := protocol.Format{Chunk: *chunk, Checked: *checked}
	var err error
	if f.Width, f.Height, err = protocol.ParseSize(*tileSize); err != nil {
		return f, 0, 0, err
	}
	pw, ph := f.Width, f.Height
	if *panelSize != "" {
		if pw, ph, err = protocol.ParseSize(*panelSize); err != nil {
			return f, 0, 0, err
		}
	}
	return f, pw, ph, f.Validate()
}

// connect returns the device end of the link, starting the in-process host
// when no device is given
func connect(ctx context.Context, f protocol.Format, pw, ph int) (io.ReadWriteCloser, error) {
	if *device != "" {
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		return serial.Open(cfg)
	}

	var paths []string
	if *images != "" {
		paths = strings.Split(*images, ",")
	}
	fitMode, err := library.ParseFit(*fit)
	if err != nil {
		return nil, err
	}
	lib, err := library.Build(f, pw, ph, fitMode, paths)
	if err != nil {
		return nil, err
	}

	hostEnd, devEnd := net.Pipe()
	hl, _ := link.Open(ctx, hostEnd, link.SizeFor(64))
	hl.SetDebugWriter(func(s string) { glog.V(2).Info(s) })
	srv, err := server.New(hl, f, lib)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			glog.Errorf("host: %v", err)
		}
		hostEnd.Close()
	}()
	return devEnd, nil
}

func run() error {
	f, pw, ph, err := format()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, err := connect(ctx, f, pw, ph)
	if err != nil {
		return err
	}
	defer conn.Close()

	l, _ := link.Open(ctx, conn, link.SizeFor(f.Chunk+protocol.MaxHeaderSize+protocol.TrailerSize))
	l.Timeout = *timeout
	l.SetDebugWriter(func(s string) { glog.V(1).Info(s) })

	// the status strip sits below the panel
	fb := display.NewFramebuffer(pw, ph+display.StatusBarHeight)
	status := display.NewStatusBar(fb)
	c, err := client.New(l, f, fb)
	if err != nil {
		return err
	}
	c.SetDebugWriter(func(s string) { glog.V(1).Info(s) })

	done := make(chan error, 1)
	go func() {
		done <- play(ctx, c, status, !*headless && *loop)
	}()

	if *headless {
		err = <-done
	} else {
		err = display.RunWindow(fb, display.WindowOptions{
			Title: "tilelink " + f.String(),
			Scale: *scale,
			Update: func() error {
				select {
				case err := <-done:
					if err != nil {
						return err
					}
				default:
				}
				return nil
			},
		})
		stop()
	}

	if *out != "" {
		if werr := savePNG(*out, fb); werr != nil && err == nil {
			err = werr
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// play mirrors the firmware main loop: announce the tile count, then show
// every tile with a pause in between
func play(ctx context.Context, c *client.Client, status *display.StatusBar, forever bool) error {
	opts := client.ShowOptions{
		Delay:   *delay,
		Retries: *retries,
		Progress: func(index, count int, err error) {
			msg := fmt.Sprintf("tile %d/%d", index+1, count)
			if err != nil {
				msg += " failed"
			}
			status.Show(msg)
		},
	}
	for {
		count, err := c.QueryCount(ctx)
		if err != nil {
			return err
		}
		glog.Infof("%d images available", count)
		status.Show(fmt.Sprintf("%d tiles available", count))

		if err := c.ShowTiles(ctx, count, opts); err != nil {
			return err
		}
		st := c.Stats()
		glog.Infof("pass done: %d shown, %d aborted, %d retries", st.Shown, st.Aborted, st.Retries)
		if !forever {
			return nil
		}
	}
}

func savePNG(path string, fb *display.Framebuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, fb.Image()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
