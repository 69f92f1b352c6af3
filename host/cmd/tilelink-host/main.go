// Command tilelink-host serves images as tiles to a panel on a serial port
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/term"

	"tilelink/host/config"
	"tilelink/host/library"
	"tilelink/host/serial"
	"tilelink/host/server"
	"tilelink/link"
	"tilelink/protocol"
)

var (
	configPath = flag.String("config", "", "JSON configuration file; replaces the flags below")
	device     = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud       = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	parity     = flag.String("parity", serial.ParityNone, "Parity: none, odd or even")
	images     = flag.String("images", "", "Comma separated image files or directories")
	tileSize   = flag.String("tile", "128x128", "Tile size WIDTHxHEIGHT, must match the firmware")
	panelSize  = flag.String("panel", "", "Panel size WIDTHxHEIGHT (default: one tile)")
	chunk      = flag.Int("chunk", protocol.DefaultFormat.Chunk, "Payload bytes per ready byte, must match the firmware")
	checked    = flag.Bool("checked", false, "Sized headers and CRC trailers, must match the firmware")
	fit        = flag.String("fit", string(library.FitScale), "How images reach panel size: scale or crop")
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

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}

	cfg := config.DefaultConfig(*device)
	cfg.Baud = *baud
	cfg.Parity = *parity
	cfg.Fit = library.Fit(*fit)
	cfg.Tile.Chunk = *chunk
	cfg.Tile.Checked = *checked

	var err error
	if cfg.Tile.Width, cfg.Tile.Height, err = protocol.ParseSize(*tileSize); err != nil {
		return nil, err
	}
	cfg.Panel.Width, cfg.Panel.Height = cfg.Tile.Width, cfg.Tile.Height
	if *panelSize != "" {
		if cfg.Panel.Width, cfg.Panel.Height, err = protocol.ParseSize(*panelSize); err != nil {
			return nil, err
		}
	}
	if *images != "" {
		cfg.Images = strings.Split(*images, ",")
	}
	return cfg, cfg.Validate()
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lib, err := library.Build(cfg.Format(), cfg.Panel.Width, cfg.Panel.Height, cfg.Fit, cfg.Images)
	if err != nil {
		return err
	}
	glog.Infof("%d images, %d tiles (%d per image)", lib.Images(), lib.Count(), lib.TilesPerImage())

	port, err := serial.Open(cfg.Serial())
	if err != nil {
		return err
	}
	defer port.Close()
	if err := port.Flush(); err != nil {
		glog.Warningf("flush %s: %v", cfg.Device, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l, _ := link.Open(ctx, port, link.SizeFor(256))
	l.SetDebugWriter(func(s string) { glog.V(2).Info(s) })

	srv, err := server.New(l, cfg.Format(), lib)
	if err != nil {
		return err
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		total := lib.Count()
		srv.OnTile = func(index int, err error) {
			if err != nil {
				fmt.Printf("\rtile %d/%d: %v\n", index+1, total, err)
				return
			}
			fmt.Printf("\rtile %d/%d", index+1, total)
		}
	}

	fmt.Printf("Serving %s on %s at %d baud\n", cfg.Format(), cfg.Device, cfg.Baud)
	err = srv.Serve(ctx)
	st := srv.Stats()
	fmt.Printf("\n%d tiles sent, %d count queries, %d aborted, %d blank, %d faults\n",
		st.Tiles, st.Counts, st.Aborted, st.Blank, st.Faults)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
