// Command tilelink-probe plays the panel's side of the link from a PC. It
// sends the same requests the firmware does and renders into memory, which
// makes it handy for checking a host (or the firmware's host counterpart)
// over a real serial line.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"tilelink/client"
	"tilelink/display"
	"tilelink/host/serial"
	"tilelink/link"
	"tilelink/protocol"
)

var (
	device    = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud      = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	tileSize  = flag.String("tile", "128x128", "Tile size WIDTHxHEIGHT")
	panelSize = flag.String("panel", "", "Panel size WIDTHxHEIGHT (default: one tile)")
	chunk     = flag.Int("chunk", protocol.DefaultFormat.Chunk, "Payload bytes per ready byte")
	checked   = flag.Bool("checked", false, "Expect sized headers and CRC trailers")
	timeout   = flag.Duration("timeout", 2*time.Second, "Receive timeout, 0 waits forever")
	evalOnly  = flag.Bool("e", false, "Run the command given as arguments and exit")
)

const probeKey = "$probe"

type probe struct {
	port   serial.Port
	link   *link.Link
	pump   *link.Pump
	client *client.Client
	fb     *display.Framebuffer
}

func probeFrom(c *ishell.Context) *probe {
	return c.Get(probeKey).(*probe)
}

func main() {
	flag.Parse()
	defer glog.Flush()

	p, err := open()
	if err != nil {
		log.Fatalf("open %s failed: %v", *device, err)
	}
	defer p.port.Close()

	shell := ishell.New()
	shell.Set(probeKey, p)
	shell.SetPrompt(fmt.Sprintf("%s > ", *device))
	for _, cmd := range commands {
		shell.AddCmd(cmd)
	}

	if args := flag.Args(); len(args) > 0 {
		if err := shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if *evalOnly {
		log.Fatalln("command expected")
	}
	shell.Run()
}

func open() (*probe, error) {
	f := protocol.Format{Chunk: *chunk, Checked: *checked}
	var err error
	if f.Width, f.Height, err = protocol.ParseSize(*tileSize); err != nil {
		return nil, err
	}
	pw, ph := f.Width, f.Height
	if *panelSize != "" {
		if pw, ph, err = protocol.ParseSize(*panelSize); err != nil {
			return nil, err
		}
	}

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}

	l, pump := link.Open(context.Background(), port, link.SizeFor(f.Chunk+protocol.MaxHeaderSize+protocol.TrailerSize))
	l.Timeout = *timeout
	l.SetDebugWriter(func(s string) { glog.V(1).Info(s) })

	fb := display.NewFramebuffer(pw, ph)
	c, err := client.New(l, f, fb)
	if err != nil {
		port.Close()
		return nil, err
	}
	c.SetDebugWriter(func(s string) { glog.V(1).Info(s) })
	return &probe{port: port, link: l, pump: pump, client: c, fb: fb}, nil
}

var commands = []*ishell.Cmd{
	{
		Name: "count",
		Help: "ask the host how many tiles it has",
		Func: func(c *ishell.Context) {
			n, err := probeFrom(c).client.QueryCount(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%d tiles\n", n)
		},
	},
	{
		Name:    "tile",
		Aliases: []string{"t"},
		Help:    "INDEX - fetch and render one tile",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: tile INDEX"))
				return
			}
			index, err := strconv.ParseUint(c.Args[0], 0, 16)
			if err != nil {
				c.Err(fmt.Errorf("bad index %q: %w", c.Args[0], err))
				return
			}
			p := probeFrom(c)
			start := time.Now()
			t, err := p.client.RequestTile(context.Background(), int(index))
			if err != nil {
				c.Err(err)
				return
			}
			if err := p.fb.SetBlock(t.X, t.Y, t.Width, t.Height, t.Pix); err != nil {
				c.Err(err)
				return
			}
			c.Printf("tile %d: %dx%d at (%d,%d), crc 0x%04x, %v\n",
				index, t.Width, t.Height, t.X, t.Y, protocol.CRC16(t.Payload(nil)), time.Since(start).Round(time.Millisecond))
		},
	},
	{
		Name: "all",
		Help: "[RETRIES] - fetch and render every tile",
		Func: func(c *ishell.Context) {
			opts := client.ShowOptions{
				Progress: func(index, count int, err error) {
					if err != nil {
						c.Printf("tile %d/%d: %v\n", index+1, count, err)
						return
					}
					c.Printf("tile %d/%d\n", index+1, count)
				},
			}
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				opts.Retries = n
			}
			if err := probeFrom(c).client.ShowAll(context.Background(), opts); err != nil {
				c.Err(err)
			}
		},
	},
	{
		Name: "save",
		Help: "FILE.png - write the rendered panel to a PNG file",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: save FILE.png"))
				return
			}
			f, err := os.Create(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			defer f.Close()
			if err := png.Encode(f, probeFrom(c).fb.Image()); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	},
	{
		Name: "stats",
		Help: "show transfer counters",
		Func: func(c *ishell.Context) {
			p := probeFrom(c)
			st := p.client.Stats()
			c.Printf("requests %d, shown %d, aborted %d, rejected %d, retries %d\n",
				st.Requests, st.Shown, st.Aborted, st.Rejected, st.Retries)
			c.Printf("send errors %d, dropped bytes %d, buffered %d\n",
				p.link.SendErrors(), p.pump.Dropped(), p.pump.Buffered())
		},
	},
	{
		Name: "timeout",
		Help: "[DURATION] - show or set the receive timeout",
		Func: func(c *ishell.Context) {
			p := probeFrom(c)
			if len(c.Args) > 0 {
				d, err := time.ParseDuration(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				p.link.Timeout = d
			}
			c.Printf("timeout %v\n", p.link.Timeout)
		},
	},
	{
		Name: "flush",
		Help: "drop buffered input",
		Func: func(c *ishell.Context) {
			c.Printf("%d bytes dropped\n", probeFrom(c).link.Flush())
		},
	},
}
