//go:build rp2040

// Firmware for the Pimoroni Tufty 2040. The 320x240 panel is filled with
// 80x80 tiles fetched over UART0.
package main

import (
	"context"
	"machine"
	"strconv"
	"time"

	pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"

	"tilelink/client"
	"tilelink/display"
	"tilelink/link"
	"tilelink/protocol"
)

const (
	csPin  = machine.GP10
	dcPin  = machine.GP11
	wrPin  = machine.GP12
	rdPin  = machine.GP13
	db0Pin = machine.GP14
	blPin  = machine.GP2
)

const (
	MHz        = 1_000_000
	baudRate   = 256000
	tileDelay  = 20 * time.Millisecond
	retryPause = time.Second
)

var tileFormat = protocol.Format{
	Width:   80,
	Height:  80,
	Chunk:   1024,
	Checked: true,
}

var rxStorage [2048]byte

func debug(s string) {
	println(s)
}

func main() {
	uart := machine.UART0
	err := uart.Configure(machine.UARTConfig{
		BaudRate: baudRate,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	if err != nil {
		debug("uart: " + err.Error())
		return
	}

	sm, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		debug("pio: " + err.Error())
		return
	}
	bus, err := piolib.NewParallel8Tx(sm, wrPin, db0Pin, 1*MHz)
	if err != nil {
		debug("parallel bus: " + err.Error())
		return
	}
	lcd := NewST7789(bus, csPin, dcPin, rdPin, blPin, 320, 240)
	if err := lcd.Configure(); err != nil {
		debug("st7789: " + err.Error())
		return
	}

	ctx := context.Background()
	pump := link.NewPump(rxStorage[:])
	go pump.Run(ctx, uart)

	l := link.New(uart, pump)
	l.Timeout = 2 * time.Second
	l.SetDebugWriter(debug)

	c, err := client.New(l, tileFormat, display.NewPanel(lcd))
	if err != nil {
		debug("client: " + err.Error())
		return
	}
	c.SetDebugWriter(debug)

	for {
		count, err := c.QueryCount(ctx)
		if err != nil {
			l.Flush()
			time.Sleep(retryPause)
			continue
		}
		debug(strconv.Itoa(count) + " tiles available")

		err = c.ShowTiles(ctx, count, client.ShowOptions{Delay: tileDelay, Retries: 2})
		if err != nil {
			debug("show: " + err.Error())
			time.Sleep(retryPause)
		}
	}
}
