//go:build rp2040

// Firmware for an RP2040 with a 128x128 ST7735 panel on SPI0 and the tile
// host on UART0.
package main

import (
	"context"
	"machine"
	"strconv"
	"time"

	"tinygo.org/x/drivers/st7735"

	"tilelink/client"
	"tilelink/display"
	"tilelink/link"
	"tilelink/protocol"
)

const (
	baudRate   = 256000
	tileDelay  = 100 * time.Millisecond
	retryPause = time.Second
)

// Panel wiring
const (
	lcdSCK = machine.GPIO18
	lcdSDO = machine.GPIO19
	lcdCS  = machine.GPIO17
	lcdDC  = machine.GPIO20
	lcdRST = machine.GPIO21
	lcdBL  = machine.GPIO22
)

// Receive ring: one chunk plus header and trailer, rounded up
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

	err = machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 16000000,
		SCK:       lcdSCK,
		SDO:       lcdSDO,
	})
	if err != nil {
		debug("spi: " + err.Error())
		return
	}
	lcd := st7735.New(machine.SPI0, lcdRST, lcdDC, lcdCS, lcdBL)
	lcd.Configure(st7735.Config{
		Width:  128,
		Height: 128,
		Model:  st7735.GREENTAB,
	})
	lcd.EnableBacklight(true)

	ctx := context.Background()
	pump := link.NewPump(rxStorage[:])
	go pump.Run(ctx, uart)

	l := link.New(uart, pump)
	l.Timeout = 2 * time.Second
	l.SetDebugWriter(debug)

	c, err := client.New(l, protocol.DefaultFormat, display.NewPanel(&lcd))
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
		debug(strconv.Itoa(count) + " images available")

		err = c.ShowTiles(ctx, count, client.ShowOptions{Delay: tileDelay, Retries: 2})
		if err != nil {
			debug("show: " + err.Error())
			time.Sleep(retryPause)
		}
	}
}
