//go:build !tinygo

package link

// irqState is a placeholder for interrupt state on regular Go
type irqState uintptr

// disableInterrupts is a no-op on regular Go; producers there are goroutines
// and Pump.Reset requires them to be stopped.
func disableInterrupts() irqState {
	return 0
}

func restoreInterrupts(irqState) {}
