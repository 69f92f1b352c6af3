//go:build tinygo

package link

import "runtime/interrupt"

type irqState = interrupt.State

// disableInterrupts masks interrupts so an ISR producer cannot touch the ring
func disableInterrupts() irqState {
	return interrupt.Disable()
}

func restoreInterrupts(state irqState) {
	interrupt.Restore(state)
}
