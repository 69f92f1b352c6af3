package link

import (
	"errors"
	"strconv"
)

// Kind classifies a link failure
type Kind uint8

const (
	KindIO       Kind = iota + 1 // read/write error from the port
	KindFraming                  // UART framing error
	KindParity                   // UART parity error
	KindOverrun                  // bytes dropped because the ring was full
	KindTimeout                  // no byte arrived within the receive timeout
	KindCanceled                 // caller context cancelled
	KindClosed                   // peer closed the stream
)

var kindNames = [...]string{
	KindIO:       "i/o",
	KindFraming:  "framing",
	KindParity:   "parity",
	KindOverrun:  "overrun",
	KindTimeout:  "timeout",
	KindCanceled: "canceled",
	KindClosed:   "closed",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Error is returned by receive operations when the link fails.
// After an Error the destination buffer contents are undefined.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "link " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "link " + e.Kind.String() + " error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout lets os.IsTimeout and net.Error style checks recognise receive timeouts
func (e *Error) Timeout() bool {
	return e.Kind == KindTimeout
}

// IsKind reports whether err carries a link Error of kind k
func IsKind(err error, k Kind) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind == k
}

func newError(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}
