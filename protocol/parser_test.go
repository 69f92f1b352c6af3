package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func parseAll(p *Parser, data []byte) []Request {
	var reqs []Request
	for _, b := range data {
		if req, ok := p.Parse(b); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

func TestParser(t *testing.T) {
	testCases := []struct {
		name    string
		input   []byte
		expect  []Request
		skipped int
	}{
		{
			name:   "count",
			input:  []byte{0xFF, 0x01},
			expect: []Request{{Command: CmdGetImageCount}},
		},
		{
			name:   "image",
			input:  []byte{0xFF, 0x02, 0x03, 0x00},
			expect: []Request{{Command: CmdGetImage, Index: 3}},
		},
		{
			name:   "index bytes may hold the escape value",
			input:  []byte{0xFF, 0x02, 0xFF, 0xFF, 0xFF, 0x01},
			expect: []Request{{Command: CmdGetImage, Index: 0xFFFF}, {Command: CmdGetImageCount}},
		},
		{
			name:    "garbage before escape is skipped",
			input:   []byte{0xAA, 0x00, 0x13, 0xFF, 0x01},
			expect:  []Request{{Command: CmdGetImageCount}},
			skipped: 3,
		},
		{
			name:   "repeated escape",
			input:  []byte{0xFF, 0xFF, 0xFF, 0x02, 0x10, 0x00},
			expect: []Request{{Command: CmdGetImage, Index: 0x10}},
		},
		{
			name:    "unknown command resyncs",
			input:   []byte{0xFF, 0x07, 0x01, 0xFF, 0x01},
			expect:  []Request{{Command: CmdGetImageCount}},
			skipped: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var p Parser
			require.Equal(t, tc.expect, parseAll(&p, tc.input))
			require.Equal(t, tc.skipped, p.Skipped())
			require.True(t, p.Idle())
		})
	}
}

func TestParserReset(t *testing.T) {
	var p Parser
	require.Empty(t, parseAll(&p, []byte{0xFF, 0x02, 0x05}))
	require.False(t, p.Idle())
	p.Reset()
	require.Equal(t, []Request{{Command: CmdGetImageCount}}, parseAll(&p, []byte{0xFF, 0x01}))
}
