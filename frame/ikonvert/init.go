package ikonvert

import (
	"fmt"
	"strconv"
	"strings"
)

// InitOptions configures the scripted initialization dialog (spec §4.A'
// "Initialization is a scripted dialog").
type InitOptions struct {
	RXAllow []uint32 // PGNs to allow inbound; empty means no filter configured
	TXAllow []uint32 // PGNs to allow outbound; empty means no filter configured
	Verbose bool     // also request SHOW_LISTS before going online
}

// InitCommands returns, in order, the ASCII command lines to send to bring
// the device online, per spec §4.A's five/six-step dialog. The caller is
// responsible for waiting for the corresponding "$PDGY,ACK,..." line after
// each RX_LIST/TX_LIST command before sending the next.
func InitCommands(opts InitOptions) []string {
	var cmds []string
	cmds = append(cmds, "$PDGY,OFFLINE")

	hasFilter := len(opts.RXAllow) > 0 || len(opts.TXAllow) > 0
	if hasFilter {
		cmds = append(cmds, "$PDGY,RESET")
	}
	if len(opts.RXAllow) > 0 {
		cmds = append(cmds, "$PDGY,RX_LIST,"+joinPGNs(opts.RXAllow))
	}
	if len(opts.TXAllow) > 0 {
		cmds = append(cmds, "$PDGY,TX_LIST,"+joinPGNs(opts.TXAllow))
	}
	if opts.Verbose {
		cmds = append(cmds, "$PDGY,SHOW_LISTS")
	}

	mode := "ALL"
	if hasFilter {
		mode = "NORMAL"
	}
	cmds = append(cmds, fmt.Sprintf("$PDGY,ONLINE,%s", mode))
	return cmds
}

func joinPGNs(pgns []uint32) string {
	parts := make([]string, len(pgns))
	for i, p := range pgns {
		parts[i] = strconv.FormatUint(uint64(p), 10)
	}
	return strings.Join(parts, ",")
}

// RateLimitOffCommand disables the device's own 1-second rate limiting of
// repeated PGNs (spec §4.A' step 6, optional).
const RateLimitOffCommand = "$PDGY,RATE_LIMIT_OFF"

// IsACK reports whether msg is the device's acknowledgement of a
// RX_LIST/TX_LIST command.
func IsACK(msg string) bool {
	return strings.HasPrefix(msg, "$PDGY,ACK,")
}
