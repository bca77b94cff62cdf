package transfer

import "strings"

// Mode classifies a transfer for diagnostics. It never drives control flow.
type Mode int

const (
	Connect Mode = iota
	Publish
	Subscribe
)

func (m Mode) String() string {
	switch m {
	case Connect:
		return "connect"
	case Publish:
		return "publish"
	case Subscribe:
		return "subscribe"
	}
	return "unknown"
}

// HandshakePrefix starts the text of a long-polling connect response.
const HandshakePrefix = `[{"channel":"/meta/connect",`

func isHandshake(text string) bool {
	return strings.HasPrefix(text, HandshakePrefix)
}
