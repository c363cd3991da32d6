package wstransport

import "github.com/gorilla/websocket"

// Custom WebSocket close codes this transport's demo framing uses to
// tell an intentional session-level shutdown apart from a transport
// failure worth reconnecting over. Adapted from the teacher's
// pkg/utils/protocol.go close-code table, generalized from the
// number-sequence protocol's codes to this transport's.
const (
	CloseCodeSessionTerminated int = 4001
	CloseCodeAuthRejected      int = 4002
)

func isKnownClientErrorCode(code int) bool {
	return code == CloseCodeSessionTerminated || code == CloseCodeAuthRejected
}

var codeNameMap = map[int]string{
	CloseCodeSessionTerminated: "CloseCodeSessionTerminated",
	CloseCodeAuthRejected:      "CloseCodeAuthRejected",
	websocket.CloseNormalClosure: "CloseNormalClosure",
	websocket.CloseGoingAway:     "CloseGoingAway",
}

func closeCodeName(code int) string {
	if name, ok := codeNameMap[code]; ok {
		return name
	}
	return "UnknownCode"
}
