package gateway

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/gorilla/websocket"
)

const (
	opDispatch  = 0
	opHeartbeat = 1
	opIdentify  = 2
	opStatus    = 3

	protocolVersion = 3
)

type frame struct {
	Op   int             `json:"op"`
	Tag  string          `json:"t"`
	Seq  *int64          `json:"s"`
	Data json.RawMessage `json:"d"`
}

type outgoing struct {
	Op   int `json:"op"`
	Data any `json:"d"`
}

type identifyData struct {
	Token      string            `json:"token"`
	Version    int               `json:"v"`
	Properties map[string]string `json:"properties"`
	Compress   bool              `json:"compress"`
}

type statusData struct {
	IdleSince *int64 `json:"idle_since"`
	GameID    *int64 `json:"game_id"`
}

type readyData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

func identifyProperties() map[string]string {
	return map[string]string{
		"$os":               runtime.GOOS,
		"$browser":          "chatapp-client",
		"$device":           "chatapp-client",
		"$referrer":         "",
		"$referring_domain": "",
	}
}

// DecodeFrame returns the JSON text of a frame. Binary frames are zlib
// compressed.
func DecodeFrame(messageType int, data []byte) ([]byte, error) {
	switch messageType {
	case websocket.TextMessage:
		return data, nil
	case websocket.BinaryMessage:
		reader, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("couldn't inflate frame: %w", err)
		}
		defer reader.Close()

		text, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("couldn't inflate frame: %w", err)
		}
		return text, nil
	default:
		return nil, fmt.Errorf("unsupported message type %d", messageType)
	}
}
