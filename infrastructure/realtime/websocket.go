package realtime

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const closeGrace = time.Second

type websocketTransport struct {
	conn *websocket.Conn
}

func (w *websocketTransport) receive(_ context.Context) ([]Envelope, error) {
	var env Envelope
	if err := w.conn.ReadJSON(&env); err != nil {
		return nil, err
	}
	return []Envelope{env}, nil
}

func (w *websocketTransport) close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	return w.conn.Close()
}
