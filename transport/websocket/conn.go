package websocket

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	maxMessageSize = 4096
)

// lineConn carries one protocol line per text frame.
type lineConn struct {
	conn *websocket.Conn
}

func newLineConn(conn *websocket.Conn) *lineConn {
	conn.SetReadLimit(maxMessageSize)

	return &lineConn{conn: conn}
}

func (that *lineConn) ReadLine() (string, error) {
	for {
		messageType, data, err := that.conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("failed to read message: %w", err)
		}

		if messageType == websocket.TextMessage {
			return strings.TrimRight(string(data), "\r\n"), nil
		}
	}
}

func (that *lineConn) WriteLine(line string) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *lineConn) Close() error {
	_ = that.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)

	if err := that.conn.Close(); err != nil {
		return fmt.Errorf("failed to close websocket: %w", err)
	}

	return nil
}
