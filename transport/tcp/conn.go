package tcp

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	writeTimeout = 10 * time.Second

	// maxLineLength caps one command line. Longer input ends the session.
	maxLineLength = 4096
)

// lineConn speaks the newline-delimited text protocol over a stream socket.
type lineConn struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

func newLineConn(conn net.Conn) *lineConn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 512), maxLineLength)

	return &lineConn{
		conn:    conn,
		scanner: scanner,
	}
}

// ReadLine returns the next line without its \n or \r\n terminator.
func (that *lineConn) ReadLine() (string, error) {
	if that.scanner.Scan() {
		return that.scanner.Text(), nil
	}

	err := that.scanner.Err()
	if err == nil {
		err = io.EOF
	}

	return "", fmt.Errorf("failed to read line: %w", err)
}

func (that *lineConn) WriteLine(line string) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if _, err := io.WriteString(that.conn, line+"\n"); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}

	return nil
}

func (that *lineConn) Close() error {
	if err := that.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	return nil
}
