package network

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ErrLineTooLong строка клиента превысила лимит и была пропущена
var ErrLineTooLong = errors.New("line too long")

// LineConn транспорт построчного протокола. Запись не потокобезопасна:
// в каждый момент пишет одна горутина сессии.
type LineConn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Flush() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() string
	Transport() string
	Close() error
}

// streamConn строки поверх потокового соединения (TCP, KCP)
type streamConn struct {
	conn      net.Conn
	reader    *bufio.Reader
	writer    *bufio.Writer
	transport string
}

// NewStreamConn оборачивает потоковое соединение; maxLine ограничивает длину входящей строки
func NewStreamConn(conn net.Conn, transport string, maxLine int) LineConn {
	return &streamConn{
		conn:      conn,
		reader:    bufio.NewReaderSize(conn, maxLine),
		writer:    bufio.NewWriterSize(conn, 64*1024),
		transport: transport,
	}
}

func (c *streamConn) ReadLine() (string, error) {
	line, err := c.reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		// пропускаем остаток слишком длинной строки
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = c.reader.ReadSlice('\n')
		}
		if err != nil {
			return "", err
		}
		return "", ErrLineTooLong
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

func (c *streamConn) WriteLine(line string) error {
	if _, err := c.writer.WriteString(line); err != nil {
		return err
	}
	return c.writer.WriteByte('\n')
}

func (c *streamConn) Flush() error                       { return c.writer.Flush() }
func (c *streamConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *streamConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
func (c *streamConn) RemoteAddr() string                 { return c.conn.RemoteAddr().String() }
func (c *streamConn) Transport() string                  { return c.transport }
func (c *streamConn) Close() error                       { return c.conn.Close() }

// wsConn строки поверх WebSocket: исходящая строка - одно текстовое сообщение,
// входящее сообщение может содержать несколько строк.
type wsConn struct {
	conn    *websocket.Conn
	pending []string
}

// NewWebSocketConn оборачивает WebSocket соединение
func NewWebSocketConn(conn *websocket.Conn, maxLine int) LineConn {
	conn.SetReadLimit(int64(maxLine))
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				return "", ErrLineTooLong
			}
			return "", err
		}
		for _, line := range strings.Split(string(msg), "\n") {
			line = strings.TrimRight(line, "\r")
			if line != "" {
				c.pending = append(c.pending, line)
			}
		}
	}
	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

func (c *wsConn) WriteLine(line string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsConn) Flush() error                       { return nil }
func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
func (c *wsConn) RemoteAddr() string                 { return c.conn.RemoteAddr().String() }
func (c *wsConn) Transport() string                  { return "ws" }

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}
