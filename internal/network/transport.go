package network

import (
	"fmt"
	"net"

	"github.com/xtaci/kcp-go/v5"
)

// ListenTCP открывает TCP листенер
func ListenTCP(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen tcp on %s: %w", addr, err)
	}
	return l, nil
}

// kcpListener выдаёт KCP сессии в потоковом режиме, чтобы по ним шёл тот же
// построчный протокол, что и по TCP
type kcpListener struct {
	*kcp.Listener
}

// ListenKCP открывает KCP (UDP) листенер без шифрования и FEC
func ListenKCP(addr string) (net.Listener, error) {
	l, err := kcp.ListenWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to listen kcp on %s: %w", addr, err)
	}
	return &kcpListener{Listener: l}, nil
}

func (l *kcpListener) Accept() (net.Conn, error) {
	sess, err := l.AcceptKCP()
	if err != nil {
		return nil, err
	}
	// быстрый режим: nodelay, интервал 10мс, быстрый ресенд, без congestion control
	sess.SetNoDelay(1, 10, 2, 1)
	sess.SetStreamMode(true)
	sess.SetWindowSize(1024, 1024)
	sess.SetACKNoDelay(true)
	return sess, nil
}
