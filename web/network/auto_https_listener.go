// Package network wraps the gateway listener so plain HTTP requests that
// land on the TLS port are redirected to HTTPS.
package network

import "net"

// RedirectListener hands out connections that answer plain HTTP with a
// redirect and pass TLS through untouched.
type RedirectListener struct {
	net.Listener
}

func NewRedirectListener(listener net.Listener) net.Listener {
	return &RedirectListener{Listener: listener}
}

func (l *RedirectListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return newRedirectConn(conn), nil
}
