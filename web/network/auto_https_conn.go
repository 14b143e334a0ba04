package network

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
)

// tlsHandshake is the record type byte that opens every TLS session.
const tlsHandshake = 0x16

type redirectConn struct {
	net.Conn
	reader *bufio.Reader
	once   sync.Once
	err    error
}

func newRedirectConn(conn net.Conn) *redirectConn {
	return &redirectConn{Conn: conn, reader: bufio.NewReader(conn)}
}

// sniff peeks at the first byte. Anything but a TLS handshake is read as
// an HTTP request and answered with a 307 to the https URL.
func (c *redirectConn) sniff() {
	first, err := c.reader.Peek(1)
	if err != nil {
		c.err = err
		return
	}
	if first[0] == tlsHandshake {
		return
	}
	req, err := http.ReadRequest(c.reader)
	if err != nil {
		c.err = err
		_ = c.Conn.Close()
		return
	}
	resp := &http.Response{
		StatusCode: http.StatusTemporaryRedirect,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
	}
	resp.Header.Set("Location", fmt.Sprintf("https://%s%s", req.Host, req.RequestURI))
	resp.Header.Set("Connection", "close")
	_ = resp.Write(c.Conn)
	_ = c.Conn.Close()
	c.err = io.EOF
}

func (c *redirectConn) Read(buf []byte) (int, error) {
	c.once.Do(c.sniff)
	if c.err != nil {
		return 0, c.err
	}
	return c.reader.Read(buf)
}
