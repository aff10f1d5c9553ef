package mcclient

import (
	"bufio"
	"net"
	"time"

	"github.com/pior/mcclient/meta"
)

// Connection is one buffered network connection to a server.
type Connection struct {
	conn   net.Conn
	Reader *bufio.Reader
	Writer *bufio.Writer
}

func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		conn:   conn,
		Reader: bufio.NewReader(conn),
		Writer: bufio.NewWriter(conn),
	}
}

// Send writes req, flushes, and reads one response.
func (c *Connection) Send(req *meta.Request) (*meta.Response, error) {
	if err := c.Write(req); err != nil {
		return nil, err
	}
	if err := c.Flush(); err != nil {
		return nil, err
	}
	return c.Read()
}

// Write buffers req without flushing. Invalid keys are returned as is; I/O
// failures are wrapped in meta.ConnectionError.
func (c *Connection) Write(req *meta.Request) error {
	err := meta.WriteRequest(c.Writer, req)
	if err == nil {
		return nil
	}
	if _, ok := err.(*meta.InvalidKeyError); ok {
		return err
	}
	return &meta.ConnectionError{Op: "write", Err: err}
}

func (c *Connection) Flush() error {
	if err := c.Writer.Flush(); err != nil {
		return &meta.ConnectionError{Op: "write", Err: err}
	}
	return nil
}

// Read parses the next response. Malformed responses come back as
// meta.ParseError, I/O failures as meta.ConnectionError.
func (c *Connection) Read() (*meta.Response, error) {
	resp, err := meta.ReadResponse(c.Reader)
	if err == nil {
		return resp, nil
	}
	if _, ok := err.(*meta.ParseError); ok {
		return nil, err
	}
	return nil, &meta.ConnectionError{Op: "read", Err: err}
}

// SetDeadline bounds the I/O of the current exchange. A zero time clears it.
func (c *Connection) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}
