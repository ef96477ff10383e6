package uds

import (
	"context"
	"net"

	"tickpipe/pkg/exception"
)

const unixNetwork = "unix"

// Client dials Unix domain sockets using a precomputed address.
type Client struct {
	addr   net.UnixAddr
	dialer net.Dialer
}

// NewClient creates a client for the provided socket path.
func NewClient(path string) (*Client, error) {
	if path == "" {
		return nil, exception.ErrEmptyAddress
	}
	return &Client{addr: net.UnixAddr{Name: path, Net: unixNetwork}}, nil
}

// Path returns the configured socket path.
func (c *Client) Path() string {
	if c == nil {
		return ""
	}
	return c.addr.Name
}

// Dial opens a Unix domain socket connection. The context bounds the connect only.
func (c *Client) Dial(ctx context.Context) (net.Conn, error) {
	if c == nil {
		return nil, exception.ErrNilInstance
	}
	if c.addr.Name == "" {
		return nil, exception.ErrEmptyAddress
	}
	return c.dialer.DialContext(ctx, unixNetwork, c.addr.Name)
}
