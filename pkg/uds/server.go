package uds

import (
	"net"
	"os"

	"tickpipe/pkg/exception"
)

// Listen removes a stale socket file at path and listens on it. The socket
// file is unlinked when the listener closes.
func Listen(path string) (*net.UnixListener, error) {
	if path == "" {
		return nil, exception.ErrEmptyAddress
	}
	if err := RemoveIfExists(path); err != nil {
		return nil, err
	}
	ln, err := net.ListenUnix(unixNetwork, &net.UnixAddr{Name: path, Net: unixNetwork})
	if err != nil {
		return nil, err
	}
	ln.SetUnlinkOnClose(true)
	return ln, nil
}

// RemoveIfExists removes the socket file if it exists.
func RemoveIfExists(path string) error {
	if path == "" {
		return exception.ErrEmptyAddress
	}
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return exception.ErrPathNotSocket
	}
	return os.Remove(path)
}
