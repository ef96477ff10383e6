package uds

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tickpipe/pkg/exception"
)

func TestEmptyPath(t *testing.T) {
	if _, err := NewClient(""); err != exception.ErrEmptyAddress {
		t.Fatalf("expected ErrEmptyAddress, got %v", err)
	}
	if _, err := Listen(""); err != exception.ErrEmptyAddress {
		t.Fatalf("expected ErrEmptyAddress, got %v", err)
	}
}

func TestRemoveIfExistsRefusesRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := RemoveIfExists(path); err != exception.ErrPathNotSocket {
		t.Fatalf("expected ErrPathNotSocket, got %v", err)
	}
	if err := RemoveIfExists(filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Fatalf("missing path: %v", err)
	}
}

func TestListenDial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gw.sock")
	ln, err := Listen(path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	done := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			_, err = conn.Write([]byte("ok"))
			conn.Close()
		}
		done <- err
	}()

	c, err := NewClient(path)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	conn, err := c.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	buf := make([]byte, 2)
	if _, err := conn.Read(buf); err != nil || string(buf) != "ok" {
		t.Fatalf("read: %q %v", buf, err)
	}
	if err := <-done; err != nil {
		t.Fatalf("accept: %v", err)
	}
}
