package conn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn, err := Option{}.DSN()
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost:5432?sslmode=disable", dsn)

	dsn, err = Option{
		Host:     "db",
		Port:     6543,
		User:     "tick",
		Password: "p@ss",
		Database: "journal",
		Params:   map[string]string{"application_name": "tickpipe", "": "skip"},
	}.DSN()
	require.NoError(t, err)
	require.Equal(t, "postgres://tick:p%40ss@db:6543/journal?application_name=tickpipe&sslmode=disable", dsn)

	dsn, err = Option{ConnString: "postgres://x", Port: -1}.DSN()
	require.NoError(t, err)
	require.Equal(t, "postgres://x", dsn)

	_, err = Option{Port: 70000}.DSN()
	require.Error(t, err)
}

func TestLazyOpen(t *testing.T) {
	c, err := New(Option{Host: "127.0.0.1", Port: 1, Lazy: true})
	require.NoError(t, err)
	require.NotNil(t, c.DB())
	require.NoError(t, c.Close())

	var nilClient *Client
	require.Nil(t, nilClient.DB())
	require.NoError(t, nilClient.Close())
}
