package server_test

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbui468/weaseldb/catalog"
	"github.com/tbui468/weaseldb/client"
	"github.com/tbui468/weaseldb/kv/memengine"
	"github.com/tbui468/weaseldb/predictor"
	"github.com/tbui468/weaseldb/server"
)

func startServer(t *testing.T) net.Addr {
	t.Helper()
	e := memengine.New()
	require.NoError(t, catalog.EnsureColumnFamilies(e))
	srv := server.New(e, predictor.NewLinear(), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	t.Cleanup(func() { ln.Close() })
	return ln.Addr()
}

func TestServerRoundTripsCreateInsertSelect(t *testing.T) {
	addr := startServer(t)
	c, err := client.Dial(addr.String())
	require.NoError(t, err)
	defer c.Close()

	var out strings.Builder
	require.NoError(t, c.Run(`CREATE TABLE widgets (name TEXT NOT NULL)`, &out))
	assert.Contains(t, out.String(), "CREATE TABLE widgets")

	out.Reset()
	require.NoError(t, c.Run(`INSERT INTO widgets (name) VALUES ('a')`, &out))
	assert.Contains(t, out.String(), "INSERT 1")

	out.Reset()
	require.NoError(t, c.Run(`SELECT name FROM widgets`, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3) // header, one row, command complete
	assert.Equal(t, "name", lines[0])
	assert.Equal(t, "a", lines[1])
}

func TestServerReportsErrorResponseOnBadQuery(t *testing.T) {
	addr := startServer(t)
	c, err := client.Dial(addr.String())
	require.NoError(t, err)
	defer c.Close()

	var out strings.Builder
	require.NoError(t, c.Run(`SELECT FROM`, &out))
	assert.Contains(t, out.String(), "ERROR:")
}

func TestServerDescribeSendsTwoResultSets(t *testing.T) {
	addr := startServer(t)
	c, err := client.Dial(addr.String())
	require.NoError(t, err)
	defer c.Close()

	var out strings.Builder
	require.NoError(t, c.Run(`CREATE TABLE widgets (name TEXT NOT NULL, UNIQUE (name))`, &out))

	out.Reset()
	require.NoError(t, c.Run(`DESCRIBE TABLE widgets`, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// attribute header+row, index header+2 rows, command complete.
	require.Len(t, lines, 6)
	assert.Equal(t, "column\ttype\tnot_null", lines[0])
	assert.Equal(t, "type\tname", lines[2])
}

func TestServerTransactionSurvivesAcrossQueries(t *testing.T) {
	addr := startServer(t)
	c, err := client.Dial(addr.String())
	require.NoError(t, err)
	defer c.Close()

	var out strings.Builder
	require.NoError(t, c.Run(`CREATE TABLE widgets (name TEXT NOT NULL)`, &out))
	require.NoError(t, c.Run(`BEGIN`, &out))
	require.NoError(t, c.Run(`INSERT INTO widgets (name) VALUES ('a')`, &out))
	require.NoError(t, c.Run(`ROLLBACK`, &out))

	out.Reset()
	require.NoError(t, c.Run(`SELECT name FROM widgets`, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2, "header and command-complete only; the rolled-back insert must not be visible")
}
