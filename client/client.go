// Package client implements the thin interactive client described in
// spec 6: it sends 'Q' messages over the wire protocol and renders
// whatever comes back, reading queries from a script file or from
// stdin line-by-line.
package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/wire"
)

// Client owns one connection to a WeaselDB server.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to addr ("host:port").
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// Run sends one query and writes its rendered result to out, returning
// once the server's trailing 'Z' arrives. A query may produce a 'T'
// header followed by any number of 'D' rows before its 'C'/'E'.
func (c *Client) Run(query string, out io.Writer) error {
	if err := wire.WriteQuery(c.conn, query); err != nil {
		return err
	}

	var kinds []datum.Kind
	for {
		msg, err := wire.ReadMessage(c.r)
		if err != nil {
			return err
		}
		switch msg.Type {
		case wire.RowDescription:
			cols, err := wire.ReadRowDescription(msg.Payload)
			if err != nil {
				return err
			}
			names := make([]string, len(cols))
			kinds = make([]datum.Kind, len(cols))
			for i, col := range cols {
				names[i] = col.Name
				kinds[i] = datum.Kind(col.TypeTag)
			}
			fmt.Fprintln(out, strings.Join(names, "\t"))
		case wire.DataRow:
			row, err := wire.ReadDataRow(msg.Payload, kinds)
			if err != nil {
				return err
			}
			cells := make([]string, len(row))
			for i, d := range row {
				cells[i] = d.String()
			}
			fmt.Fprintln(out, strings.Join(cells, "\t"))
		case wire.CommandComplete:
			fmt.Fprintln(out, string(msg.Payload))
		case wire.ErrorResponse:
			fmt.Fprintln(out, "ERROR:", string(msg.Payload))
		case wire.ReadyForQuery:
			return nil
		default:
			return fmt.Errorf("client: unexpected message type %q", msg.Type)
		}
	}
}

// RunScript feeds r to the server one line at a time, treating each
// non-blank line as one query, per spec 6's "reads stdin line-by-line"
// CLI contract (a script file is read the same way).
func RunScript(c *Client, r io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.Run(line, out); err != nil {
			return err
		}
	}
	return scanner.Err()
}
