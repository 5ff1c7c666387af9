// Package wire implements the length-prefixed message framing described
// in spec 6: every message is {u8 type, i32 length, payload}, where
// length counts itself (the four length bytes) plus the payload.
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tbui468/weaseldb/datum"
)

// Message type tags, spec 6.
const (
	Query            byte = 'Q' // client -> server
	RowDescription   byte = 'T' // server -> client
	DataRow          byte = 'D'
	CommandComplete  byte = 'C'
	ErrorResponse    byte = 'E'
	ReadyForQuery    byte = 'Z'
)

// lengthFieldSize is the width of the i32 length field itself, which the
// encoded length counts as part of the message.
const lengthFieldSize = 4

// Message is one decoded frame: a type tag plus its raw payload.
type Message struct {
	Type    byte
	Payload []byte
}

// WriteMessage frames typ/payload per spec 6 and writes it to w.
func WriteMessage(w io.Writer, typ byte, payload []byte) error {
	var hdr [1 + lengthFieldSize]byte
	hdr[0] = typ
	binary.BigEndian.PutUint32(hdr[1:], uint32(lengthFieldSize+len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadMessage reads one framed message from r. io.EOF is returned
// unwrapped when the connection closes cleanly before a new message
// starts, so callers can tell a clean disconnect from a truncated frame.
func ReadMessage(r *bufio.Reader) (Message, error) {
	var hdr [1 + lengthFieldSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Message{}, fmt.Errorf("wire: truncated message header: %w", err)
		}
		return Message{}, err
	}
	typ := hdr[0]
	length := binary.BigEndian.Uint32(hdr[1:])
	if length < lengthFieldSize {
		return Message{}, fmt.Errorf("wire: message length %d shorter than its own length field", length)
	}
	payload := make([]byte, length-lengthFieldSize)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, fmt.Errorf("wire: truncated payload: %w", err)
		}
	}
	return Message{Type: typ, Payload: payload}, nil
}

// WriteQuery frames a 'Q' message carrying text.
func WriteQuery(w io.Writer, text string) error {
	return WriteMessage(w, Query, []byte(text))
}

// ColumnDesc describes one result column for a 'T' message.
type ColumnDesc struct {
	Name    string
	TypeTag byte
}

// WriteRowDescription frames a 'T' message: i32 column_count, then per
// column {u8 type_tag, i32 name_len, name_bytes}.
func WriteRowDescription(w io.Writer, cols []ColumnDesc) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(cols)))
	for _, c := range cols {
		var tag [1]byte
		tag[0] = c.TypeTag
		buf = append(buf, tag[:]...)
		var nl [4]byte
		binary.BigEndian.PutUint32(nl[:], uint32(len(c.Name)))
		buf = append(buf, nl[:]...)
		buf = append(buf, c.Name...)
	}
	return WriteMessage(w, RowDescription, buf)
}

// ReadRowDescription decodes a 'T' message's payload.
func ReadRowDescription(payload []byte) ([]ColumnDesc, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("wire: truncated row description")
	}
	n := int(binary.BigEndian.Uint32(payload))
	offset := 4
	cols := make([]ColumnDesc, 0, n)
	for i := 0; i < n; i++ {
		if offset+1+4 > len(payload) {
			return nil, fmt.Errorf("wire: truncated row description column %d", i)
		}
		tag := payload[offset]
		offset++
		nameLen := int(binary.BigEndian.Uint32(payload[offset:]))
		offset += 4
		if offset+nameLen > len(payload) {
			return nil, fmt.Errorf("wire: truncated row description column name %d", i)
		}
		name := string(payload[offset : offset+nameLen])
		offset += nameLen
		cols = append(cols, ColumnDesc{Name: name, TypeTag: tag})
	}
	return cols, nil
}

// WriteDataRow frames a 'D' message: per column, {u8 is_null} then (if
// not null) the value via the datum codec (spec 3).
func WriteDataRow(w io.Writer, values []datum.Datum) error {
	var buf []byte
	for _, v := range values {
		buf = append(buf, v.Serialize()...)
	}
	return WriteMessage(w, DataRow, buf)
}

// ReadDataRow decodes a 'D' message's payload given the column kinds
// established by the preceding 'T' message.
func ReadDataRow(payload []byte, kinds []datum.Kind) ([]datum.Datum, error) {
	out := make([]datum.Datum, len(kinds))
	offset := 0
	for i, k := range kinds {
		d, next, err := datum.Deserialize(payload, offset, k)
		if err != nil {
			return nil, fmt.Errorf("wire: decoding column %d: %w", i, err)
		}
		out[i] = d
		offset = next
	}
	return out, nil
}

// WriteCommandComplete frames a 'C' message carrying summary.
func WriteCommandComplete(w io.Writer, summary string) error {
	return WriteMessage(w, CommandComplete, []byte(summary))
}

// WriteError frames an 'E' message carrying msg.
func WriteError(w io.Writer, msg string) error {
	return WriteMessage(w, ErrorResponse, []byte(msg))
}

// WriteReadyForQuery frames the empty-payload 'Z' message the server
// sends after every completed command sequence.
func WriteReadyForQuery(w io.Writer) error {
	return WriteMessage(w, ReadyForQuery, nil)
}
