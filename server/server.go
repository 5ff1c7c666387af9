// Package server implements the TCP front end: spec 5's one-worker-
// per-connection scheduling model and spec 6's wire protocol, wrapping
// each connection in its own executor.Session.
package server

import (
	"bufio"
	"io"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tbui468/weaseldb/ast"
	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/executor"
	"github.com/tbui468/weaseldb/kv"
	"github.com/tbui468/weaseldb/lexer"
	"github.com/tbui468/weaseldb/parser"
	"github.com/tbui468/weaseldb/predictor"
	"github.com/tbui468/weaseldb/status"
	"github.com/tbui468/weaseldb/wire"
)

// Server accepts connections on a TCP listener and runs one detached
// worker goroutine per connection, per spec 5 ("one OS thread per
// client connection" — Go's goroutines are the idiomatic substitute).
type Server struct {
	Engine    kv.Engine
	Predictor predictor.Predictor
	Log       *zap.Logger
}

// New builds a Server bound to engine. log may be nil, in which case a
// no-op logger is used.
func New(engine kv.Engine, pred predictor.Predictor, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Engine: engine, Predictor: pred, Log: log}
}

// ListenAndServe binds addr (a "host:port" or ":port" string) and
// serves connections until the listener errors or the caller closes it.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	s.Log.Info("listening", zap.String("addr", ln.Addr().String()))
	return s.Serve(ln)
}

// Serve accepts connections from ln until it returns an error (normally
// because the caller closed it).
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handle(conn)
	}
}

// handle owns one connection for its whole lifetime: it reads 'Q'
// messages, runs each one through the connection's executor.Session, and writes
// back the row description / data rows / command complete or error,
// always finishing with 'Z' so the client knows it may send the next
// query. A disconnect or truncated frame rolls back any open
// transaction before the goroutine exits, per spec 5's cancellation
// rule.
func (s *Server) handle(conn net.Conn) {
	connID := uuid.New()
	log := s.Log.With(zap.String("conn", connID.String()), zap.String("remote", conn.RemoteAddr().String()))
	log.Info("connection accepted")
	defer func() {
		_ = conn.Close()
		log.Info("connection closed")
	}()

	sess := executor.NewSession(s.Engine, s.Predictor, log)
	r := bufio.NewReader(conn)

	for {
		msg, err := wire.ReadMessage(r)
		if err != nil {
			if err != io.EOF {
				log.Warn("read failed, disconnecting", zap.Error(err))
			}
			s.rollbackAbandoned(sess, log)
			return
		}
		if msg.Type != wire.Query {
			log.Warn("unexpected message type, disconnecting", zap.Uint8("type", msg.Type))
			s.rollbackAbandoned(sess, log)
			return
		}

		res := s.runQuery(sess, string(msg.Payload), log)

		if err := writeResult(conn, res); err != nil {
			log.Warn("write failed, disconnecting", zap.Error(err))
			s.rollbackAbandoned(sess, log)
			return
		}
		if err := wire.WriteReadyForQuery(conn); err != nil {
			log.Warn("write failed, disconnecting", zap.Error(err))
			s.rollbackAbandoned(sess, log)
			return
		}
	}
}

// runQuery tokenizes, parses and executes one query's worth of text. A
// query may contain several ';'-separated statements; the session's
// abort state machine (spec 7) governs whether later ones still run.
// The result returned is that of the last statement, matching what a
// single-statement 'Q' almost always carries in practice.
func (s *Server) runQuery(sess *executor.Session, text string, log *zap.Logger) *status.Result {
	l := lexer.New(text)
	p := parser.New(l)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return status.Fail(status.New(status.Parse, "%s", errs[0]))
	}

	var last *status.Result
	for _, stmt := range prog.Statements {
		last = sess.Exec(stmt)
		if last.Failed() {
			log.Debug("statement failed", zap.Error(last.Err))
		}
	}
	if last == nil {
		return status.Ok("")
	}
	return last
}

// rollbackAbandoned discards any transaction still open on sess when
// its connection goes away mid-flight.
func (s *Server) rollbackAbandoned(sess *executor.Session, log *zap.Logger) {
	if sess.InTxn() {
		log.Info("rolling back abandoned transaction")
		sess.Exec(&ast.RollbackStmt{})
	}
}

// writeResult sends res's wire representation: 'E' on failure, else one
// 'T'/'D'* sequence per result set (the first, plus any in Extra, e.g.
// DESCRIBE's attribute and index result sets) followed by 'C'.
func writeResult(w io.Writer, res *status.Result) error {
	if res.Failed() {
		return wire.WriteError(w, res.Err.Error())
	}
	if res.Columns != nil {
		if err := writeResultSet(w, res.Columns, res.Rows); err != nil {
			return err
		}
	}
	for _, set := range res.Extra {
		if err := writeResultSet(w, set.Columns, set.Rows); err != nil {
			return err
		}
	}
	return wire.WriteCommandComplete(w, res.Summary)
}

// writeResultSet sends one 'T' row description followed by a 'D' data
// row per row.
func writeResultSet(w io.Writer, columns []status.ColumnDesc, rows []status.Row) error {
	cols := make([]wire.ColumnDesc, len(columns))
	for i, c := range columns {
		cols[i] = wire.ColumnDesc{Name: c.Name, TypeTag: c.TypeTag}
	}
	if err := wire.WriteRowDescription(w, cols); err != nil {
		return err
	}
	for _, row := range rows {
		values := make([]datum.Datum, len(row))
		for i, v := range row {
			values[i] = v.(datum.Datum)
		}
		if err := wire.WriteDataRow(w, values); err != nil {
			return err
		}
	}
	return nil
}
