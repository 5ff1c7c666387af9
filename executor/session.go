package executor

import (
	"errors"

	"go.uber.org/zap"

	"github.com/tbui468/weaseldb/analyzer"
	"github.com/tbui468/weaseldb/ast"
	"github.com/tbui468/weaseldb/kv"
	"github.com/tbui468/weaseldb/predictor"
	"github.com/tbui468/weaseldb/status"
)

// Session is one client connection's execution context: it owns at
// most one open explicit transaction at a time, per spec 5's
// transaction model. Statements issued with no open transaction run in
// their own implicit, auto-committed one.
type Session struct {
	Engine    kv.Engine
	Predictor predictor.Predictor
	Log       *zap.Logger

	txn     kv.Txn
	aborted bool // set by the first failure inside an explicit transaction, per spec 7
}

// NewSession builds a Session bound to engine. log may be nil, in
// which case a no-op logger is used (tests construct Sessions this
// way).
func NewSession(engine kv.Engine, pred predictor.Predictor, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{Engine: engine, Predictor: pred, Log: log}
}

// InTxn reports whether an explicit transaction is currently open.
func (s *Session) InTxn() bool { return s.txn != nil }

// Exec runs one statement to completion. Per spec 7: inside an
// explicit transaction, the first failure marks it aborted; every
// statement but COMMIT/ROLLBACK is then rejected with a Txn error
// until one of those arrives and ends it.
func (s *Session) Exec(stmt ast.Stmt) *status.Result {
	switch stmt.(type) {
	case *ast.BeginStmt:
		return s.execBegin()
	case *ast.CommitStmt:
		return s.execCommit()
	case *ast.RollbackStmt:
		return s.execRollback()
	}

	if s.aborted {
		return status.Fail(status.New(status.Txn, "current transaction is aborted, commands ignored until end of transaction block"))
	}

	implicit := s.txn == nil
	var txn kv.Txn
	if implicit {
		t, err := s.Engine.Begin()
		if err != nil {
			return status.Fail(status.Wrap(status.Storage, err, "beginning transaction"))
		}
		txn = t
	} else {
		txn = s.txn
	}

	az := analyzer.New(txn, !implicit)
	plan, err := az.Analyze(stmt)
	if err != nil {
		return status.Fail(s.fail(txn, implicit, err))
	}

	ev := &evaluator{txn: txn, predictor: s.Predictor}
	res, err := ev.execPlan(s.Engine, plan)
	if err != nil {
		return status.Fail(s.fail(txn, implicit, err))
	}

	if implicit {
		if err := txn.Commit(); err != nil {
			return status.Fail(status.Wrap(status.Storage, err, "committing transaction"))
		}
	}
	s.Log.Debug("executed statement", zap.String("stmt", stmt.String()), zap.Bool("implicit_txn", implicit))
	return res
}

// fail handles one statement's failure: an implicit (auto-committed)
// transaction is simply rolled back and forgotten, since it only ever
// held this one statement's writes. An explicit transaction survives,
// marked aborted, so the client can still issue ROLLBACK (or COMMIT,
// which behaves as ROLLBACK on an aborted transaction).
func (s *Session) fail(txn kv.Txn, implicit bool, err error) *status.Error {
	if implicit {
		txn.Rollback()
	} else {
		s.aborted = true
	}
	return toStatusError(err)
}

func (s *Session) execBegin() *status.Result {
	if s.txn != nil {
		return status.Fail(status.New(status.Txn, "BEGIN issued inside an already-open transaction"))
	}
	txn, err := s.Engine.Begin()
	if err != nil {
		return status.Fail(status.Wrap(status.Storage, err, "beginning transaction"))
	}
	s.txn = txn
	s.aborted = false
	return status.Ok("BEGIN")
}

func (s *Session) execCommit() *status.Result {
	if s.txn == nil {
		return status.Fail(status.New(status.Txn, "COMMIT issued outside of a transaction"))
	}
	if s.aborted {
		s.txn.Rollback()
		s.txn = nil
		s.aborted = false
		return status.Ok("ROLLBACK (transaction was aborted)")
	}
	err := s.txn.Commit()
	s.txn = nil
	if err != nil {
		return status.Fail(status.Wrap(status.Storage, err, "committing transaction"))
	}
	return status.Ok("COMMIT")
}

func (s *Session) execRollback() *status.Result {
	if s.txn == nil {
		return status.Fail(status.New(status.Txn, "ROLLBACK issued outside of a transaction"))
	}
	s.txn.Rollback()
	s.txn = nil
	s.aborted = false
	return status.Ok("ROLLBACK")
}

// toStatusError adapts any error into a *status.Error, preserving one
// already tagged with a Kind and wrapping anything else as Analysis.
func toStatusError(err error) *status.Error {
	var se *status.Error
	if errors.As(err, &se) {
		return se
	}
	return status.New(status.Analysis, "%s", err.Error())
}
