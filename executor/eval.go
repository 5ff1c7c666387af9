// Package executor runs an analyzer.Plan against an open kv.Txn: the
// scan operator tree (spec 4.6's pull-based ConstantScan/TableScan/
// SelectScan/ProductScan/OuterSelectScan/ProjectScan), expression
// evaluation with short-circuited three-valued NULL logic, and every
// statement's write path.
package executor

import (
	"regexp"
	"strings"

	"github.com/tbui468/weaseldb/analyzer"
	"github.com/tbui468/weaseldb/catalog"
	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/index"
	"github.com/tbui468/weaseldb/kv"
	"github.com/tbui468/weaseldb/predictor"
	"github.com/tbui468/weaseldb/schema"
	"github.com/tbui468/weaseldb/status"
)

// evaluator carries the state one statement's evaluation needs: the
// transaction scans and writes go through, and the predictor backing
// any Predict() calls.
type evaluator struct {
	txn       kv.Txn
	predictor predictor.Predictor
}

// -----------------------------------------------------------------------------
// Expression evaluation
// -----------------------------------------------------------------------------

// eval evaluates e against row, the current scan's output tuple. NULL
// propagates through arithmetic, comparison and LIKE per spec 4.1;
// AND/OR apply SQL's three-valued truth tables rather than propagating
// unconditionally.
func (ev *evaluator) eval(e analyzer.ExprPlan, row []datum.Datum) (datum.Datum, error) {
	switch p := e.(type) {
	case *analyzer.LiteralPlan:
		return p.Value, nil

	case *analyzer.ColRefPlan:
		return row[p.Pos], nil

	case *analyzer.UnaryPlan:
		right, err := ev.eval(p.Right, row)
		if err != nil {
			return datum.Datum{}, err
		}
		if right.IsNull() {
			return datum.NewNull(), nil
		}
		switch p.Operator {
		case "-":
			return datum.NewInt8(0).Sub(right)
		case "NOT":
			return datum.Not(right)
		}

	case *analyzer.BinaryPlan:
		return ev.evalBinary(p, row)

	case *analyzer.IsNullPlan:
		left, err := ev.eval(p.Left, row)
		if err != nil {
			return datum.Datum{}, err
		}
		result := left.IsNull()
		if p.Not {
			result = !result
		}
		return datum.NewBool(result), nil

	case *analyzer.LikePlan:
		return ev.evalLike(p, row)

	case *analyzer.CastPlan:
		target, err := ev.eval(p.Target, row)
		if err != nil {
			return datum.Datum{}, err
		}
		if target.IsNull() {
			return datum.NewNull(), nil
		}
		return datum.Cast(target, p.To)

	case *analyzer.AggregatePlan:
		return datum.Datum{}, status.New(status.Analysis, "aggregate %s evaluated outside of aggregation context", p.Name)

	case *analyzer.PredictPlan:
		return ev.evalPredict(p, row)

	case *analyzer.ScalarSubqueryPlan:
		return ev.evalScalarSubquery(p)
	}
	return datum.Datum{}, status.New(status.Analysis, "unsupported expression plan %T", e)
}

func (ev *evaluator) evalBinary(p *analyzer.BinaryPlan, row []datum.Datum) (datum.Datum, error) {
	left, err := ev.eval(p.Left, row)
	if err != nil {
		return datum.Datum{}, err
	}

	if p.Operator == "AND" || p.Operator == "OR" {
		return ev.evalThreeValuedLogical(p.Operator, left, p, row)
	}

	right, err := ev.eval(p.Right, row)
	if err != nil {
		return datum.Datum{}, err
	}
	if left.IsNull() || right.IsNull() {
		return datum.NewNull(), nil
	}

	switch p.Operator {
	case "+":
		return left.Add(right)
	case "-":
		return left.Sub(right)
	case "*":
		return left.Mul(right)
	case "/":
		return left.Div(right)
	case "=":
		cmp, err := datum.Compare(left, right)
		return boolResult(cmp == 0, err)
	case "!=", "<>":
		cmp, err := datum.Compare(left, right)
		return boolResult(cmp != 0, err)
	case "<":
		cmp, err := datum.Compare(left, right)
		return boolResult(cmp < 0, err)
	case "<=":
		cmp, err := datum.Compare(left, right)
		return boolResult(cmp <= 0, err)
	case ">":
		cmp, err := datum.Compare(left, right)
		return boolResult(cmp > 0, err)
	case ">=":
		cmp, err := datum.Compare(left, right)
		return boolResult(cmp >= 0, err)
	}
	return datum.Datum{}, status.New(status.Analysis, "unsupported operator %q", p.Operator)
}

func boolResult(b bool, err error) (datum.Datum, error) {
	if err != nil {
		return datum.Datum{}, err
	}
	return datum.NewBool(b), nil
}

// evalThreeValuedLogical implements AND/OR's short-circuit truth
// tables: NULL AND false is false, NULL AND true is NULL; NULL OR true
// is true, NULL OR false is NULL.
func (ev *evaluator) evalThreeValuedLogical(op string, left datum.Datum, p *analyzer.BinaryPlan, row []datum.Datum) (datum.Datum, error) {
	if op == "AND" && !left.IsNull() && !left.AsBool() {
		return datum.NewBool(false), nil
	}
	if op == "OR" && !left.IsNull() && left.AsBool() {
		return datum.NewBool(true), nil
	}
	right, err := ev.eval(p.Right, row)
	if err != nil {
		return datum.Datum{}, err
	}
	if left.IsNull() && right.IsNull() {
		return datum.NewNull(), nil
	}
	if op == "AND" {
		if !right.IsNull() && !right.AsBool() {
			return datum.NewBool(false), nil
		}
		if left.IsNull() || right.IsNull() {
			return datum.NewNull(), nil
		}
		return datum.And(left, right)
	}
	if !right.IsNull() && right.AsBool() {
		return datum.NewBool(true), nil
	}
	if left.IsNull() || right.IsNull() {
		return datum.NewNull(), nil
	}
	return datum.Or(left, right)
}

func (ev *evaluator) evalLike(p *analyzer.LikePlan, row []datum.Datum) (datum.Datum, error) {
	left, err := ev.eval(p.Left, row)
	if err != nil {
		return datum.Datum{}, err
	}
	pattern, err := ev.eval(p.Pattern, row)
	if err != nil {
		return datum.Datum{}, err
	}
	if left.IsNull() || pattern.IsNull() {
		return datum.NewNull(), nil
	}
	var matched bool
	if p.Similar {
		matched, err = similarToMatch(left.AsText(), pattern.AsText())
	} else {
		matched = likeMatch(left.AsText(), pattern.AsText())
	}
	if err != nil {
		return datum.Datum{}, err
	}
	if p.Not {
		matched = !matched
	}
	return datum.NewBool(matched), nil
}

func (ev *evaluator) evalPredict(p *analyzer.PredictPlan, row []datum.Datum) (datum.Datum, error) {
	arg, err := ev.eval(p.Arg, row)
	if err != nil {
		return datum.Datum{}, err
	}
	if arg.IsNull() {
		return datum.NewNull(), nil
	}
	var x float64
	switch arg.Kind() {
	case datum.Int8:
		x = float64(arg.AsInt8())
	case datum.Float4:
		x = float64(arg.AsFloat4())
	default:
		return datum.Datum{}, status.New(status.Analysis, "predict() argument must be numeric, got %s", arg.Kind())
	}
	artifact, ok, err := catalog.GetModel(ev.txn, p.Model)
	if err != nil {
		return datum.Datum{}, status.Wrap(status.Storage, err, "reading model %q", p.Model)
	}
	if !ok {
		return datum.Datum{}, status.New(status.Constraint, "no such model %q", p.Model)
	}
	label, err := ev.predictor.Predict(artifact, x)
	if err != nil {
		return datum.Datum{}, status.Wrap(status.Analysis, err, "predicting with model %q", p.Model)
	}
	return datum.NewInt8(label), nil
}

func (ev *evaluator) evalScalarSubquery(p *analyzer.ScalarSubqueryPlan) (datum.Datum, error) {
	rows, err := ev.runProject(p.Select.Project)
	if err != nil {
		return datum.Datum{}, err
	}
	if len(rows) != 1 {
		return datum.Datum{}, status.New(status.Constraint, "subquery returned %d rows, expected exactly one", len(rows))
	}
	return rows[0][0], nil
}

// likeMatch implements SQL LIKE: % matches any run of characters, _
// matches exactly one.
func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		if likeMatchRunes(s, p[1:]) {
			return true
		}
		for len(s) > 0 {
			s = s[1:]
			if likeMatchRunes(s, p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	}
}

// similarToMatch implements SQL SIMILAR TO, a POSIX-regex-flavored
// pattern where % and _ keep their LIKE meaning alongside the regex
// metacharacters.
func similarToMatch(s, pattern string) (bool, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("$")
	return regexpMatch(b.String(), s)
}

// -----------------------------------------------------------------------------
// Scans (spec 4.6's pull-based operator tree)
// -----------------------------------------------------------------------------

// rowIter pulls rows one at a time from a scan plan.
type rowIter interface {
	Next() (bool, error)
	Row() []datum.Datum
	Close() error
}

func (ev *evaluator) openScan(plan analyzer.ScanPlan) (rowIter, error) {
	switch p := plan.(type) {
	case *analyzer.ConstantScanPlan:
		return &constantScan{done: false}, nil

	case *analyzer.TableScanPlan:
		primary := p.Schema.Primary()
		it, err := ev.txn.NewIterator(primary.Name)
		if err != nil {
			return nil, status.Wrap(status.Storage, err, "scanning %q", p.Schema.Table)
		}
		return &tableScan{schema: p.Schema, iter: it}, nil

	case *analyzer.SelectScanPlan:
		child, err := ev.openScan(p.Child)
		if err != nil {
			return nil, err
		}
		return &selectScan{ev: ev, child: child, predicate: p.Predicate}, nil

	case *analyzer.ProductScanPlan:
		return ev.openProduct(p)

	case *analyzer.OuterSelectScanPlan:
		return ev.openOuter(p)
	}
	return nil, status.New(status.Analysis, "unsupported scan plan %T", plan)
}

// materialize drains a rowIter fully, closing it when done.
func (ev *evaluator) materialize(it rowIter) ([][]datum.Datum, error) {
	defer it.Close()
	var rows [][]datum.Datum
	for {
		ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, it.Row())
	}
}

// constantScan emits exactly one empty row, then is exhausted.
type constantScan struct {
	done bool
}

func (c *constantScan) Next() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	return true, nil
}
func (c *constantScan) Row() []datum.Datum { return nil }
func (c *constantScan) Close() error       { return nil }

// tableScan walks a table's primary index in key order.
type tableScan struct {
	schema *schema.Schema
	iter   kv.Iterator
	cur    []datum.Datum
}

func (t *tableScan) Next() (bool, error) {
	if !t.iter.Next() {
		return false, nil
	}
	row, err := index.DeserializeRow(t.schema, t.iter.Value())
	if err != nil {
		return false, status.Wrap(status.Storage, err, "decoding row")
	}
	t.cur = row
	return true, nil
}
func (t *tableScan) Row() []datum.Datum { return t.cur }
func (t *tableScan) Close() error       { return t.iter.Close() }

// regexpMatch compiles and evaluates a POSIX-ish pattern once per
// call; SIMILAR TO predicates are not on WeaselDB's hot path, so the
// lack of compilation caching is a deliberate simplicity tradeoff.
func regexpMatch(pattern, s string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, status.New(status.Analysis, "invalid SIMILAR TO pattern: %s", err.Error())
	}
	return re.MatchString(s), nil
}
