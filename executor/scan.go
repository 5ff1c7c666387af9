package executor

import (
	"sort"

	"github.com/tbui468/weaseldb/analyzer"
	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/status"
)

// selectScan filters its child's rows by predicate, per spec 4.6.
type selectScan struct {
	ev        *evaluator
	child     rowIter
	predicate analyzer.ExprPlan
	cur       []datum.Datum
}

func (s *selectScan) Next() (bool, error) {
	for {
		ok, err := s.child.Next()
		if err != nil || !ok {
			return ok, err
		}
		row := s.child.Row()
		result, err := s.ev.eval(s.predicate, row)
		if err != nil {
			return false, err
		}
		if !result.IsNull() && result.AsBool() {
			s.cur = row
			return true, nil
		}
	}
}
func (s *selectScan) Row() []datum.Datum { return s.cur }
func (s *selectScan) Close() error       { return s.child.Close() }

// productScan is the materialized nested-loop cross product of Left
// and Right: Right is buffered once so it can be re-walked per Left
// row, per spec 4.6.
type productScan struct {
	leftRows  [][]datum.Datum
	rightRows [][]datum.Datum
	li, ri    int
	cur       []datum.Datum
}

func (p *productScan) Next() (bool, error) {
	if len(p.rightRows) == 0 {
		return false, nil
	}
	for {
		if p.li >= len(p.leftRows) {
			return false, nil
		}
		if p.ri >= len(p.rightRows) {
			p.ri = 0
			p.li++
			continue
		}
		row := make([]datum.Datum, 0, len(p.leftRows[p.li])+len(p.rightRows[p.ri]))
		row = append(row, p.leftRows[p.li]...)
		row = append(row, p.rightRows[p.ri]...)
		p.cur = row
		p.ri++
		return true, nil
	}
}
func (p *productScan) Row() []datum.Datum { return p.cur }
func (p *productScan) Close() error       { return nil }

func (ev *evaluator) openProduct(p *analyzer.ProductScanPlan) (rowIter, error) {
	leftIter, err := ev.openScan(p.Left)
	if err != nil {
		return nil, err
	}
	leftRows, err := ev.materialize(leftIter)
	if err != nil {
		return nil, err
	}
	rightIter, err := ev.openScan(p.Right)
	if err != nil {
		return nil, err
	}
	rightRows, err := ev.materialize(rightIter)
	if err != nil {
		return nil, err
	}
	return &productScan{leftRows: leftRows, rightRows: rightRows}, nil
}

// outerScan implements LEFT/RIGHT/FULL joins over a materialized
// product: a []bool bitmap per side records which rows matched the ON
// predicate at least once, so unmatched rows on an included side can
// be emitted padded with NULLs after the matched pass, per spec 9's
// Open Question decision (position bookkeeping, not row hashing).
type outerScan struct {
	ev                       *evaluator
	leftRows, rightRows      [][]datum.Datum
	on                       analyzer.ExprPlan
	includeLeft, includeRight bool
	leftMatched, rightMatched []bool

	li, ri int
	phase  int // 0 = matched pass, 1 = left-unmatched pass, 2 = right-unmatched pass
	cur    []datum.Datum
}

func (o *outerScan) Next() (bool, error) {
	leftWidth := 0
	if len(o.leftRows) > 0 {
		leftWidth = len(o.leftRows[0])
	}
	rightWidth := 0
	if len(o.rightRows) > 0 {
		rightWidth = len(o.rightRows[0])
	}

	for o.phase == 0 {
		if o.li >= len(o.leftRows) {
			o.phase = 1
			o.li = 0
			break
		}
		if o.ri >= len(o.rightRows) {
			o.ri = 0
			o.li++
			continue
		}
		left := o.leftRows[o.li]
		right := o.rightRows[o.ri]
		row := concatRows(left, right)
		result, err := o.ev.eval(o.on, row)
		if err != nil {
			return false, err
		}
		matched := !result.IsNull() && result.AsBool()
		o.ri++
		if matched {
			o.leftMatched[o.li] = true
			o.rightMatched[o.ri-1] = true
			o.cur = row
			return true, nil
		}
	}

	if o.phase == 1 {
		if !o.includeLeft {
			o.phase = 2
			o.li = 0
		}
		for o.phase == 1 && o.li < len(o.leftRows) {
			idx := o.li
			o.li++
			if !o.leftMatched[idx] {
				o.cur = concatRows(o.leftRows[idx], nullRow(rightWidth))
				return true, nil
			}
		}
		if o.phase == 1 {
			o.phase = 2
			o.ri = 0
		}
	}

	if o.phase == 2 {
		if !o.includeRight {
			return false, nil
		}
		for o.ri < len(o.rightRows) {
			idx := o.ri
			o.ri++
			if !o.rightMatched[idx] {
				o.cur = concatRows(nullRow(leftWidth), o.rightRows[idx])
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func (o *outerScan) Row() []datum.Datum { return o.cur }
func (o *outerScan) Close() error       { return nil }

func concatRows(left, right []datum.Datum) []datum.Datum {
	row := make([]datum.Datum, 0, len(left)+len(right))
	row = append(row, left...)
	row = append(row, right...)
	return row
}

func nullRow(width int) []datum.Datum {
	row := make([]datum.Datum, width)
	for i := range row {
		row[i] = datum.NewNull()
	}
	return row
}

func (ev *evaluator) openOuter(p *analyzer.OuterSelectScanPlan) (rowIter, error) {
	leftIter, err := ev.openScan(p.Product.Left)
	if err != nil {
		return nil, err
	}
	leftRows, err := ev.materialize(leftIter)
	if err != nil {
		return nil, err
	}
	rightIter, err := ev.openScan(p.Product.Right)
	if err != nil {
		return nil, err
	}
	rightRows, err := ev.materialize(rightIter)
	if err != nil {
		return nil, err
	}
	return &outerScan{
		ev:            ev,
		leftRows:      leftRows,
		rightRows:     rightRows,
		on:            p.On,
		includeLeft:   p.IncludeLeft,
		includeRight:  p.IncludeRight,
		leftMatched:   make([]bool, len(leftRows)),
		rightMatched:  make([]bool, len(rightRows)),
	}, nil
}

// -----------------------------------------------------------------------------
// ProjectScan: projection, aggregation, ORDER BY, DISTINCT, LIMIT
// -----------------------------------------------------------------------------

// runProject evaluates a ProjectScanPlan to completion, returning its
// final output rows (ghost columns stripped). Used for both top-level
// SELECT execution and scalar-subquery evaluation.
func (ev *evaluator) runProject(p *analyzer.ProjectScanPlan) ([][]datum.Datum, error) {
	childIter, err := ev.openScan(p.Child)
	if err != nil {
		return nil, err
	}
	inputRows, err := ev.materialize(childIter)
	if err != nil {
		return nil, err
	}

	hasAggregate := false
	for _, item := range p.Projection {
		if item.Expr.IsAggregate() {
			hasAggregate = true
			break
		}
	}

	var rows [][]datum.Datum
	if hasAggregate {
		row, err := ev.evalAggregateRow(p.Projection, inputRows)
		if err != nil {
			return nil, err
		}
		rows = [][]datum.Datum{row}
	} else {
		for _, in := range inputRows {
			row := make([]datum.Datum, len(p.Projection))
			for i, item := range p.Projection {
				v, err := ev.eval(item.Expr, in)
				if err != nil {
					return nil, err
				}
				row[i] = v
			}
			rows = append(rows, row)
		}
	}

	if len(p.OrderBy) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, o := range p.OrderBy {
				cmp := compareNullable(rows[i][o.Pos], rows[j][o.Pos])
				if cmp == 0 {
					continue
				}
				if o.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	outWidth := len(p.Projection) - p.GhostCount
	for i := range rows {
		rows[i] = rows[i][:outWidth]
	}

	if p.Distinct {
		rows = dedupe(rows)
	}

	if p.Limit != nil {
		limitVal, err := ev.eval(p.Limit, nil)
		if err != nil {
			return nil, err
		}
		if n := limitVal.AsInt8(); !limitVal.IsNull() && n >= 0 && int64(len(rows)) > n {
			rows = rows[:n]
		}
	}

	return rows, nil
}

// evalAggregateRow folds every AggregatePlan projection item over all
// of inputRows and evaluates non-aggregate items once, against the
// first input row if one exists. Mixing aggregate and per-row columns
// without a GROUP BY is accepted permissively here (spec's analyzer
// does not enforce functional dependency on a grouping key, per
// DESIGN.md's GROUP BY non-goal).
func (ev *evaluator) evalAggregateRow(projection []analyzer.ProjItem, inputRows [][]datum.Datum) ([]datum.Datum, error) {
	row := make([]datum.Datum, len(projection))
	var sampleRow []datum.Datum
	if len(inputRows) > 0 {
		sampleRow = inputRows[0]
	}
	for i, item := range projection {
		if agg, ok := item.Expr.(*analyzer.AggregatePlan); ok {
			v, err := ev.foldAggregate(agg, inputRows)
			if err != nil {
				return nil, err
			}
			row[i] = v
			continue
		}
		v, err := ev.eval(item.Expr, sampleRow)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

func (ev *evaluator) foldAggregate(agg *analyzer.AggregatePlan, inputRows [][]datum.Datum) (datum.Datum, error) {
	if agg.Name == "COUNT" && agg.Arg == nil {
		return datum.NewInt8(int64(len(inputRows))), nil
	}

	var nonNull []datum.Datum
	for _, row := range inputRows {
		v, err := ev.eval(agg.Arg, row)
		if err != nil {
			return datum.Datum{}, err
		}
		if !v.IsNull() {
			nonNull = append(nonNull, v)
		}
	}

	switch agg.Name {
	case "COUNT":
		return datum.NewInt8(int64(len(nonNull))), nil
	case "SUM":
		if len(nonNull) == 0 {
			return datum.NewNull(), nil
		}
		acc := nonNull[0]
		var err error
		for _, v := range nonNull[1:] {
			acc, err = acc.Add(v)
			if err != nil {
				return datum.Datum{}, err
			}
		}
		return acc, nil
	case "AVG":
		if len(nonNull) == 0 {
			return datum.NewNull(), nil
		}
		acc := nonNull[0]
		var err error
		for _, v := range nonNull[1:] {
			acc, err = acc.Add(v)
			if err != nil {
				return datum.Datum{}, err
			}
		}
		return acc.Div(datum.NewInt8(int64(len(nonNull))))
	case "MAX":
		if len(nonNull) == 0 {
			return datum.NewNull(), nil
		}
		best := nonNull[0]
		for _, v := range nonNull[1:] {
			cmp, err := datum.Compare(v, best)
			if err != nil {
				return datum.Datum{}, err
			}
			if cmp > 0 {
				best = v
			}
		}
		return best, nil
	case "MIN":
		if len(nonNull) == 0 {
			return datum.NewNull(), nil
		}
		best := nonNull[0]
		for _, v := range nonNull[1:] {
			cmp, err := datum.Compare(v, best)
			if err != nil {
				return datum.Datum{}, err
			}
			if cmp < 0 {
				best = v
			}
		}
		return best, nil
	}
	return datum.Datum{}, status.New(status.Analysis, "unknown aggregate %q", agg.Name)
}

// compareNullable orders NULL before every non-null value, a common
// SQL convention.
func compareNullable(a, b datum.Datum) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return -1
	}
	if b.IsNull() {
		return 1
	}
	cmp, err := datum.Compare(a, b)
	if err != nil {
		return 0
	}
	return cmp
}

func dedupe(rows [][]datum.Datum) [][]datum.Datum {
	var out [][]datum.Datum
	for _, row := range rows {
		dup := false
		for _, seen := range out {
			if rowsEqual(row, seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, row)
		}
	}
	return out
}

func rowsEqual(a, b []datum.Datum) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IsNull() != b[i].IsNull() {
			return false
		}
		if a[i].IsNull() {
			continue
		}
		if !datum.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
