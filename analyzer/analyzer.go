package analyzer

import (
	"strings"

	"github.com/tbui468/weaseldb/ast"
	"github.com/tbui468/weaseldb/catalog"
	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/kv"
	"github.com/tbui468/weaseldb/schema"
	"github.com/tbui468/weaseldb/status"
)

// Analyzer resolves one parsed statement at a time against the catalog
// visible through Txn. TxnOpen reflects the calling session's current
// transaction state and gates BEGIN/COMMIT/ROLLBACK legality, per
// spec 4.7's transaction state machine.
type Analyzer struct {
	Txn     kv.Txn
	TxnOpen bool
}

// New builds an Analyzer bound to txn and the session's current
// transaction state.
func New(txn kv.Txn, txnOpen bool) *Analyzer {
	return &Analyzer{Txn: txn, TxnOpen: txnOpen}
}

// Analyze resolves stmt into an executable Plan, or returns a
// status.Error of Kind Analysis/Constraint/Txn.
func (a *Analyzer) Analyze(stmt ast.Stmt) (Plan, error) {
	switch s := stmt.(type) {
	case *ast.CreateTableStmt:
		return a.analyzeCreateTable(s)
	case *ast.CreateModelStmt:
		return a.analyzeCreateModel(s)
	case *ast.DropTableStmt:
		return a.analyzeDropTable(s)
	case *ast.DropModelStmt:
		return a.analyzeDropModel(s)
	case *ast.InsertStmt:
		return a.analyzeInsert(s)
	case *ast.SelectStmt:
		return a.analyzeSelectStmt(s)
	case *ast.UpdateStmt:
		return a.analyzeUpdate(s)
	case *ast.DeleteStmt:
		return a.analyzeDelete(s)
	case *ast.DescribeStmt:
		return a.analyzeDescribe(s)
	case *ast.BeginStmt:
		if a.TxnOpen {
			return nil, status.New(status.Txn, "BEGIN issued inside an already-open transaction")
		}
		return &BeginPlan{}, nil
	case *ast.CommitStmt:
		if !a.TxnOpen {
			return nil, status.New(status.Txn, "COMMIT issued outside of a transaction")
		}
		return &CommitPlan{}, nil
	case *ast.RollbackStmt:
		if !a.TxnOpen {
			return nil, status.New(status.Txn, "ROLLBACK issued outside of a transaction")
		}
		return &RollbackPlan{}, nil
	}
	return nil, status.New(status.Analysis, "unsupported statement %T", stmt)
}

// -----------------------------------------------------------------------------
// DDL
// -----------------------------------------------------------------------------

func (a *Analyzer) analyzeCreateTable(ct *ast.CreateTableStmt) (Plan, error) {
	if _, ok, err := catalog.GetSchema(a.Txn, ct.Name); err != nil {
		return nil, status.Wrap(status.Storage, err, "reading catalog")
	} else if ok {
		return nil, status.New(status.Constraint, "table %q already exists", ct.Name)
	}

	attrs := schema.AttributeSet{{Relation: ct.Name, Column: "_rowid", Type: datum.Int8, NotNull: true}}
	seen := map[string]bool{"_rowid": true}
	var explicitPrimary []string
	for _, cd := range ct.Columns {
		if seen[cd.Name] {
			return nil, status.New(status.Constraint, "duplicate column %q", cd.Name)
		}
		seen[cd.Name] = true
		typ, ok := datum.ParseKind(cd.Type.Name)
		if !ok {
			return nil, status.New(status.Analysis, "unknown type %q for column %q", cd.Type.Name, cd.Name)
		}
		attrs = append(attrs, schema.Attribute{Relation: ct.Name, Column: cd.Name, Type: typ, NotNull: cd.NotNull})
		if cd.IsPrimary {
			explicitPrimary = append(explicitPrimary, cd.Name)
		}
	}

	primaryCols := ct.PrimaryKey
	if len(primaryCols) == 0 {
		primaryCols = explicitPrimary
	}
	var primaryPositions []int
	if len(primaryCols) == 0 {
		primaryPositions = []int{schema.RowidAttrPos}
	} else {
		for _, c := range primaryCols {
			pos, err := attrs.Resolve(c)
			if err != nil {
				return nil, status.New(status.Analysis, "PRIMARY KEY references unknown column %q", c)
			}
			primaryPositions = append(primaryPositions, pos)
			attrs[pos].NotNull = true
		}
	}

	indexes := []schema.Index{{
		Name:    schema.IndexName(ct.Name, attrs.ColumnNames(primaryPositions)),
		Columns: primaryPositions,
	}}

	for _, uc := range ct.UniqueSets {
		var positions []int
		for _, c := range uc.Columns {
			pos, err := attrs.Resolve(c)
			if err != nil {
				return nil, status.New(status.Analysis, "UNIQUE references unknown column %q", c)
			}
			positions = append(positions, pos)
		}
		indexes = append(indexes, schema.Index{
			Name:          schema.IndexName(ct.Name, attrs.ColumnNames(positions)),
			Columns:       positions,
			NullsDistinct: uc.NullsDistinct,
		})
	}

	s := &schema.Schema{Table: ct.Name, RowidCounter: 0, Attributes: attrs, Indexes: indexes}
	return &CreateTablePlan{Schema: s}, nil
}

func (a *Analyzer) analyzeCreateModel(cm *ast.CreateModelStmt) (Plan, error) {
	if _, ok, err := catalog.GetModel(a.Txn, cm.Name); err != nil {
		return nil, status.Wrap(status.Storage, err, "reading catalog")
	} else if ok {
		return nil, status.New(status.Constraint, "model %q already exists", cm.Name)
	}
	return &CreateModelPlan{Name: cm.Name, Path: cm.Path}, nil
}

func (a *Analyzer) analyzeDropTable(dt *ast.DropTableStmt) (Plan, error) {
	_, ok, err := catalog.GetSchema(a.Txn, dt.Name)
	if err != nil {
		return nil, status.Wrap(status.Storage, err, "reading catalog")
	}
	if !ok && !dt.IfExists {
		return nil, status.New(status.Constraint, "no such table %q", dt.Name)
	}
	return &DropTablePlan{Name: dt.Name, IfExists: dt.IfExists, Existed: ok}, nil
}

func (a *Analyzer) analyzeDropModel(dm *ast.DropModelStmt) (Plan, error) {
	_, ok, err := catalog.GetModel(a.Txn, dm.Name)
	if err != nil {
		return nil, status.Wrap(status.Storage, err, "reading catalog")
	}
	if !ok && !dm.IfExists {
		return nil, status.New(status.Constraint, "no such model %q", dm.Name)
	}
	return &DropModelPlan{Name: dm.Name, IfExists: dm.IfExists, Existed: ok}, nil
}

func (a *Analyzer) analyzeDescribe(d *ast.DescribeStmt) (Plan, error) {
	s, ok, err := catalog.GetSchema(a.Txn, d.Name)
	if err != nil {
		return nil, status.Wrap(status.Storage, err, "reading catalog")
	}
	if !ok {
		return nil, status.New(status.Constraint, "no such table %q", d.Name)
	}
	return &DescribePlan{Schema: s}, nil
}

// -----------------------------------------------------------------------------
// DML
// -----------------------------------------------------------------------------

func (a *Analyzer) loadTable(name string) (*schema.Schema, error) {
	s, ok, err := catalog.GetSchema(a.Txn, name)
	if err != nil {
		return nil, status.Wrap(status.Storage, err, "reading catalog")
	}
	if !ok {
		return nil, status.New(status.Constraint, "no such table %q", name)
	}
	return s, nil
}

func (a *Analyzer) resolveAssign(target schema.AttributeSet, assign *ast.ColAssign, scope schema.AttributeSet) (ColAssignPlan, error) {
	pos, err := target.Resolve(assign.Column)
	if err != nil {
		return ColAssignPlan{}, status.New(status.Analysis, "%s", err.Error())
	}
	if pos == schema.RowidAttrPos {
		return ColAssignPlan{}, status.New(status.Constraint, "_rowid is not assignable")
	}
	valExpr, err := a.analyzeExpr(assign.Value, scope)
	if err != nil {
		return ColAssignPlan{}, err
	}
	if valExpr.IsAggregate() {
		return ColAssignPlan{}, status.New(status.Analysis, "aggregates are not allowed in an assignment")
	}
	want := target[pos].Type
	if valExpr.Type() != want && valExpr.Type() != datum.Null {
		if !castAllowed(valExpr.Type(), want) {
			return ColAssignPlan{}, status.New(status.Analysis, "cannot assign %s to column %q of type %s", valExpr.Type(), assign.Column, want)
		}
		valExpr = &CastPlan{Target: valExpr, To: want}
	}
	return ColAssignPlan{Pos: pos, Value: valExpr}, nil
}

func (a *Analyzer) analyzeInsert(ins *ast.InsertStmt) (Plan, error) {
	s, err := a.loadTable(ins.Table)
	if err != nil {
		return nil, err
	}
	var rows [][]ColAssignPlan
	for _, row := range ins.Rows {
		var assigns []ColAssignPlan
		seen := make(map[int]bool)
		for _, assign := range row.Assigns {
			plan, err := a.resolveAssign(s.Attributes, assign, nil)
			if err != nil {
				return nil, err
			}
			if seen[plan.Pos] {
				return nil, status.New(status.Constraint, "column %q assigned more than once", assign.Column)
			}
			seen[plan.Pos] = true
			assigns = append(assigns, plan)
		}
		rows = append(rows, assigns)
	}
	return &InsertPlan{Schema: s, Rows: rows}, nil
}

func aliasedAttrs(attrs schema.AttributeSet, alias string) schema.AttributeSet {
	out := make(schema.AttributeSet, len(attrs))
	for i, at := range attrs {
		out[i] = schema.Attribute{Relation: alias, Column: at.Column, Type: at.Type, NotNull: at.NotNull}
	}
	return out
}

func (a *Analyzer) analyzeUpdate(u *ast.UpdateStmt) (Plan, error) {
	s, err := a.loadTable(u.Table)
	if err != nil {
		return nil, err
	}
	alias := u.Alias
	if alias == "" {
		alias = u.Table
	}
	scope := aliasedAttrs(s.Attributes, alias)
	var scan ScanPlan = &TableScanPlan{Schema: s, Alias: alias, attrs: scope}
	if u.Where != nil {
		pred, err := a.analyzeExpr(u.Where, scope)
		if err != nil {
			return nil, err
		}
		if pred.Type() != datum.Bool {
			return nil, status.New(status.Analysis, "WHERE must be boolean, got %s", pred.Type())
		}
		if pred.IsAggregate() {
			return nil, status.New(status.Analysis, "aggregates are not allowed in WHERE")
		}
		scan = &SelectScanPlan{Child: scan, Predicate: pred}
	}
	var assigns []ColAssignPlan
	seen := make(map[int]bool)
	for _, assign := range u.Assigns {
		plan, err := a.resolveAssign(s.Attributes, assign, scope)
		if err != nil {
			return nil, err
		}
		if seen[plan.Pos] {
			return nil, status.New(status.Constraint, "column %q assigned more than once", assign.Column)
		}
		seen[plan.Pos] = true
		assigns = append(assigns, plan)
	}
	return &UpdatePlan{Schema: s, Scan: scan, Assigns: assigns}, nil
}

func (a *Analyzer) analyzeDelete(d *ast.DeleteStmt) (Plan, error) {
	s, err := a.loadTable(d.Table)
	if err != nil {
		return nil, err
	}
	alias := d.Alias
	if alias == "" {
		alias = d.Table
	}
	scope := aliasedAttrs(s.Attributes, alias)
	var scan ScanPlan = &TableScanPlan{Schema: s, Alias: alias, attrs: scope}
	if d.Where != nil {
		pred, err := a.analyzeExpr(d.Where, scope)
		if err != nil {
			return nil, err
		}
		if pred.Type() != datum.Bool {
			return nil, status.New(status.Analysis, "WHERE must be boolean, got %s", pred.Type())
		}
		if pred.IsAggregate() {
			return nil, status.New(status.Analysis, "aggregates are not allowed in WHERE")
		}
		scan = &SelectScanPlan{Child: scan, Predicate: pred}
	}
	return &DeletePlan{Schema: s, Scan: scan}, nil
}

// -----------------------------------------------------------------------------
// Scans
// -----------------------------------------------------------------------------

func (a *Analyzer) analyzeScan(sc ast.Scan) (ScanPlan, error) {
	switch t := sc.(type) {
	case *ast.TableRef:
		s, err := a.loadTable(t.Name)
		if err != nil {
			return nil, err
		}
		alias := t.Alias
		if alias == "" {
			alias = t.Name
		}
		attrs := aliasedAttrs(s.Attributes, alias)
		return &TableScanPlan{Schema: s, Alias: alias, attrs: attrs}, nil

	case *ast.JoinScan:
		left, err := a.analyzeScan(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := a.analyzeScan(t.Right)
		if err != nil {
			return nil, err
		}
		attrs, err := schema.Concat(left.Output(), right.Output())
		if err != nil {
			return nil, status.New(status.Analysis, "%s", err.Error())
		}
		product := &ProductScanPlan{Left: left, Right: right, attrs: attrs}

		if t.Kind == ast.JoinCross {
			return product, nil
		}

		on, err := a.analyzeExpr(t.On, attrs)
		if err != nil {
			return nil, err
		}
		if on.Type() != datum.Bool {
			return nil, status.New(status.Analysis, "JOIN ... ON must be boolean, got %s", on.Type())
		}
		if on.IsAggregate() {
			return nil, status.New(status.Analysis, "aggregates are not allowed in JOIN ON")
		}

		switch t.Kind {
		case ast.JoinInner:
			return &SelectScanPlan{Child: product, Predicate: on}, nil
		case ast.JoinLeft:
			return &OuterSelectScanPlan{Product: product, On: on, IncludeLeft: true}, nil
		case ast.JoinRight:
			return &OuterSelectScanPlan{Product: product, On: on, IncludeRight: true}, nil
		case ast.JoinFull:
			return &OuterSelectScanPlan{Product: product, On: on, IncludeLeft: true, IncludeRight: true}, nil
		}
	}
	return nil, status.New(status.Analysis, "unsupported scan %T", sc)
}

// -----------------------------------------------------------------------------
// SELECT
// -----------------------------------------------------------------------------

func (a *Analyzer) analyzeSelectStmt(sel *ast.SelectStmt) (*SelectPlan, error) {
	if len(sel.GroupBy) > 0 || sel.Having != nil {
		return nil, status.New(status.Analysis, "GROUP BY / HAVING are not implemented")
	}

	var child ScanPlan
	if sel.From == nil {
		child = &ConstantScanPlan{}
	} else {
		var err error
		child, err = a.analyzeScan(sel.From)
		if err != nil {
			return nil, err
		}
	}
	scope := child.Output()

	if sel.Where != nil {
		pred, err := a.analyzeExpr(sel.Where, scope)
		if err != nil {
			return nil, err
		}
		if pred.Type() != datum.Bool {
			return nil, status.New(status.Analysis, "WHERE must be boolean, got %s", pred.Type())
		}
		if pred.IsAggregate() {
			return nil, status.New(status.Analysis, "aggregates are not allowed in WHERE")
		}
		child = &SelectScanPlan{Child: child, Predicate: pred}
	}

	var projection []ProjItem
	for _, item := range sel.Projection {
		if item.Wildcard {
			for pos, at := range scope {
				if item.Relation != "" && at.Relation != item.Relation {
					continue
				}
				projection = append(projection, ProjItem{
					Expr:  &ColRefPlan{Pos: pos, typ: at.Type},
					Alias: at.Column,
				})
			}
			continue
		}
		exprPlan, err := a.analyzeExpr(item.Expr, scope)
		if err != nil {
			return nil, err
		}
		alias := item.Alias
		if alias == "" {
			if cr, ok := item.Expr.(*ast.ColumnRef); ok {
				alias = cr.Column
			}
		}
		projection = append(projection, ProjItem{Expr: exprPlan, Alias: alias})
	}

	var limit ExprPlan
	if sel.Limit != nil {
		lp, err := a.analyzeExpr(sel.Limit, nil)
		if err != nil {
			return nil, err
		}
		if lp.Type() != datum.Int8 {
			return nil, status.New(status.Analysis, "LIMIT must be INT8, got %s", lp.Type())
		}
		limit = lp
	}

	ghostCount := 0
	var orderBy []OrderItem
	for _, oi := range sel.OrderBy {
		pos := -1
		if cr, ok := oi.Expr.(*ast.ColumnRef); ok && cr.Relation == "" {
			for i, p := range projection {
				if p.Alias == cr.Column {
					pos = i
					break
				}
			}
		}
		if pos == -1 {
			exprPlan, err := a.analyzeExpr(oi.Expr, scope)
			if err != nil {
				return nil, err
			}
			if exprPlan.IsAggregate() {
				return nil, status.New(status.Analysis, "aggregates are not allowed in ORDER BY")
			}
			projection = append(projection, ProjItem{Expr: exprPlan})
			pos = len(projection) - 1
			ghostCount++
		}
		orderBy = append(orderBy, OrderItem{Pos: pos, Desc: oi.Desc})
	}

	outAttrs := make(schema.AttributeSet, len(projection)-ghostCount)
	for i := 0; i < len(projection)-ghostCount; i++ {
		outAttrs[i] = schema.Attribute{Column: projection[i].Alias, Type: projection[i].Expr.Type()}
	}

	proj := &ProjectScanPlan{
		Child:      child,
		Projection: projection,
		OrderBy:    orderBy,
		GhostCount: ghostCount,
		Distinct:   sel.Distinct,
		Limit:      limit,
		attrs:      outAttrs,
	}
	return &SelectPlan{Project: proj}, nil
}

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

func (a *Analyzer) analyzeExpr(expr ast.Expr, scope schema.AttributeSet) (ExprPlan, error) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return &LiteralPlan{Value: datum.NewInt8(e.Value)}, nil
	case *ast.FloatLiteral:
		return &LiteralPlan{Value: datum.NewFloat4(float32(e.Value))}, nil
	case *ast.StringLiteral:
		return &LiteralPlan{Value: datum.NewText(e.Value)}, nil
	case *ast.ByteaLiteral:
		return &LiteralPlan{Value: datum.NewBytea(e.Value)}, nil
	case *ast.BoolLiteral:
		return &LiteralPlan{Value: datum.NewBool(e.Value)}, nil
	case *ast.NullLiteral:
		return &LiteralPlan{Value: datum.NewNull()}, nil

	case *ast.Identifier:
		pos, err := scope.Resolve(e.Value)
		if err != nil {
			return nil, status.New(status.Analysis, "%s", err.Error())
		}
		return &ColRefPlan{Pos: pos, typ: scope[pos].Type}, nil

	case *ast.ColumnRef:
		var pos int
		var err error
		if e.Relation != "" {
			pos, err = scope.Find(e.Relation, e.Column)
		} else {
			pos, err = scope.Resolve(e.Column)
		}
		if err != nil {
			return nil, status.New(status.Analysis, "%s", err.Error())
		}
		return &ColRefPlan{Pos: pos, typ: scope[pos].Type}, nil

	case *ast.UnaryExpr:
		return a.analyzeUnary(e, scope)

	case *ast.BinaryExpr:
		return a.analyzeBinary(e, scope)

	case *ast.IsNullExpr:
		left, err := a.analyzeExpr(e.Left, scope)
		if err != nil {
			return nil, err
		}
		return &IsNullPlan{Left: left, Not: e.Not}, nil

	case *ast.LikeExpr:
		left, err := a.analyzeExpr(e.Left, scope)
		if err != nil {
			return nil, err
		}
		pattern, err := a.analyzeExpr(e.Pattern, scope)
		if err != nil {
			return nil, err
		}
		if left.Type() != datum.Text || pattern.Type() != datum.Text {
			return nil, status.New(status.Analysis, "LIKE/SIMILAR TO requires TEXT operands")
		}
		return &LikePlan{Left: left, Pattern: pattern, Not: e.Not, Similar: e.Similar}, nil

	case *ast.CastExpr:
		target, err := a.analyzeExpr(e.Target, scope)
		if err != nil {
			return nil, err
		}
		to, ok := datum.ParseKind(e.Type.Name)
		if !ok {
			return nil, status.New(status.Analysis, "unknown cast target type %q", e.Type.Name)
		}
		if target.Type() != datum.Null && !castAllowed(target.Type(), to) {
			return nil, status.New(status.Analysis, "cannot cast %s to %s", target.Type(), to)
		}
		return &CastPlan{Target: target, To: to}, nil

	case *ast.AggregateCall:
		return a.analyzeAggregate(e, scope)

	case *ast.FunctionCall:
		return a.analyzePredict(e, scope)

	case *ast.ScalarSubquery:
		sub, err := a.analyzeSelectStmt(e.Select)
		if err != nil {
			return nil, err
		}
		if len(sub.Project.Output()) != 1 {
			return nil, status.New(status.Analysis, "subquery used as an expression must return exactly one column")
		}
		return &ScalarSubqueryPlan{Select: sub, typ: sub.Project.Output()[0].Type}, nil

	case *ast.StarExpr:
		return nil, status.New(status.Analysis, "* is only valid as an argument to COUNT")
	}
	return nil, status.New(status.Analysis, "unsupported expression %T", expr)
}

func (a *Analyzer) analyzeUnary(u *ast.UnaryExpr, scope schema.AttributeSet) (ExprPlan, error) {
	right, err := a.analyzeExpr(u.Right, scope)
	if err != nil {
		return nil, err
	}
	op := strings.ToUpper(u.Operator)
	switch op {
	case "-":
		if right.Type() != datum.Int8 && right.Type() != datum.Float4 {
			return nil, status.New(status.Analysis, "unary - requires a numeric operand, got %s", right.Type())
		}
		return &UnaryPlan{Operator: op, Right: right, typ: right.Type()}, nil
	case "NOT":
		if right.Type() != datum.Bool {
			return nil, status.New(status.Analysis, "NOT requires a boolean operand, got %s", right.Type())
		}
		return &UnaryPlan{Operator: op, Right: right, typ: datum.Bool}, nil
	}
	return nil, status.New(status.Analysis, "unsupported unary operator %q", u.Operator)
}

func isNumeric(k datum.Kind) bool { return k == datum.Int8 || k == datum.Float4 }

func (a *Analyzer) analyzeBinary(b *ast.BinaryExpr, scope schema.AttributeSet) (ExprPlan, error) {
	left, err := a.analyzeExpr(b.Left, scope)
	if err != nil {
		return nil, err
	}
	right, err := a.analyzeExpr(b.Right, scope)
	if err != nil {
		return nil, err
	}
	op := strings.ToUpper(b.Operator)
	switch op {
	case "+", "-", "*", "/":
		if !isNumeric(left.Type()) || !isNumeric(right.Type()) {
			return nil, status.New(status.Analysis, "%s requires numeric operands, got %s and %s", op, left.Type(), right.Type())
		}
		resultType := datum.Float4
		if left.Type() == datum.Int8 && right.Type() == datum.Int8 {
			resultType = datum.Int8
		}
		return &BinaryPlan{Left: left, Right: right, Operator: op, typ: resultType}, nil

	case "=", "!=", "<>", "<", "<=", ">", ">=":
		if !comparable(left.Type(), right.Type()) {
			return nil, status.New(status.Analysis, "cannot compare %s and %s", left.Type(), right.Type())
		}
		return &BinaryPlan{Left: left, Right: right, Operator: op, typ: datum.Bool}, nil

	case "AND", "OR":
		if left.Type() != datum.Bool || right.Type() != datum.Bool {
			return nil, status.New(status.Analysis, "%s requires boolean operands, got %s and %s", op, left.Type(), right.Type())
		}
		return &BinaryPlan{Left: left, Right: right, Operator: op, typ: datum.Bool}, nil
	}
	return nil, status.New(status.Analysis, "unsupported operator %q", b.Operator)
}

func comparable(a, b datum.Kind) bool {
	if a == datum.Null || b == datum.Null {
		return true
	}
	if isNumeric(a) && isNumeric(b) {
		return true
	}
	return a == b
}

func (a *Analyzer) analyzeAggregate(agg *ast.AggregateCall, scope schema.AttributeSet) (ExprPlan, error) {
	name := strings.ToUpper(agg.Name)
	if _, isStar := agg.Arg.(*ast.StarExpr); isStar {
		if name != "COUNT" {
			return nil, status.New(status.Analysis, "%s(*) is not supported, only COUNT(*)", name)
		}
		return &AggregatePlan{Name: name, Arg: nil, typ: datum.Int8}, nil
	}
	arg, err := a.analyzeExpr(agg.Arg, scope)
	if err != nil {
		return nil, err
	}
	if arg.IsAggregate() {
		return nil, status.New(status.Analysis, "aggregates cannot be nested")
	}
	typ := arg.Type()
	switch name {
	case "COUNT":
		typ = datum.Int8
	case "SUM", "AVG", "MAX", "MIN":
		if !isNumeric(typ) {
			return nil, status.New(status.Analysis, "%s requires a numeric argument, got %s", name, typ)
		}
	default:
		return nil, status.New(status.Analysis, "unknown aggregate %q", agg.Name)
	}
	return &AggregatePlan{Name: name, Arg: arg, typ: typ}, nil
}

func (a *Analyzer) analyzePredict(fc *ast.FunctionCall, scope schema.AttributeSet) (ExprPlan, error) {
	if !strings.EqualFold(fc.Name, "predict") {
		return nil, status.New(status.Analysis, "unknown function %q", fc.Name)
	}
	if len(fc.Arguments) != 2 {
		return nil, status.New(status.Analysis, "predict() takes exactly 2 arguments: model name and a value")
	}
	var model string
	switch m := fc.Arguments[0].(type) {
	case *ast.Identifier:
		model = m.Value
	case *ast.ColumnRef:
		if m.Relation == "" {
			model = m.Column
		}
	}
	if model == "" {
		return nil, status.New(status.Analysis, "predict()'s first argument must be a bare model name")
	}
	arg, err := a.analyzeExpr(fc.Arguments[1], scope)
	if err != nil {
		return nil, err
	}
	if arg.IsAggregate() {
		return nil, status.New(status.Analysis, "aggregates are not allowed inside predict()")
	}
	if _, ok, err := catalog.GetModel(a.Txn, model); err != nil {
		return nil, status.Wrap(status.Storage, err, "reading catalog")
	} else if !ok {
		return nil, status.New(status.Constraint, "no such model %q", model)
	}
	return &PredictPlan{Model: model, Arg: arg}, nil
}

// castAllowed mirrors the (from, to) pairs datum.Cast accepts, so the
// analyzer can reject an invalid CAST before execution rather than at
// evaluation time.
func castAllowed(from, to datum.Kind) bool {
	switch from {
	case datum.Int8:
		switch to {
		case datum.Int8, datum.Float4, datum.Text, datum.Bool:
			return true
		}
	case datum.Float4:
		switch to {
		case datum.Int8, datum.Float4, datum.Text:
			return true
		}
	case datum.Text:
		switch to {
		case datum.Text, datum.Timestamp:
			return true
		}
	case datum.Bool:
		switch to {
		case datum.Int8, datum.Bool:
			return true
		}
	case datum.Timestamp:
		return to == datum.Timestamp
	case datum.Bytea:
		return to == datum.Bytea
	}
	return false
}
