// Package analyzer walks a parsed ast.Program, resolves names against a
// scope stack of attribute sets, checks types, and produces an analyzed
// plan tree the executor runs directly, per spec 4.5.
package analyzer

import (
	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/schema"
)

// Plan is any analyzed statement ready for execution.
type Plan interface{ planNode() }

// ScanPlan is an analyzed FROM-clause operator, annotated with the
// AttributeSet it produces.
type ScanPlan interface {
	Plan
	Output() schema.AttributeSet
}

// ExprPlan is an analyzed expression, annotated with its realised type.
// IsAggregate is a property of the expression computed here in the
// analyzer rather than a runtime side channel, per spec 9's redesign
// note on the source's is_agg flag.
type ExprPlan interface {
	Plan
	Type() datum.Kind
	IsAggregate() bool
}

// -----------------------------------------------------------------------------
// Scans
// -----------------------------------------------------------------------------

// TableScanPlan positions an iterator at the first key of a table's
// primary index.
type TableScanPlan struct {
	Schema *schema.Schema
	Alias  string
	attrs  schema.AttributeSet
}

func (t *TableScanPlan) planNode()              {}
func (t *TableScanPlan) Output() schema.AttributeSet { return t.attrs }

// ConstantScanPlan emits a single row with no columns; a SELECT without
// FROM evaluates its projection against that row. The executor does not
// read Values, and INSERT does not use this plan.
type ConstantScanPlan struct {
	Values []ExprPlan
	attrs  schema.AttributeSet
}

func (c *ConstantScanPlan) planNode()              {}
func (c *ConstantScanPlan) Output() schema.AttributeSet { return c.attrs }

// SelectScanPlan filters child's rows by Predicate.
type SelectScanPlan struct {
	Child     ScanPlan
	Predicate ExprPlan
}

func (s *SelectScanPlan) planNode()              {}
func (s *SelectScanPlan) Output() schema.AttributeSet { return s.Child.Output() }

// ProductScanPlan is the nested-loop cross product of Left and Right.
type ProductScanPlan struct {
	Left, Right ScanPlan
	attrs       schema.AttributeSet
}

func (p *ProductScanPlan) planNode()              {}
func (p *ProductScanPlan) Output() schema.AttributeSet { return p.attrs }

// OuterSelectScanPlan implements LEFT/RIGHT/FULL joins over Product, by
// padding unmatched rows on the included side(s) with nulls. Matched
// bookkeeping is done by scan position (a []bool bitmap sized to each
// side of Product), per spec 9's Open Question decision in
// SPEC_FULL.md, not by hashing serialized row bytes.
type OuterSelectScanPlan struct {
	Product      *ProductScanPlan
	On           ExprPlan
	IncludeLeft  bool
	IncludeRight bool
}

func (o *OuterSelectScanPlan) planNode()              {}
func (o *OuterSelectScanPlan) Output() schema.AttributeSet { return o.Product.Output() }

// ProjItem is one analyzed projection column.
type ProjItem struct {
	Expr  ExprPlan
	Alias string
}

// OrderItem is one analyzed ORDER BY column and its direction. Pos is
// the projected-output column position it sorts by (ghost columns
// included).
type OrderItem struct {
	Pos  int
	Desc bool
}

// ProjectScanPlan materializes, sorts, evaluates projections
// (detecting aggregates statically per column), strips ghost columns,
// dedupes, and truncates to Limit.
type ProjectScanPlan struct {
	Child      ScanPlan
	Projection []ProjItem
	OrderBy    []OrderItem
	GhostCount int // trailing projection columns added only to satisfy ORDER BY
	Distinct   bool
	Limit      ExprPlan // nil means unlimited
	attrs      schema.AttributeSet
}

func (p *ProjectScanPlan) planNode()              {}
func (p *ProjectScanPlan) Output() schema.AttributeSet { return p.attrs }

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

// LiteralPlan is a constant value known at analysis time.
type LiteralPlan struct {
	Value datum.Datum
}

func (l *LiteralPlan) planNode()        {}
func (l *LiteralPlan) Type() datum.Kind { return l.Value.Kind() }
func (l *LiteralPlan) IsAggregate() bool { return false }

// ColRefPlan is a column reference resolved to its position within the
// current row scope. Scalar subqueries are analyzed with their own
// independent scope rather than correlated against an outer one, per
// DESIGN.md.
type ColRefPlan struct {
	Pos int
	typ datum.Kind
}

func (c *ColRefPlan) planNode()        {}
func (c *ColRefPlan) Type() datum.Kind { return c.typ }
func (c *ColRefPlan) IsAggregate() bool { return false }

// UnaryPlan is a realised prefix operator.
type UnaryPlan struct {
	Operator string
	Right    ExprPlan
	typ      datum.Kind
}

func (u *UnaryPlan) planNode()        {}
func (u *UnaryPlan) Type() datum.Kind { return u.typ }
func (u *UnaryPlan) IsAggregate() bool { return u.Right.IsAggregate() }

// BinaryPlan is a realised infix operator.
type BinaryPlan struct {
	Left, Right ExprPlan
	Operator    string
	typ         datum.Kind
}

func (b *BinaryPlan) planNode()        {}
func (b *BinaryPlan) Type() datum.Kind { return b.typ }
func (b *BinaryPlan) IsAggregate() bool { return b.Left.IsAggregate() || b.Right.IsAggregate() }

// IsNullPlan is `expr IS [NOT] NULL`.
type IsNullPlan struct {
	Left ExprPlan
	Not  bool
}

func (e *IsNullPlan) planNode()         {}
func (e *IsNullPlan) Type() datum.Kind  { return datum.Bool }
func (e *IsNullPlan) IsAggregate() bool { return e.Left.IsAggregate() }

// LikePlan is `expr [NOT] LIKE|SIMILAR TO pattern`.
type LikePlan struct {
	Left, Pattern ExprPlan
	Not, Similar  bool
}

func (e *LikePlan) planNode()         {}
func (e *LikePlan) Type() datum.Kind  { return datum.Bool }
func (e *LikePlan) IsAggregate() bool { return e.Left.IsAggregate() }

// CastPlan is a validated CAST(expr AS type).
type CastPlan struct {
	Target ExprPlan
	To     datum.Kind
}

func (c *CastPlan) planNode()        {}
func (c *CastPlan) Type() datum.Kind { return c.To }
func (c *CastPlan) IsAggregate() bool { return c.Target.IsAggregate() }

// AggregatePlan is AVG|COUNT|MAX|MIN|SUM(expr), only valid inside a
// projection. Its result type equals the argument type except COUNT,
// which is always Int8.
type AggregatePlan struct {
	Name string
	Arg  ExprPlan // nil for COUNT(*)
	typ  datum.Kind
}

func (a *AggregatePlan) planNode()        {}
func (a *AggregatePlan) Type() datum.Kind { return a.typ }
func (a *AggregatePlan) IsAggregate() bool { return true }

// PredictPlan is a user-named function call routed to the external
// predictor: Predict(model_name, arg).
type PredictPlan struct {
	Model string
	Arg   ExprPlan
}

func (p *PredictPlan) planNode()        {}
func (p *PredictPlan) Type() datum.Kind { return datum.Int8 }
func (p *PredictPlan) IsAggregate() bool { return p.Arg.IsAggregate() }

// ScalarSubqueryPlan wraps an analyzed nested SELECT. It must yield
// exactly one row of one column at execution time, else
// status.Constraint CardinalityError.
type ScalarSubqueryPlan struct {
	Select *SelectPlan
	typ    datum.Kind
}

func (s *ScalarSubqueryPlan) planNode()        {}
func (s *ScalarSubqueryPlan) Type() datum.Kind { return s.typ }
func (s *ScalarSubqueryPlan) IsAggregate() bool { return false }

// ColAssignPlan is a resolved `col = expr`, Pos naming the target
// column's position in the row being assigned into.
type ColAssignPlan struct {
	Pos   int
	Value ExprPlan
}

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

// SelectPlan is the analyzed form of ast.SelectStmt.
type SelectPlan struct {
	Project *ProjectScanPlan
}

func (s *SelectPlan) planNode() {}

// InsertPlan holds one list of ColAssigns per VALUES row; the executor
// evaluates each list directly into a NULL-filled row of Schema.
type InsertPlan struct {
	Schema *schema.Schema
	Rows   [][]ColAssignPlan
}

func (i *InsertPlan) planNode() {}

// UpdatePlan drives Scan and applies Assigns to each row.
type UpdatePlan struct {
	Schema  *schema.Schema
	Scan    ScanPlan
	Assigns []ColAssignPlan
}

func (u *UpdatePlan) planNode() {}

// DeletePlan drives Scan and deletes each row.
type DeletePlan struct {
	Schema *schema.Schema
	Scan   ScanPlan
}

func (d *DeletePlan) planNode() {}

// CreateTablePlan carries the fully-built schema ready to persist.
type CreateTablePlan struct {
	Schema *schema.Schema
}

func (c *CreateTablePlan) planNode() {}

// CreateModelPlan carries a validated CREATE MODEL.
type CreateModelPlan struct {
	Name, Path string
}

func (c *CreateModelPlan) planNode() {}

// DropTablePlan carries a validated DROP TABLE.
type DropTablePlan struct {
	Name     string
	IfExists bool
	Existed  bool
}

func (d *DropTablePlan) planNode() {}

// DropModelPlan carries a validated DROP MODEL.
type DropModelPlan struct {
	Name     string
	IfExists bool
	Existed  bool
}

func (d *DropModelPlan) planNode() {}

// DescribePlan carries a validated DESCRIBE TABLE.
type DescribePlan struct {
	Schema *schema.Schema
}

func (d *DescribePlan) planNode() {}

// BeginPlan, CommitPlan, RollbackPlan carry no data; their legality
// (open/closed transaction state) is checked by the analyzer from
// session state passed into Analyze.
type BeginPlan struct{}
type CommitPlan struct{}
type RollbackPlan struct{}

func (BeginPlan) planNode()    {}
func (CommitPlan) planNode()   {}
func (RollbackPlan) planNode() {}
