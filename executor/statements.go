package executor

import (
	"bytes"
	"fmt"

	"github.com/tbui468/weaseldb/analyzer"
	"github.com/tbui468/weaseldb/catalog"
	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/index"
	"github.com/tbui468/weaseldb/kv"
	"github.com/tbui468/weaseldb/schema"
	"github.com/tbui468/weaseldb/status"
)

// execPlan runs any non-transaction-control plan and returns its
// client-facing result.
func (ev *evaluator) execPlan(engine kv.Engine, plan analyzer.Plan) (*status.Result, error) {
	switch p := plan.(type) {
	case *analyzer.CreateTablePlan:
		return ev.execCreateTable(engine, p)
	case *analyzer.CreateModelPlan:
		return ev.execCreateModel(p)
	case *analyzer.DropTablePlan:
		return ev.execDropTable(engine, p)
	case *analyzer.DropModelPlan:
		return ev.execDropModel(p)
	case *analyzer.InsertPlan:
		return ev.execInsert(p)
	case *analyzer.UpdatePlan:
		return ev.execUpdate(p)
	case *analyzer.DeletePlan:
		return ev.execDelete(p)
	case *analyzer.SelectPlan:
		return ev.execSelect(p)
	case *analyzer.DescribePlan:
		return ev.execDescribe(p)
	}
	return nil, status.New(status.Analysis, "unsupported plan %T", plan)
}

func (ev *evaluator) execCreateTable(engine kv.Engine, p *analyzer.CreateTablePlan) (*status.Result, error) {
	for _, idx := range p.Schema.Indexes {
		if err := engine.CreateColumnFamily(idx.Name); err != nil {
			return nil, status.Wrap(status.Storage, err, "creating index %q", idx.Name)
		}
	}
	if err := catalog.PutSchema(ev.txn, p.Schema); err != nil {
		return nil, status.Wrap(status.Storage, err, "writing catalog")
	}
	return status.Ok(fmt.Sprintf("CREATE TABLE %s", p.Schema.Table)), nil
}

func (ev *evaluator) execCreateModel(p *analyzer.CreateModelPlan) (*status.Result, error) {
	artifact, err := ev.predictor.Load(p.Path)
	if err != nil {
		return nil, status.Wrap(status.Analysis, err, "loading model %q", p.Name)
	}
	if err := catalog.PutModel(ev.txn, p.Name, artifact); err != nil {
		return nil, status.Wrap(status.Storage, err, "writing catalog")
	}
	return status.Ok(fmt.Sprintf("CREATE MODEL %s", p.Name)), nil
}

func (ev *evaluator) execDropTable(engine kv.Engine, p *analyzer.DropTablePlan) (*status.Result, error) {
	if !p.Existed {
		return status.Ok(fmt.Sprintf("DROP TABLE %s (did not exist)", p.Name)), nil
	}
	s, ok, err := catalog.GetSchema(ev.txn, p.Name)
	if err != nil {
		return nil, status.Wrap(status.Storage, err, "reading catalog")
	}
	if !ok {
		return status.Ok(fmt.Sprintf("DROP TABLE %s (did not exist)", p.Name)), nil
	}
	for _, idx := range s.Indexes {
		if err := engine.DropColumnFamily(idx.Name); err != nil {
			return nil, status.Wrap(status.Storage, err, "dropping index %q", idx.Name)
		}
	}
	if err := catalog.DeleteSchema(ev.txn, p.Name); err != nil {
		return nil, status.Wrap(status.Storage, err, "writing catalog")
	}
	return status.Ok(fmt.Sprintf("DROP TABLE %s", p.Name)), nil
}

func (ev *evaluator) execDropModel(p *analyzer.DropModelPlan) (*status.Result, error) {
	if !p.Existed {
		return status.Ok(fmt.Sprintf("DROP MODEL %s (did not exist)", p.Name)), nil
	}
	if err := catalog.DeleteModel(ev.txn, p.Name); err != nil {
		return nil, status.Wrap(status.Storage, err, "writing catalog")
	}
	return status.Ok(fmt.Sprintf("DROP MODEL %s", p.Name)), nil
}

// writeRow persists row into every index of s: the primary index
// stores the serialized row keyed by its primary-key encoding, every
// secondary index stores the primary key keyed by its own column set.
func writeRow(txn kv.Txn, s *schema.Schema, row []datum.Datum) error {
	pk := index.PrimaryKey(s, row)
	if err := txn.Put(s.Primary().Name, pk, index.SerializeRow(row)); err != nil {
		return err
	}
	for _, sec := range s.Secondary() {
		key := index.SecondaryKey(sec, row)
		if err := txn.Put(sec.Name, key, pk); err != nil {
			return err
		}
	}
	return nil
}

// deleteRow removes row's entry from every index of s.
func deleteRow(txn kv.Txn, s *schema.Schema, row []datum.Datum) error {
	pk := index.PrimaryKey(s, row)
	if err := txn.Delete(s.Primary().Name, pk); err != nil {
		return err
	}
	for _, sec := range s.Secondary() {
		key := index.SecondaryKey(sec, row)
		if err := txn.Delete(sec.Name, key); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) execInsert(p *analyzer.InsertPlan) (*status.Result, error) {
	s := p.Schema
	for _, assigns := range p.Rows {
		row := make([]datum.Datum, len(s.Attributes))
		for i := range row {
			row[i] = datum.NewNull()
		}
		s.RowidCounter++
		row[schema.RowidAttrPos] = datum.NewInt8(s.RowidCounter)

		for _, assign := range assigns {
			v, err := ev.eval(assign.Value, nil)
			if err != nil {
				return nil, err
			}
			row[assign.Pos] = v
		}

		for i, attr := range s.Attributes {
			if attr.NotNull && row[i].IsNull() {
				return nil, status.New(status.Constraint, "column %q may not be NULL", attr.Column)
			}
		}

		for _, idx := range s.Indexes {
			key := index.KeyFor(idx, row)
			if _, ok, err := ev.txn.Get(idx.Name, key); err != nil {
				return nil, status.Wrap(status.Storage, err, "checking uniqueness on %q", idx.Name)
			} else if ok {
				return nil, status.New(status.Constraint, "duplicate key value violates unique constraint %q", idx.Name)
			}
		}

		if err := writeRow(ev.txn, s, row); err != nil {
			return nil, status.Wrap(status.Storage, err, "writing row")
		}
	}
	if err := catalog.PutSchema(ev.txn, s); err != nil {
		return nil, status.Wrap(status.Storage, err, "updating catalog")
	}
	return status.Ok(fmt.Sprintf("INSERT %d", len(p.Rows))), nil
}

func (ev *evaluator) execUpdate(p *analyzer.UpdatePlan) (*status.Result, error) {
	it, err := ev.openScan(p.Scan)
	if err != nil {
		return nil, err
	}
	oldRows, err := ev.materialize(it)
	if err != nil {
		return nil, err
	}

	s := p.Schema
	count := 0
	for _, old := range oldRows {
		newRow := append([]datum.Datum(nil), old...)
		for _, assign := range p.Assigns {
			v, err := ev.eval(assign.Value, old)
			if err != nil {
				return nil, err
			}
			newRow[assign.Pos] = v
		}
		for i, attr := range s.Attributes {
			if attr.NotNull && newRow[i].IsNull() {
				return nil, status.New(status.Constraint, "column %q may not be NULL", attr.Column)
			}
		}

		for _, idx := range s.Indexes {
			oldKey := index.KeyFor(idx, old)
			newKey := index.KeyFor(idx, newRow)
			if bytes.Equal(oldKey, newKey) {
				continue
			}
			if _, ok, err := ev.txn.Get(idx.Name, newKey); err != nil {
				return nil, status.Wrap(status.Storage, err, "checking uniqueness on %q", idx.Name)
			} else if ok {
				return nil, status.New(status.Constraint, "duplicate key value violates unique constraint %q", idx.Name)
			}
		}

		if err := deleteRow(ev.txn, s, old); err != nil {
			return nil, status.Wrap(status.Storage, err, "updating row")
		}
		if err := writeRow(ev.txn, s, newRow); err != nil {
			return nil, status.Wrap(status.Storage, err, "updating row")
		}
		count++
	}
	return status.Ok(fmt.Sprintf("UPDATE %d", count)), nil
}

func (ev *evaluator) execDelete(p *analyzer.DeletePlan) (*status.Result, error) {
	it, err := ev.openScan(p.Scan)
	if err != nil {
		return nil, err
	}
	rows, err := ev.materialize(it)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := deleteRow(ev.txn, p.Schema, row); err != nil {
			return nil, status.Wrap(status.Storage, err, "deleting row")
		}
	}
	return status.Ok(fmt.Sprintf("DELETE %d", len(rows))), nil
}

func (ev *evaluator) execSelect(p *analyzer.SelectPlan) (*status.Result, error) {
	rows, err := ev.runProject(p.Project)
	if err != nil {
		return nil, err
	}
	attrs := p.Project.Output()
	cols := make([]status.ColumnDesc, len(attrs))
	for i, a := range attrs {
		cols[i] = status.ColumnDesc{Name: a.Column, TypeTag: byte(a.Type)}
	}
	out := make([]status.Row, len(rows))
	for i, row := range rows {
		r := make(status.Row, len(row))
		for j, d := range row {
			r[j] = d
		}
		out[i] = r
	}
	return status.OkRows(cols, out, fmt.Sprintf("SELECT %d", len(rows))), nil
}

// execDescribe returns two result sets per spec 4.6: the table's
// attributes as (column, type, not_null), followed by its indexes as
// (type, name) -- "primary" for index 0, "unique" for every other
// declared index.
func (ev *evaluator) execDescribe(p *analyzer.DescribePlan) (*status.Result, error) {
	s := p.Schema
	attrCols := []status.ColumnDesc{
		{Name: "column", TypeTag: byte(datum.Text)},
		{Name: "type", TypeTag: byte(datum.Text)},
		{Name: "not_null", TypeTag: byte(datum.Bool)},
	}
	var attrRows []status.Row
	for _, attr := range s.Attributes[1:] { // skip the internal _rowid column
		attrRows = append(attrRows, status.Row{
			datum.NewText(attr.Column),
			datum.NewText(attr.Type.String()),
			datum.NewBool(attr.NotNull),
		})
	}

	idxCols := []status.ColumnDesc{
		{Name: "type", TypeTag: byte(datum.Text)},
		{Name: "name", TypeTag: byte(datum.Text)},
	}
	var idxRows []status.Row
	for i, idx := range s.Indexes {
		kind := "unique"
		if i == 0 {
			kind = "primary"
		}
		idxRows = append(idxRows, status.Row{
			datum.NewText(kind),
			datum.NewText(idx.Name),
		})
	}

	extra := []status.ResultSet{{Columns: idxCols, Rows: idxRows}}
	return status.OkManyRows(attrCols, attrRows, extra, fmt.Sprintf("DESCRIBE %s", s.Table)), nil
}
