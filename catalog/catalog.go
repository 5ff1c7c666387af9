// Package catalog manages WeaselDB's persistent table metadata and
// model artifacts on top of a kv.Engine, per spec 3 and 4.4.
package catalog

import (
	"github.com/tbui468/weaseldb/kv"
	"github.com/tbui468/weaseldb/schema"
)

// CatalogCF and ModelsCF are the distinguished column families the
// catalog lives in.
const (
	CatalogCF = "__catalog__"
	ModelsCF  = "__models__"
)

// EnsureColumnFamilies creates the catalog and models column families
// if they do not already exist. Called once when a database directory
// is opened.
func EnsureColumnFamilies(e kv.Engine) error {
	if err := e.CreateColumnFamily(CatalogCF); err != nil {
		return err
	}
	return e.CreateColumnFamily(ModelsCF)
}

// GetSchema reads and decodes the schema for table, if present.
func GetSchema(txn kv.Txn, table string) (*schema.Schema, bool, error) {
	buf, ok, err := txn.Get(CatalogCF, []byte(table))
	if err != nil || !ok {
		return nil, ok, err
	}
	s, err := schema.Deserialize(buf)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// PutSchema writes s into the catalog, overwriting any prior entry.
// Called on CREATE TABLE and on every successful INSERT (the rowid
// counter advances).
func PutSchema(txn kv.Txn, s *schema.Schema) error {
	return txn.Put(CatalogCF, []byte(s.Table), s.Serialize())
}

// DeleteSchema removes table's catalog entry, used by DROP TABLE.
func DeleteSchema(txn kv.Txn, table string) error {
	return txn.Delete(CatalogCF, []byte(table))
}

// GetModel reads a model's serialized artifact bytes.
func GetModel(txn kv.Txn, name string) ([]byte, bool, error) {
	return txn.Get(ModelsCF, []byte(name))
}

// PutModel stores a model's serialized artifact bytes under name.
func PutModel(txn kv.Txn, name string, artifact []byte) error {
	return txn.Put(ModelsCF, []byte(name), artifact)
}

// DeleteModel removes a model's catalog entry.
func DeleteModel(txn kv.Txn, name string) error {
	return txn.Delete(ModelsCF, []byte(name))
}
