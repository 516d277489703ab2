package storage

import (
	"sort"
	"sync"

	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
)

// Catalog is the allow-list of queryable tables and their schemas.
// Only identifiers found here are ever spliced into SQL.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]Schema
}

func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]Schema)}
}

// Register adds a table. Re-registering with an identical schema is a no-op.
func (c *Catalog) Register(table string, schema Schema) error {
	if !ValidIdentifier(table) {
		return apperrors.InvalidArgumentf("invalid table name %q", table)
	}
	if err := schema.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.tables[table]; ok {
		if !sameSchema(existing, schema) {
			return apperrors.PreconditionFailuref("table %q already registered with a different schema", table)
		}
		return nil
	}
	c.tables[table] = schema
	return nil
}

// Table returns the schema of a registered table.
func (c *Catalog) Table(name string) (Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.tables[name]
	return s, ok
}

// Tables returns registered table names in sorted order.
func (c *Catalog) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sameSchema(a, b Schema) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
