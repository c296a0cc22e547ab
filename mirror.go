package configurator

// Table is the live accessor for one document table. It holds a reference to
// the table's backing map, so Set writes through to the document immediately;
// persisting the change still requires Configuration.Update.
type Table struct {
	backing  map[string]any
	children map[string]*Table
}

// newTable projects a backing map into an accessor, building nested accessors
// for every table-valued key.
func newTable(backing map[string]any) *Table {
	t := &Table{
		backing:  backing,
		children: make(map[string]*Table),
	}
	for key, value := range backing {
		if sub, ok := value.(map[string]any); ok {
			t.children[key] = newTable(sub)
		}
	}
	return t
}

// Get returns the raw value for key, or nil if absent.
func (t *Table) Get(key string) any {
	return t.backing[key]
}

// Has reports whether key exists in the table.
func (t *Table) Has(key string) bool {
	_, ok := t.backing[key]
	return ok
}

// Set assigns the value, writing through to the backing document map.
func (t *Table) Set(key string, value any) {
	t.backing[key] = value
	if sub, ok := value.(map[string]any); ok {
		t.children[key] = newTable(sub)
		return
	}
	delete(t.children, key)
}

// Table returns the nested accessor for a table-valued key, or nil.
func (t *Table) Table(key string) *Table {
	return t.children[key]
}

// Keys returns the table's keys in lexical order.
func (t *Table) Keys() []string {
	return sortedKeys(t.backing)
}

// Map returns the backing map itself. Mutations are visible to the document.
func (t *Table) Map() map[string]any {
	return t.backing
}

// setAttributes rebuilds the attribute mirror from the current document: one
// write-through Table accessor per top-level table, plus flat "table_key" and
// "_table_key" snapshot attributes for every key at every depth. It also
// republishes every leaf to the environment, so after any write the
// environment reflects the last persisted document. The mirror is rebuilt
// wholesale, never patched.
func (c *Configuration) setAttributes() {
	tables := make(map[string]*Table)
	attrs := make(map[string]any)

	for name, value := range c.config {
		tbl, ok := value.(map[string]any)
		if !ok {
			continue
		}
		tables[name] = newTable(tbl)
		c.flattenAttrs(name, "", tbl, attrs)
		for _, key := range sortedKeys(tbl) {
			c.publishValue(name, key, tbl[key])
		}
	}

	c.tables = tables
	c.attrs = attrs
}

// flattenAttrs records snapshot copies for one table level under both the
// plain and the underscore-shadowed attribute names.
func (c *Configuration) flattenAttrs(table, prefix string, tbl map[string]any, attrs map[string]any) {
	for key, value := range tbl {
		flat := key
		if prefix != "" {
			flat = prefix + "_" + key
		}
		attrs[table+"_"+flat] = deepCopyValue(value)
		attrs["_"+table+"_"+flat] = deepCopyValue(value)
		if sub, ok := value.(map[string]any); ok {
			c.flattenAttrs(table, flat, sub, attrs)
		}
	}
}
