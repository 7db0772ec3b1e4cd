package store

import "sort"

// collectionDef describes one named collection: the backing table and its
// secondary indexes. Index columns are generated from the JSON document by
// the schema migration, so an indexed lookup never scans the documents.
type collectionDef struct {
	table   string
	indexes map[string]string // index name -> generated column
}

// The fixed set of collections, mirroring the application's object stores.
var collections = map[string]collectionDef{
	"products": {
		table:   "products",
		indexes: map[string]string{"name": "name", "barcode": "barcode"},
	},
	"sales": {
		table:   "sales",
		indexes: map[string]string{"sale_number": "sale_number", "created_at": "created_at"},
	},
	"sale_items": {
		table:   "sale_items",
		indexes: map[string]string{"sale_id": "sale_id"},
	},
	"expenses": {
		table:   "expenses",
		indexes: map[string]string{"created_at": "created_at"},
	},
	"categories": {
		table:   "categories",
		indexes: map[string]string{"name": "name"},
	},
	"user_profiles": {
		table:   "user_profiles",
		indexes: map[string]string{"email": "email"},
	},
}

// Collections returns the names of all known collections, sorted.
func Collections() []string {
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a recognized collection.
func Known(name string) bool {
	_, ok := collections[name]
	return ok
}
