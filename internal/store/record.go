package store

import "encoding/json"

// Record is a schema-agnostic object: a mapping of field name to value.
// Values follow encoding/json conventions (string, float64, bool, nil,
// nested maps/slices). The store does not interpret domain fields beyond
// the "id" key.
type Record map[string]any

// ID returns the record identifier, or "" if absent or not a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Clone returns a shallow copy of the record. Top-level keys can be added
// or replaced on the copy without touching the original.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge overlays patch onto the record field by field. Caller-supplied
// fields overwrite, untouched fields persist.
func (r Record) Merge(patch Record) {
	for k, v := range patch {
		r[k] = v
	}
}

func marshalRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

func unmarshalRecord(doc []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, err
	}
	return r, nil
}
