// Package wire decodes the JSON:API-style response envelope the backend sends:
// primary data (one record or a list), the flat included set, and an optional
// in-band error object.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

const (
	// MediaType is the structured-data content type sent and accepted by the SDK
	MediaType = "application/json"
)

// ErrNotJSON is returned when a body cannot be decoded as a JSON document
var ErrNotJSON = errors.New("body is not valid JSON")

// Reference points at a related record by identity only
type Reference struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Relationship holds the references of one named relation. A relation may be
// encoded as a single reference or a list, optionally wrapped in {"data": ...}.
type Relationship struct {
	References []Reference
	Many       bool
}

// UnmarshalJSON accepts {"data": ref}, {"data": [refs]}, ref, [refs] and null
func (r *Relationship) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		*r = Relationship{}
		return nil
	}

	if b[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(b, &probe); err != nil {
			return err
		}
		if data, ok := probe["data"]; ok {
			return r.decodeRefs(bytes.TrimSpace(data))
		}
	}
	return r.decodeRefs(b)
}

func (r *Relationship) decodeRefs(b []byte) error {
	switch {
	case isNull(b):
		*r = Relationship{}
		return nil
	case b[0] == '[':
		var refs []Reference
		if err := json.Unmarshal(b, &refs); err != nil {
			return err
		}
		*r = Relationship{References: refs, Many: true}
		return nil
	default:
		var ref Reference
		if err := json.Unmarshal(b, &ref); err != nil {
			return err
		}
		*r = Relationship{References: []Reference{ref}}
		return nil
	}
}

// MarshalJSON writes the relation in its wrapped form
func (r Relationship) MarshalJSON() ([]byte, error) {
	if r.Many {
		refs := r.References
		if refs == nil {
			refs = []Reference{}
		}
		return json.Marshal(map[string]interface{}{"data": refs})
	}
	if len(r.References) == 0 {
		return []byte(`{"data":null}`), nil
	}
	return json.Marshal(map[string]interface{}{"data": r.References[0]})
}

// Record is one resource object on the wire. Attributes is nil when the
// member was absent, which hydration treats differently from an empty object.
type Record struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    map[string]interface{}  `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Key returns the identity key of the record
func (r *Record) Key() Key {
	return Key{Type: r.Type, ID: r.ID}
}

// Key identifies a record by type and id
type Key struct {
	Type string
	ID   string
}

// Key returns the identity key of the reference
func (r Reference) Key() Key {
	return Key{Type: r.Type, ID: r.ID}
}

// ErrorObject is the in-band error the backend can return in place of data
type ErrorObject struct {
	Status int    `json:"status,omitempty"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// Data is the primary data member: a single record or a list
type Data struct {
	Records []*Record
	Many    bool
}

// UnmarshalJSON accepts a record, a list of records or null
func (d *Data) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case isNull(b):
		*d = Data{}
		return nil
	case b[0] == '[':
		var records []*Record
		if err := json.Unmarshal(b, &records); err != nil {
			return err
		}
		*d = Data{Records: records, Many: true}
		return nil
	default:
		var record Record
		if err := json.Unmarshal(b, &record); err != nil {
			return err
		}
		*d = Data{Records: []*Record{&record}}
		return nil
	}
}

// MarshalJSON writes the data member in its original shape
func (d Data) MarshalJSON() ([]byte, error) {
	if d.Many {
		records := d.Records
		if records == nil {
			records = []*Record{}
		}
		return json.Marshal(records)
	}
	if len(d.Records) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(d.Records[0])
}

// Envelope is the top-level response document
type Envelope struct {
	Data     *Data        `json:"data,omitempty"`
	Included []*Record    `json:"included,omitempty"`
	Error    *ErrorObject `json:"error,omitempty"`
}

// envelopeDoc mirrors Envelope and additionally accepts a JSON:API errors array
type envelopeDoc struct {
	Data     json.RawMessage `json:"data"`
	Included []*Record       `json:"included"`
	Error    *ErrorObject    `json:"error"`
	Errors   []errorDoc      `json:"errors"`
}

type errorDoc struct {
	Status json.RawMessage `json:"status"`
	Title  string          `json:"title"`
	Text   string          `json:"text"`
	Detail string          `json:"detail"`
}

// Decode parses a response body. It returns ErrNotJSON for bodies that are not
// JSON objects. An envelope without data and without an error decodes fine;
// callers check HasData.
func Decode(body []byte) (*Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || isNull(body) {
		return nil, ErrNotJSON
	}

	var doc envelopeDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Join(ErrNotJSON, err)
	}

	env := &Envelope{Included: doc.Included, Error: doc.Error}
	if env.Error == nil && len(doc.Errors) > 0 {
		env.Error = doc.Errors[0].toObject()
	}

	if raw := bytes.TrimSpace(doc.Data); len(raw) > 0 && !isNull(raw) {
		var data Data
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, errors.Join(ErrNotJSON, err)
		}
		env.Data = &data
	}

	return env, nil
}

// HasData reports whether the envelope carries a primary data member
func (e *Envelope) HasData() bool {
	return e != nil && e.Data != nil
}

func (d errorDoc) toObject() *ErrorObject {
	obj := &ErrorObject{Title: d.Title, Text: d.Text}
	if obj.Text == "" {
		obj.Text = d.Detail
	}
	var status int
	if err := json.Unmarshal(d.Status, &status); err == nil {
		obj.Status = status
		return obj
	}
	var text string
	if err := json.Unmarshal(d.Status, &text); err == nil {
		if n, err := strconv.Atoi(text); err == nil {
			obj.Status = n
		}
	}
	return obj
}

// Index is the included set keyed by record identity
type Index map[Key]*Record

// NewIndex indexes records by type and id. Records without an id are ignored;
// on duplicates the first record wins.
func NewIndex(records ...[]*Record) Index {
	idx := make(Index)
	for _, list := range records {
		for _, rec := range list {
			if rec == nil || rec.ID == "" {
				continue
			}
			if _, exists := idx[rec.Key()]; !exists {
				idx[rec.Key()] = rec
			}
		}
	}
	return idx
}

// Lookup returns the record a reference points at
func (idx Index) Lookup(ref Reference) (*Record, bool) {
	rec, ok := idx[ref.Key()]
	return rec, ok
}

func isNull(b []byte) bool {
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
