// Package entity provides the identity-bearing domain objects the SDK
// materialises from responses, the registry used to construct them from a
// wire type string, and the graph hydration that links them together.
//
// Generated SDK types embed Base and implement Type:
//
//	type Article struct {
//	    entity.Base
//	}
//
//	func (*Article) Type() string { return "article" }
//
//	func init() {
//	    entity.DefaultRegistry.MustRegister("article", func() entity.Entity { return &Article{} })
//	}
package entity

// Attributes is the open attribute bag of an entity
type Attributes map[string]interface{}

// Entity is implemented by every SDK domain object. The unexported core
// method restricts implementations to types embedding Base.
type Entity interface {
	// Type returns the fixed wire type key of the concrete kind
	Type() string
	// ID returns the server-assigned id or ErrUnconfiguredID
	ID() (string, error)
	// HasID reports whether an id has been assigned
	HasID() bool
	// Attributes returns the live attribute bag
	Attributes() Attributes
	// Relations returns the relationship cache owned by this entity
	Relations() *Relations
	// Payload returns the write payload sent on mutating requests
	Payload() map[string]interface{}

	core() *Base
}

// Base carries the state shared by all entities. The zero value is an entity
// without id, as created by application code for create-style requests.
type Base struct {
	id         string
	attributes Attributes
	relations  *Relations
}

// NewBase returns a Base with an id already assigned
func NewBase(id string) Base {
	return Base{id: id}
}

// ID returns the id or ErrUnconfiguredID if none was assigned yet
func (b *Base) ID() (string, error) {
	if b.id == "" {
		return "", ErrUnconfiguredID
	}
	return b.id, nil
}

// HasID reports whether an id has been assigned
func (b *Base) HasID() bool {
	return b.id != ""
}

// Attributes returns the live attribute bag
func (b *Base) Attributes() Attributes {
	if b.attributes == nil {
		b.attributes = make(Attributes)
	}
	return b.attributes
}

// Relations returns the relationship cache
func (b *Base) Relations() *Relations {
	if b.relations == nil {
		b.relations = NewRelations()
	}
	return b.relations
}

// Payload returns a copy of the attribute bag. Id and relationships are never
// part of the payload.
func (b *Base) Payload() map[string]interface{} {
	payload := make(map[string]interface{}, len(b.attributes))
	for k, v := range b.attributes {
		payload[k] = v
	}
	return payload
}

func (b *Base) core() *Base {
	return b
}

// assignID sets the id unless a different one is already present
func (b *Base) assignID(id string) error {
	if b.id != "" && b.id != id {
		return ErrIDReassigned
	}
	b.id = id
	return nil
}

// replaceAttributes clears the bag and copies src into it
func (b *Base) replaceAttributes(src map[string]interface{}) {
	attrs := b.Attributes()
	for k := range attrs {
		delete(attrs, k)
	}
	for k, v := range src {
		attrs[k] = v
	}
}

// MustID returns the id and panics when it is unassigned
func MustID(e Entity) string {
	id, err := e.ID()
	if err != nil {
		panic(err)
	}
	return id
}
