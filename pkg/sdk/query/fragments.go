package query

import (
	"fmt"
	"strings"
)

// Fragment is one serialisable piece of a query string. Fragments are
// immutable once constructed; an empty String is dropped by the builder.
type Fragment interface {
	String() string
}

// Operator is a comparison operator accepted by Where
type Operator string

const (
	OpEqual              Operator = "=="
	OpAssign             Operator = "="
	OpNotEqual           Operator = "!="
	OpLessThan           Operator = "<"
	OpGreaterThan        Operator = ">"
	OpLessThanOrEqual    Operator = "<="
	OpGreaterThanOrEqual Operator = ">="
	OpLike               Operator = "~="
	OpLikeWord           Operator = "like"
)

// IsSearch reports whether the operator produces a fuzzy search fragment
func (o Operator) IsSearch() bool {
	return o == OpLike || o == OpLikeWord
}

// wire returns the filter operator name; unknown operators compare for equality
func (o Operator) wire() string {
	switch o {
	case OpNotEqual:
		return "ne"
	case OpLessThan:
		return "lt"
	case OpGreaterThan:
		return "gt"
	case OpLessThanOrEqual:
		return "le"
	case OpGreaterThanOrEqual:
		return "ge"
	default:
		return "eq"
	}
}

// Direction is a sort direction
type Direction string

const (
	Asc        Direction = "asc"
	Ascending  Direction = "ascending"
	Desc       Direction = "desc"
	Descending Direction = "descending"
)

func (d Direction) prefix() string {
	if d == Desc || d == Descending {
		return "-"
	}
	return ""
}

// encoder is implemented by fragments that escape their own values; the rest
// are escaped as a whole with EncodeURI
type encoder interface {
	encode() string
}

func encodeFragment(f Fragment) string {
	if e, ok := f.(encoder); ok {
		return e.encode()
	}
	return EncodeURI(f.String())
}

type filterFragment struct {
	target   string
	field    string
	operator string
	value    string
}

func (f filterFragment) String() string {
	return fmt.Sprintf("filter[%s.%s][%s]=%s", f.target, f.field, f.operator, f.value)
}

func (f filterFragment) encode() string {
	return fmt.Sprintf("filter[%s.%s][%s]=%s",
		EncodeURIComponent(f.target), EncodeURIComponent(f.field), f.operator, EncodeURIComponent(f.value))
}

type searchFragment struct {
	target string
	field  string
	value  string
}

func (f searchFragment) String() string {
	return fmt.Sprintf("query[%s.%s]=%s", f.target, f.field, f.value)
}

func (f searchFragment) encode() string {
	return fmt.Sprintf("query[%s.%s]=%s",
		EncodeURIComponent(f.target), EncodeURIComponent(f.field), EncodeURIComponent(f.value))
}

// listFragment renders name=a,b,c and nothing at all for an empty list
type listFragment struct {
	name  string
	items []string
}

func newListFragment(name string, items []string) listFragment {
	list := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			list = append(list, item)
		}
	}
	return listFragment{name: name, items: list}
}

func (f listFragment) String() string {
	if len(f.items) == 0 {
		return ""
	}
	return f.name + "=" + strings.Join(f.items, ",")
}

type sortFragment struct {
	direction Direction
	target    string
	field     string
}

func (f sortFragment) String() string {
	return fmt.Sprintf("sort=%s.%s%s", f.target, f.direction.prefix(), f.field)
}

type pageFragment struct {
	count int
	size  int
}

func (f pageFragment) String() string {
	return fmt.Sprintf("page[count]=%d&page[size]=%d", f.count, f.size)
}

// joinFragment carries the serialised fragments of another builder verbatim
type joinFragment struct {
	query   string
	encoded string
}

func (f joinFragment) String() string {
	return f.query
}

func (f joinFragment) encode() string {
	return f.encoded
}
