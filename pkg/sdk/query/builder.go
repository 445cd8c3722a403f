// Package query composes the query string of an SDK request from ordered
// fragments: filters, fuzzy searches, sparse fields, includes, contains and
// deleted scopes, sorting and pagination.
//
// Serialisation is deterministic: fragments are joined with '&' in the order
// the builder calls were made, so the same calls always produce the same
// request (and the same response cache key).
//
//	q := query.New(&Article{}).
//	    Where("title", query.OpLike, "go").
//	    Include(&Person{}).
//	    Sort(query.Desc, "created").
//	    Page(0, 20)
//	q.String() // query[article.title]=go&include=article.person&sort=article.-created&page[count]=0&page[size]=20
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPageSize is used when Page is called with a non-positive size
	DefaultPageSize = 10
)

// Typed is anything that reports a wire type key; every entity.Entity does
type Typed interface {
	Type() string
}

// Builder accumulates fragments against an owner type
type Builder struct {
	owner     string
	fragments []Fragment
}

// New creates a builder whose filters, fields and sorts target owner's type
func New(owner Typed) *Builder {
	return ForType(owner.Type())
}

// ForType creates a builder for a type key
func ForType(typeKey string) *Builder {
	return &Builder{owner: typeKey}
}

// Owner returns the type key the builder targets
func (b *Builder) Owner() string {
	return b.owner
}

// Where adds a filter fragment, or a search fragment for OpLike / OpLikeWord
func (b *Builder) Where(field string, op Operator, value interface{}) *Builder {
	if op.IsSearch() {
		return b.add(searchFragment{target: b.owner, field: field, value: formatValue(value)})
	}
	return b.add(filterFragment{target: b.owner, field: field, operator: op.wire(), value: formatValue(value)})
}

// Fields restricts the attributes returned for the owner type
func (b *Builder) Fields(fields ...string) *Builder {
	return b.add(newListFragment(fmt.Sprintf("fields[%s]", b.owner), fields))
}

// Include requests related types, expanded to <owner>.<related>
func (b *Builder) Include(related ...Typed) *Builder {
	paths := make([]string, 0, len(related))
	for _, r := range related {
		paths = append(paths, b.owner+"."+r.Type())
	}
	return b.add(newListFragment("include", paths))
}

// IncludePaths requests relations by raw dotted path, used as given
func (b *Builder) IncludePaths(paths ...string) *Builder {
	return b.add(newListFragment("include", paths))
}

// IncludeQuery includes the owner type of each nested builder and absorbs
// the nested fragments, scoping the included relation in the same request
func (b *Builder) IncludeQuery(nested ...*Builder) *Builder {
	paths := make([]string, 0, len(nested))
	for _, n := range nested {
		paths = append(paths, b.owner+"."+n.owner)
	}
	b.add(newListFragment("include", paths))
	return b.Join(nested...)
}

// Contains keeps records related to all of the given types
func (b *Builder) Contains(related ...Typed) *Builder {
	return b.ContainsOp(OpEqual, related...)
}

// NotContains keeps records not related to the given types
func (b *Builder) NotContains(related ...Typed) *Builder {
	return b.ContainsOp(OpNotEqual, related...)
}

// ContainsOp adds a contains fragment; only OpNotEqual negates
func (b *Builder) ContainsOp(op Operator, related ...Typed) *Builder {
	name := "contains[eq]"
	if op == OpNotEqual {
		name = "contains[ne]"
	}
	return b.add(newListFragment(name, typeKeys(related)))
}

// Deleted includes soft-deleted records of the given types
func (b *Builder) Deleted(related ...Typed) *Builder {
	return b.add(newListFragment("deleted", typeKeys(related)))
}

// Sort orders by a field of the owner type
func (b *Builder) Sort(direction Direction, field string) *Builder {
	return b.add(sortFragment{direction: direction, target: b.owner, field: field})
}

// Page selects a page. A non-positive size falls back to DefaultPageSize and a
// negative count to zero.
func (b *Builder) Page(count, size int) *Builder {
	if count < 0 {
		count = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return b.add(pageFragment{count: count, size: size})
}

// Join absorbs the current serialised form of other builders
func (b *Builder) Join(others ...*Builder) *Builder {
	for _, o := range others {
		b.add(joinFragment{query: o.String(), encoded: o.Encode()})
	}
	return b
}

// Fragments returns a copy of the fragments in declaration order
func (b *Builder) Fragments() []Fragment {
	out := make([]Fragment, len(b.fragments))
	copy(out, b.fragments)
	return out
}

// Len returns the number of fragments added so far
func (b *Builder) Len() int {
	return len(b.fragments)
}

// Clone returns an independent builder with the same owner and fragments
func (b *Builder) Clone() *Builder {
	return &Builder{owner: b.owner, fragments: b.Fragments()}
}

// String joins the non-empty fragments with '&'. An empty builder yields "".
func (b *Builder) String() string {
	parts := make([]string, 0, len(b.fragments))
	for _, f := range b.fragments {
		if s := f.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "&")
}

// Encode returns the query escaped for use as a raw URL query. Filter and
// search values are escaped as URI components; the rest of each fragment
// keeps its brackets and separators readable.
func (b *Builder) Encode() string {
	parts := make([]string, 0, len(b.fragments))
	for _, f := range b.fragments {
		if f.String() == "" {
			continue
		}
		parts = append(parts, encodeFragment(f))
	}
	return strings.Join(parts, "&")
}

func (b *Builder) add(f Fragment) *Builder {
	b.fragments = append(b.fragments, f)
	return b
}

func typeKeys(typed []Typed) []string {
	keys := make([]string, 0, len(typed))
	for _, t := range typed {
		keys = append(keys, t.Type())
	}
	return keys
}

// formatValue renders a filter value; times use the millisecond ISO-8601 form in UTC
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.UTC().Format("2006-01-02T15:04:05.000Z")
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format("2006-01-02T15:04:05.000Z")
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
