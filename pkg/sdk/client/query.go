package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/conduit-lang/conduit-sdk/pkg/sdk/apierr"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/entity"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/query"
)

// Query binds a query builder to a service and a hydration target. It can be
// aborted at any time; once aborted every pending and future fetch of the
// query ends with an aborted error.
type Query struct {
	builder *query.Builder
	svc     *Service
	target  entity.Entity

	done  context.Context
	abort context.CancelCauseFunc
}

// NewQuery creates a query against svc whose results hydrate target
func NewQuery(svc *Service, target entity.Entity) *Query {
	done, abort := context.WithCancelCause(context.Background())
	return &Query{
		builder: query.New(target),
		svc:     svc,
		target:  target,
		done:    done,
		abort:   abort,
	}
}

// NewDefaultQuery creates a query against the process-wide default service
func NewDefaultQuery(target entity.Entity) (*Query, error) {
	svc, err := Default()
	if err != nil {
		return nil, err
	}
	return NewQuery(svc, target), nil
}

// Target returns the hydration target
func (q *Query) Target() entity.Entity {
	return q.target
}

// Service returns the service the query runs against
func (q *Query) Service() *Service {
	return q.svc
}

// Builder returns the underlying query builder
func (q *Query) Builder() *query.Builder {
	return q.builder
}

// String returns the serialised query string
func (q *Query) String() string {
	return q.builder.String()
}

func (q *Query) Where(field string, op query.Operator, value interface{}) *Query {
	q.builder.Where(field, op, value)
	return q
}

func (q *Query) Fields(fields ...string) *Query {
	q.builder.Fields(fields...)
	return q
}

func (q *Query) Include(related ...query.Typed) *Query {
	q.builder.Include(related...)
	return q
}

func (q *Query) IncludePaths(paths ...string) *Query {
	q.builder.IncludePaths(paths...)
	return q
}

// IncludeQuery includes the target type of each nested query and absorbs its fragments
func (q *Query) IncludeQuery(nested ...*Query) *Query {
	q.builder.IncludeQuery(builders(nested)...)
	return q
}

func (q *Query) Contains(related ...query.Typed) *Query {
	q.builder.Contains(related...)
	return q
}

func (q *Query) NotContains(related ...query.Typed) *Query {
	q.builder.NotContains(related...)
	return q
}

func (q *Query) Deleted(related ...query.Typed) *Query {
	q.builder.Deleted(related...)
	return q
}

func (q *Query) Sort(direction query.Direction, field string) *Query {
	q.builder.Sort(direction, field)
	return q
}

func (q *Query) Page(count, size int) *Query {
	q.builder.Page(count, size)
	return q
}

// Join absorbs the fragments of other queries as they are now
func (q *Query) Join(others ...*Query) *Query {
	q.builder.Join(builders(others)...)
	return q
}

func builders(queries []*Query) []*query.Builder {
	out := make([]*query.Builder, 0, len(queries))
	for _, o := range queries {
		out = append(out, o.builder)
	}
	return out
}

// Abort cancels pending and future fetches of this query. The reason, when
// given, is carried in the aborted error text.
func (q *Query) Abort(reason string) {
	if reason == "" {
		q.abort(nil)
		return
	}
	q.abort(errors.New(reason))
}

// Aborted reports whether Abort has been called
func (q *Query) Aborted() bool {
	return q.done.Err() != nil
}

// Fetch runs the query with method against path. An ":id" segment in path is
// replaced with the target's id.
func (q *Query) Fetch(ctx context.Context, method, path string) ([]entity.Entity, error) {
	if q.Aborted() {
		return nil, q.svc.fail(aborted(q.done))
	}
	path, apiErr := q.expand(path)
	if apiErr != nil {
		return nil, q.svc.fail(apiErr)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := context.AfterFunc(q.done, func() {
		cancel(context.Cause(q.done))
	})
	defer stop()

	return q.svc.Execute(ctx, method, path, q.builder, q.target)
}

// One runs Fetch and returns the first result, or nil when there is none
func (q *Query) One(ctx context.Context, method, path string) (entity.Entity, error) {
	results, err := q.Fetch(ctx, method, path)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return results[0], nil
}

// Get fetches the target type collection, or the target itself when it has an id
func (q *Query) Get(ctx context.Context) ([]entity.Entity, error) {
	return q.Fetch(ctx, http.MethodGet, q.resourcePath())
}

// Post creates the target from its payload
func (q *Query) Post(ctx context.Context) ([]entity.Entity, error) {
	return q.Fetch(ctx, http.MethodPost, q.target.Type())
}

// Put replaces the target with its payload
func (q *Query) Put(ctx context.Context) ([]entity.Entity, error) {
	return q.Fetch(ctx, http.MethodPut, q.target.Type()+"/:id")
}

// Patch updates the target with its payload
func (q *Query) Patch(ctx context.Context) ([]entity.Entity, error) {
	return q.Fetch(ctx, http.MethodPatch, q.target.Type()+"/:id")
}

// Delete removes the target
func (q *Query) Delete(ctx context.Context) ([]entity.Entity, error) {
	return q.Fetch(ctx, http.MethodDelete, q.target.Type()+"/:id")
}

func (q *Query) resourcePath() string {
	if q.target.HasID() {
		return q.target.Type() + "/:id"
	}
	return q.target.Type()
}

func (q *Query) expand(path string) (string, *apierr.Error) {
	if !strings.Contains(path, ":id") {
		return path, nil
	}
	id, err := q.target.ID()
	if err != nil {
		return "", apierr.Wrap(apierr.KindRuntime, err, "Runtime Error",
			"cannot build "+path+" for a "+q.target.Type()+" without an id")
	}
	return strings.ReplaceAll(path, ":id", id), nil
}
