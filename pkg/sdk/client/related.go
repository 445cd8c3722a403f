package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/conduit-lang/conduit-sdk/pkg/sdk/apierr"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/entity"
)

// Related returns owner's relations of relatedType that match pred. Relations
// already in the owner's cache are served from it; otherwise they are fetched
// from <url>/<ownerType>/<ownerId>/<relatedType> and cached, an empty result
// included. A failed fetch leaves the cache untouched.
func (s *Service) Related(ctx context.Context, owner entity.Entity, relatedType string, pred entity.Predicate) ([]entity.Entity, error) {
	if owner.Relations().Fetched(relatedType) {
		return owner.Relations().Get(relatedType, pred), nil
	}

	id, err := owner.ID()
	if err != nil {
		return nil, s.fail(apierr.Wrap(apierr.KindRuntime, err, "Runtime Error",
			fmt.Sprintf("cannot fetch %s relations of a %s without an id", relatedType, owner.Type())))
	}

	prototype, ok := s.registry.NewInstance(relatedType)
	if !ok {
		return nil, s.fail(apierr.Newf(apierr.KindUnknownType, "Runtime Error",
			"runtime could not create a new instance of object type %s", relatedType))
	}

	req, apiErr := s.build(http.MethodGet, owner.Type()+"/"+id+"/"+relatedType, nil, nil)
	if apiErr != nil {
		return nil, s.fail(apiErr)
	}

	results, apiErr := s.execute(ctx, req, prototype)
	if apiErr != nil {
		return nil, s.fail(apiErr)
	}

	owner.Relations().Put(relatedType, results)
	return owner.Relations().Get(relatedType, pred), nil
}

// RelatedFirst returns the first relation of relatedType that matches pred, or nil
func (s *Service) RelatedFirst(ctx context.Context, owner entity.Entity, relatedType string, pred entity.Predicate) (entity.Entity, error) {
	results, err := s.Related(ctx, owner, relatedType, pred)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return results[0], nil
}
