package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/conduit-sdk/pkg/sdk/apierr"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/entity"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/wire"
)

type uploadRequest struct {
	Data struct {
		Attributes struct {
			Key      string `json:"key"`
			Filename string `json:"filename"`
		} `json:"attributes"`
	} `json:"data"`
}

// Upload stores content as the file attribute key of owner. It asks the
// backend for a signed upload URL, PUTs the content there and then fetches
// the resulting file record, which is returned as an entity of the file
// type. The owner's cached relations of that type are cleared.
func (s *Service) Upload(ctx context.Context, owner entity.Entity, key, filename string, content io.Reader) (entity.Entity, error) {
	file, apiErr := s.upload(ctx, owner, key, filename, content)
	if apiErr != nil {
		return nil, s.fail(apiErr)
	}
	return file, nil
}

func (s *Service) upload(ctx context.Context, owner entity.Entity, key, filename string, content io.Reader) (entity.Entity, *apierr.Error) {
	id, err := owner.ID()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindRuntime, err, "Runtime Error",
			"cannot upload a file using an uninitialized instance")
	}

	var payload uploadRequest
	payload.Data.Attributes.Key = key
	payload.Data.Attributes.Filename = filename
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apierr.From(err)
	}

	// Ask for the signed location of the file
	grant := &request{
		method:    http.MethodPost,
		url:       s.baseURL + "/" + owner.Type() + "/" + id + "/upload",
		body:      body,
		requestID: uuid.NewString(),
	}
	raw, apiErr := s.send(ctx, grant)
	if apiErr != nil {
		return nil, apiErr
	}
	env, apiErr := parse(raw)
	if apiErr != nil {
		return nil, apiErr
	}

	var location string
	rec := &wire.Record{}
	if len(env.Data.Records) > 0 && env.Data.Records[0] != nil {
		rec = env.Data.Records[0]
		location, _ = rec.Attributes["url"].(string)
	}
	if rec.ID == "" || rec.Type == "" || location == "" {
		return nil, apierr.New(apierr.KindMalformedPayload, "Runtime Error",
			"upload response must carry the file id, type and url")
	}

	if apiErr := s.putContent(ctx, location, content); apiErr != nil {
		return nil, apiErr
	}

	file, ok := s.registry.NewInstance(rec.Type)
	if !ok {
		return nil, apierr.Newf(apierr.KindUnknownType, "Runtime Error",
			"runtime could not create a new instance of object type %s", rec.Type)
	}

	refresh, apiErr := s.build(http.MethodGet, rec.Type+"/"+rec.ID, nil, nil)
	if apiErr != nil {
		return nil, apiErr
	}
	if _, apiErr := s.execute(ctx, refresh, file); apiErr != nil {
		return nil, apiErr
	}

	owner.Relations().Clear(rec.Type)
	return file, nil
}

// putContent writes the file to its signed location. The location carries
// its own authorisation so no SDK credentials are attached.
func (s *Service) putContent(ctx context.Context, location string, content io.Reader) *apierr.Error {
	if ctx.Err() != nil {
		return aborted(ctx)
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return apierr.Wrap(apierr.KindRuntime, err, "Runtime Error",
			fmt.Sprintf("failed to read upload content, details - %s", err.Error()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, location, bytes.NewReader(data))
	if err != nil {
		return apierr.Wrap(apierr.KindRuntime, err, "Runtime Error",
			fmt.Sprintf("invalid upload location %s", location))
	}

	s.logger.Debug("uploading file content", zap.String("url", location), zap.Int("bytes", len(data)))

	resp, err := s.http.Do(req)
	if err != nil {
		return s.classifyFailure(ctx, http.MethodPut, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierr.Newf(apierr.KindTransport, "Network Error",
			"file upload failed with status %d", resp.StatusCode).WithStatus(resp.StatusCode)
	}
	return nil
}
