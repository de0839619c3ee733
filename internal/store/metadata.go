package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	storeerrors "github.com/apmoronez/dogbot/internal/errors"
	"github.com/apmoronez/dogbot/internal/kv"
	"github.com/apmoronez/dogbot/internal/model"
)

// MetadataStore keeps flat JSON documents for one collection in a single
// hash keyed by document id
type MetadataStore struct {
	engine kv.Engine
	key    string
	kind   string
}

// NewMetadataStore creates the metadata store for collection under namespace
func NewMetadataStore(engine kv.Engine, namespace, collection string) *MetadataStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &MetadataStore{
		engine: engine,
		key:    namespace + ":slackdata:" + collection,
		kind:   collection,
	}
}

// Get loads one document
func (s *MetadataStore) Get(ctx context.Context, id string) (model.Document, error) {
	raw, err := s.engine.HGet(ctx, s.key, id)
	if errors.Is(err, kv.ErrNil) {
		return nil, storeerrors.NotFound(s.kind, id)
	}
	if err != nil {
		return nil, storeerrors.Engine("could not read "+s.kind, err)
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, storeerrors.Internal(fmt.Sprintf("corrupt %s document %q", s.kind, id), err)
	}
	return doc, nil
}

// Save upserts a document; it must carry an id
func (s *MetadataStore) Save(ctx context.Context, doc model.Document) error {
	id := doc.ID()
	if id == "" {
		return storeerrors.Validation("id", "the given object must have an id property")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return storeerrors.Validation("document", fmt.Sprintf("not serializable: %v", err))
	}

	if err := s.engine.HSet(ctx, s.key, map[string]string{id: string(data)}); err != nil {
		return storeerrors.Engine("could not save "+s.kind, err)
	}
	return nil
}

// All returns every document, ordered by id
func (s *MetadataStore) All(ctx context.Context) ([]model.Document, error) {
	byID, err := s.AllByID(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, nil
}

// AllByID returns every document keyed by id
func (s *MetadataStore) AllByID(ctx context.Context) (map[string]model.Document, error) {
	raw, err := s.engine.HGetAll(ctx, s.key)
	if err != nil {
		return nil, storeerrors.Engine("could not read "+s.kind, err)
	}

	out := make(map[string]model.Document, len(raw))
	for id, data := range raw {
		var doc model.Document
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, storeerrors.Internal(fmt.Sprintf("corrupt %s document %q", s.kind, id), err)
		}
		out[id] = doc
	}
	return out, nil
}
