// Package loaders batches reference name lookups with dataloader.
package loaders

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
)

const (
	defaultWait     = 2 * time.Millisecond
	defaultCapacity = 200
)

type referenceKey struct {
	Kind entities.ReferenceKind
	ID   string
}

// ReferenceLoader resolves category and service display names. Lookups issued
// within the same batch window share one GetNames call per kind. Results are
// not cached between batches, so renames are picked up immediately.
type ReferenceLoader struct {
	loader *dataloader.Loader[referenceKey, string]
}

// NewReferenceLoader creates a new reference loader
func NewReferenceLoader(refs repositories.ReferenceRepository) *ReferenceLoader {
	batch := func(ctx context.Context, keys []referenceKey) []*dataloader.Result[string] {
		byKind := make(map[entities.ReferenceKind][]string)
		for _, k := range keys {
			byKind[k.Kind] = append(byKind[k.Kind], k.ID)
		}

		names := make(map[referenceKey]string, len(keys))
		failed := make(map[entities.ReferenceKind]error)
		for kind, ids := range byKind {
			found, err := refs.GetNames(ctx, kind, ids)
			if err != nil {
				failed[kind] = err
				continue
			}
			for id, name := range found {
				names[referenceKey{Kind: kind, ID: id}] = name
			}
		}

		results := make([]*dataloader.Result[string], len(keys))
		for i, k := range keys {
			if err, ok := failed[k.Kind]; ok {
				results[i] = &dataloader.Result[string]{Error: err}
				continue
			}
			// Unknown ids resolve to an empty name
			results[i] = &dataloader.Result[string]{Data: names[k]}
		}
		return results
	}

	return &ReferenceLoader{
		loader: dataloader.NewBatchedLoader(batch,
			dataloader.WithWait[referenceKey, string](defaultWait),
			dataloader.WithBatchCapacity[referenceKey, string](defaultCapacity),
			dataloader.WithCache[referenceKey, string](&dataloader.NoCache[referenceKey, string]{}),
		),
	}
}

// Name returns the display name of id, or "" when id is empty or unknown
func (l *ReferenceLoader) Name(ctx context.Context, kind entities.ReferenceKind, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	return l.loader.Load(ctx, referenceKey{Kind: kind, ID: id})()
}

// Names returns the display names of ids in order, skipping unknown ones
func (l *ReferenceLoader) Names(ctx context.Context, kind entities.ReferenceKind, ids []string) ([]string, error) {
	keys := make([]referenceKey, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			keys = append(keys, referenceKey{Kind: kind, ID: id})
		}
	}
	if len(keys) == 0 {
		return []string{}, nil
	}

	values, errs := l.loader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			names = append(names, v)
		}
	}
	return names, nil
}
