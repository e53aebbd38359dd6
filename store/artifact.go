package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/warriorguo/wfcompiler/utils"
)

const (
	ArtifactPrefix = "/artifact/"
)

// artifactSpace namespaces the name based keys of cached artifacts.
var artifactSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/warriorguo/wfcompiler/artifact"))

// ArtifactKey derives the cache key of a compilation from its canonical input:
// equal inputs always map to the same key.
func ArtifactKey(canonical []byte) string {
	return uuid.NewSHA1(artifactSpace, canonical).String()
}

// ArtifactCache stores serialized artifacts under ArtifactPrefix.
type ArtifactCache struct {
	store Store
}

func NewArtifactCache(s Store) *ArtifactCache {
	return &ArtifactCache{store: s}
}

func (c *ArtifactCache) Store() Store {
	return c.store
}

// Load decodes the artifact of key into v, reporting false on a miss.
func (c *ArtifactCache) Load(ctx context.Context, key string, v any) (bool, error) {
	b, err := c.store.Get(ctx, ArtifactPrefix, key)
	if err != nil {
		return false, errors.Annotatef(err, "load artifact %s", key)
	}
	if b == nil {
		return false, nil
	}
	if err := utils.Unserialize(b, v); err != nil {
		return false, errors.Annotatef(err, "decode artifact %s", key)
	}
	return true, nil
}

func (c *ArtifactCache) Save(ctx context.Context, key string, v any) error {
	b, err := utils.Serialize(v)
	if err != nil {
		return errors.Annotatef(err, "encode artifact %s", key)
	}
	return errors.Annotatef(c.store.Set(ctx, ArtifactPrefix, key, b), "save artifact %s", key)
}

func (c *ArtifactCache) Keys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0)
	err := c.store.List(ctx, ArtifactPrefix, func(key string) bool {
		keys = append(keys, key)
		return true
	})
	if err != nil {
		return nil, errors.Annotatef(err, "list artifacts")
	}
	return keys, nil
}

// Purge removes every cached artifact and returns how many were dropped.
func (c *ArtifactCache) Purge(ctx context.Context) (int, error) {
	keys, err := c.Keys(ctx)
	if err != nil {
		return 0, errors.Trace(err)
	}
	for i, key := range keys {
		if err := c.store.Remove(ctx, ArtifactPrefix, key); err != nil {
			return i, errors.Annotatef(err, "remove artifact %s", key)
		}
	}
	return len(keys), nil
}
