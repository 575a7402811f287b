package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
)

const maxTxRetries = 16

// Store implements docstore.Store on Redis. Each document is a JSON string at
// doc:{collection}:{id}; docs:{collection} is a set of the collection's ids.
// Queries load the whole collection and evaluate filters in process.
type Store struct {
	client *redis.Client
	newID  func() string
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client, newID: uuid.NewString}
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	raw, err := s.client.Get(ctx, docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	if err != nil {
		return docstore.Document{}, backendError(err)
	}
	data, err := decodeData(raw)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Data: data}, nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	ids, err := s.client.SMembers(ctx, indexKey(collection)).Result()
	if err != nil {
		return nil, backendError(err)
	}
	if len(ids) == 0 {
		return []docstore.Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(collection, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, backendError(err)
	}

	docs := make([]docstore.Document, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// index entry outlived its document
			continue
		}
		data, err := decodeData([]byte(str))
		if err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Document{ID: ids[i], Data: data})
	}
	return docstore.Evaluate(docs, q), nil
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	id := s.newID()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, docKey(collection, id), raw, 0)
		pipe.SAdd(ctx, indexKey(collection), id)
		return nil
	})
	if err != nil {
		return "", backendError(err)
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any, opts ...docstore.SetOption) error {
	if !docstore.IsMerge(opts) {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		return s.write(ctx, collection, id, raw)
	}

	patch, err := docstore.Normalize(data)
	if err != nil {
		return err
	}
	return s.modify(ctx, collection, id, func(existing map[string]any, found bool) (map[string]any, error) {
		if !found {
			return patch, nil
		}
		docstore.MergeInto(existing, patch)
		return existing, nil
	})
}

func (s *Store) Update(ctx context.Context, collection, id string, updates []docstore.Update) error {
	return s.modify(ctx, collection, id, func(existing map[string]any, found bool) (map[string]any, error) {
		if !found {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
		}
		if err := docstore.ApplyUpdates(existing, updates); err != nil {
			return nil, err
		}
		return existing, nil
	})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, docKey(collection, id))
		pipe.SRem(ctx, indexKey(collection), id)
		return nil
	})
	if err != nil {
		return backendError(err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, collection, id string, raw []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, docKey(collection, id), raw, 0)
		pipe.SAdd(ctx, indexKey(collection), id)
		return nil
	})
	if err != nil {
		return backendError(err)
	}
	return nil
}

// modify runs a read-modify-write under WATCH, retrying when another writer
// touched the document in between.
func (s *Store) modify(ctx context.Context, collection, id string, fn func(existing map[string]any, found bool) (map[string]any, error)) error {
	key := docKey(collection, id)
	var fnErr error
	txf := func(tx *redis.Tx) error {
		var (
			existing map[string]any
			found    bool
		)
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return backendError(err)
		default:
			if existing, err = decodeData(raw); err != nil {
				return err
			}
			found = true
		}

		next, err := fn(existing, found)
		if err != nil {
			fnErr = err
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			pipe.SAdd(ctx, indexKey(collection), id)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		fnErr = nil
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case fnErr != nil, errors.Is(err, domain.ErrUnavailable):
			return err
		default:
			return backendError(err)
		}
	}
	return fmt.Errorf("%s/%s: too much contention: %w", collection, id, domain.ErrUnavailable)
}

func decodeData(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// backendError maps a go-redis failure onto a domain sentinel. ACL
// rejections come back as NOPERM replies.
func backendError(err error) error {
	if strings.HasPrefix(err.Error(), "NOPERM") {
		return fmt.Errorf("redis: %w: %w", domain.ErrPermissionDenied, err)
	}
	return fmt.Errorf("redis: %w: %w", domain.ErrUnavailable, err)
}

func docKey(collection, id string) string {
	return "doc:" + collection + ":" + id
}

func indexKey(collection string) string {
	return "docs:" + collection
}
