package mem

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/warriorguo/wfcompiler/store"
	"github.com/warriorguo/wfcompiler/utils"
)

var (
	_ store.Store = &memStore{}
)

func NewMemStore() store.Store {
	return &memStore{
		buckets: make(map[string]map[string][]byte),
		// setup no error as default
		mockErrHandler: defaultNoErr,
	}
}

// NewMemStoreWithErrHandler returns a store failing every call errHandler fails,
// for exercising cache failure paths.
func NewMemStoreWithErrHandler(errHandler func() error) store.Store {
	return &memStore{
		buckets:        make(map[string]map[string][]byte),
		mockErrHandler: errHandler,
	}
}

func defaultNoErr() error {
	return nil
}

/**
 * memStore keeps artifacts in process memory, one bucket per prefix.
 * Values are copied on the way in and out.
 */
type memStore struct {
	mu sync.RWMutex

	mockErrHandler func() error

	buckets map[string]map[string][]byte
}

func (m *memStore) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sb := &strings.Builder{}
	sb.WriteString("\n----------\n")
	for _, prefix := range utils.SortedKeys(m.buckets) {
		for _, key := range utils.SortedKeys(m.buckets[prefix]) {
			sb.WriteString(fmt.Sprintf("%s%s: %d bytes\n", prefix, key, len(m.buckets[prefix][key])))
		}
	}
	sb.WriteString("----------\n")
	return sb.String()
}

func (m *memStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	if err := m.mockErrHandler(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.buckets[prefix][key]
	if !exists {
		return nil, nil
	}
	return append([]byte{}, value...), nil
}

func (m *memStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	if err := m.mockErrHandler(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, exists := m.buckets[prefix]
	if !exists {
		bucket = make(map[string][]byte)
		m.buckets[prefix] = bucket
	}
	bucket[key] = append([]byte{}, value...)
	return nil
}

func (m *memStore) Remove(ctx context.Context, prefix, key string) error {
	if err := m.mockErrHandler(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets[prefix], key)
	if len(m.buckets[prefix]) == 0 {
		delete(m.buckets, prefix)
	}
	return nil
}

func (m *memStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	if err := m.mockErrHandler(); err != nil {
		return err
	}
	m.mu.RLock()
	keys := utils.SortedKeys(m.buckets[prefix])
	m.mu.RUnlock()

	for _, key := range keys {
		if !iterator(key) {
			break
		}
	}
	return nil
}
