package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"s3mirror/internal/mirror"
)

// Index operation names used by RecordingIndex.
const (
	OpUpsert = "upsert"
	OpRemove = "remove"
)

// RecordingIndex is a map-backed metadata index that records every call and
// can be told to fail specific operations.
type RecordingIndex struct {
	mu      sync.Mutex
	records map[string]mirror.Record
	log     *CallLog
	fail    failures
}

var _ mirror.MetadataIndex = (*RecordingIndex)(nil)

// NewRecordingIndex creates a RecordingIndex that records into log.
func NewRecordingIndex(log *CallLog) *RecordingIndex {
	return &RecordingIndex{
		records: make(map[string]mirror.Record),
		log:     log,
	}
}

// FailOn makes op fail with err for key ("*" matches every key). A nil err
// clears the failure.
func (x *RecordingIndex) FailOn(op, key string, err error) {
	x.fail.set(op, key, err)
}

func (x *RecordingIndex) UpsertRecord(_ context.Context, key, locator string, modifiedAt time.Time) error {
	x.log.add(Call{System: "index", Op: OpUpsert, Key: key})
	if err := x.fail.get(OpUpsert, key); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.records[key] = mirror.Record{Key: key, Locator: locator, LastModified: modifiedAt}
	return nil
}

func (x *RecordingIndex) RemoveRecord(_ context.Context, key string) error {
	x.log.add(Call{System: "index", Op: OpRemove, Key: key})
	if err := x.fail.get(OpRemove, key); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.records, key)
	return nil
}

func (x *RecordingIndex) FindRecord(_ context.Context, key string) (*mirror.Record, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	rec, ok := x.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Keys returns the indexed keys in sorted order.
func (x *RecordingIndex) Keys() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	keys := make([]string, 0, len(x.records))
	for k := range x.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
