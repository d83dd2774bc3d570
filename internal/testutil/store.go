package testutil

import (
	"context"
	"io"

	"s3mirror/internal/mirror"
	"s3mirror/internal/objectstore"
)

// Store operation names used by RecordingStore.
const (
	OpPut       = "put"
	OpPutMarker = "put-marker"
	OpDelete    = "delete"
)

// RecordingStore is an in-memory object store that records every call and
// can be told to fail specific operations.
type RecordingStore struct {
	*objectstore.MemoryStore
	log  *CallLog
	fail failures
}

var _ mirror.ObjectStore = (*RecordingStore)(nil)

// NewRecordingStore creates a RecordingStore that records into log.
func NewRecordingStore(log *CallLog) *RecordingStore {
	return &RecordingStore{
		MemoryStore: objectstore.NewMemoryStore("test-bucket"),
		log:         log,
	}
}

// FailOn makes op fail with err for key ("*" matches every key). A nil err
// clears the failure.
func (s *RecordingStore) FailOn(op, key string, err error) {
	s.fail.set(op, key, err)
}

func (s *RecordingStore) PutObject(ctx context.Context, key string, r io.Reader) error {
	s.log.add(Call{System: "store", Op: OpPut, Key: key})
	if err := s.fail.get(OpPut, key); err != nil {
		// Drain like a real upload so the source is read.
		io.Copy(io.Discard, r)
		return err
	}
	return s.MemoryStore.PutObject(ctx, key, r)
}

func (s *RecordingStore) PutMarker(ctx context.Context, key string) error {
	s.log.add(Call{System: "store", Op: OpPutMarker, Key: key})
	if err := s.fail.get(OpPutMarker, key); err != nil {
		return err
	}
	return s.MemoryStore.PutMarker(ctx, key)
}

func (s *RecordingStore) DeleteObject(ctx context.Context, key string) error {
	s.log.add(Call{System: "store", Op: OpDelete, Key: key})
	if err := s.fail.get(OpDelete, key); err != nil {
		return err
	}
	return s.MemoryStore.DeleteObject(ctx, key)
}
