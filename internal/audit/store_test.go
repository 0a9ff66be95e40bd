package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilStoreIsInert(t *testing.T) {
	var s *Store

	// no dedupe, no panic: the workflow must run without a database
	assert.False(t, s.RecordEvent(context.Background(), "slack", "key", "block_actions", []byte(`{}`)))
	s.RecordRequest(context.Background(), "1001", "pat@example.com", "refund", "accepted", "", []byte(`{}`))
}

func TestStoreWithoutDBIsInert(t *testing.T) {
	s := NewStore(nil, nil)
	assert.False(t, s.RecordEvent(context.Background(), "slack", "key", "block_actions", []byte(`{}`)))
}
