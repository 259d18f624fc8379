package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/types"
)

type fakeStore struct {
	questions.Store
	record       *types.Question
	sentFlagged  int
	sentFlagErr  error
	recordGetErr error
}

func (s *fakeStore) Get(context.Context, string, string) (*types.Question, error) {
	if s.recordGetErr != nil {
		return nil, s.recordGetErr
	}
	if s.record == nil {
		return nil, questions.ErrNotFound
	}
	return s.record, nil
}

func (s *fakeStore) SetNotificationSent(context.Context, string, string) error {
	if s.sentFlagErr != nil {
		return s.sentFlagErr
	}
	s.sentFlagged++
	return nil
}

type fakeRegistry struct {
	entries      map[string]*types.ConnectionEntry
	deregistered [][2]string // user, connection
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{entries: map[string]*types.ConnectionEntry{}}
}

func (r *fakeRegistry) Lookup(_ context.Context, userID string) (*types.ConnectionEntry, error) {
	return r.entries[userID], nil
}

func (r *fakeRegistry) Register(_ context.Context, userID, connectionID string) error {
	r.entries[userID] = &types.ConnectionEntry{UserID: userID, ConnectionID: connectionID}
	return nil
}

func (r *fakeRegistry) Deregister(_ context.Context, userID, connectionID string) error {
	r.deregistered = append(r.deregistered, [2]string{userID, connectionID})
	if e, ok := r.entries[userID]; ok && e.ConnectionID == connectionID {
		delete(r.entries, userID)
	}
	return nil
}

type fakeChannel struct {
	sent [][]byte
	err  error
}

func (c *fakeChannel) Send(_ context.Context, _ string, payload []byte) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, payload)
	return nil
}

func completedQuestion() *types.Question {
	return &types.Question{
		UserID:     "u1",
		QuestionID: "q1",
		Question:   "What is a CDB?",
		Answer:     "A CDB is...",
		Sources:    []string{"doc-1"},
		Status:     types.StatusCompleted,
	}
}

func TestHandle(t *testing.T) {
	ctx := context.Background()
	item := questions.WorkItem{UserID: "u1", QuestionID: "q1", Status: types.StatusCompleted}

	t.Run("pushes the answer to a registered connection", func(t *testing.T) {
		store := &fakeStore{record: completedQuestion()}
		registry := newFakeRegistry()
		require.NoError(t, registry.Register(ctx, "u1", "conn-a"))
		channel := &fakeChannel{}
		h := New(store, registry, channel)

		require.NoError(t, h.Handle(ctx, item))
		require.Len(t, channel.sent, 1)

		var n questions.Notification
		require.NoError(t, json.Unmarshal(channel.sent[0], &n))
		assert.Equal(t, "question_update", n.Type)
		assert.Equal(t, "q1", n.QuestionID)
		assert.Equal(t, types.StatusCompleted, n.Status)
		assert.Equal(t, "A CDB is...", n.Answer)
		assert.Equal(t, "What is a CDB?", n.Question)
		assert.Equal(t, []string{"doc-1"}, n.Sources)
		assert.Empty(t, n.ErrorMessage)

		assert.Equal(t, 1, store.sentFlagged)
	})

	t.Run("error outcome carries the error message, not an answer", func(t *testing.T) {
		q := completedQuestion()
		q.Status = types.StatusError
		q.Answer = ""
		q.ErrorMessage = "generator: upstream timeout"
		store := &fakeStore{record: q}
		registry := newFakeRegistry()
		require.NoError(t, registry.Register(ctx, "u1", "conn-a"))
		channel := &fakeChannel{}
		h := New(store, registry, channel)

		require.NoError(t, h.Handle(ctx, item))
		require.Len(t, channel.sent, 1)

		var n questions.Notification
		require.NoError(t, json.Unmarshal(channel.sent[0], &n))
		assert.Equal(t, types.StatusError, n.Status)
		assert.Equal(t, "generator: upstream timeout", n.ErrorMessage)
		assert.Empty(t, n.Answer)
	})

	t.Run("offline user is a silent skip", func(t *testing.T) {
		store := &fakeStore{record: completedQuestion()}
		channel := &fakeChannel{}
		h := New(store, newFakeRegistry(), channel)

		require.NoError(t, h.Handle(ctx, item))
		assert.Empty(t, channel.sent)
		assert.Zero(t, store.sentFlagged)
	})

	t.Run("push failure removes the stale entry and does not retry", func(t *testing.T) {
		store := &fakeStore{record: completedQuestion()}
		registry := newFakeRegistry()
		require.NoError(t, registry.Register(ctx, "u1", "conn-dead"))
		channel := &fakeChannel{err: &questions.ChannelError{Err: questions.ErrChannelGone}}
		h := New(store, registry, channel)

		require.NoError(t, h.Handle(ctx, item))
		require.Len(t, registry.deregistered, 1)
		assert.Equal(t, [2]string{"u1", "conn-dead"}, registry.deregistered[0])
		assert.Zero(t, store.sentFlagged)

		// A later notify with no new registration no-ops without error.
		channel.err = nil
		require.NoError(t, h.Handle(ctx, item))
		assert.Empty(t, channel.sent)
	})

	t.Run("register then disconnect then notify attempts no push", func(t *testing.T) {
		store := &fakeStore{record: completedQuestion()}
		registry := newFakeRegistry()
		require.NoError(t, registry.Register(ctx, "u1", "handle_A"))
		require.NoError(t, registry.Deregister(ctx, "u1", "handle_A"))
		channel := &fakeChannel{}
		h := New(store, registry, channel)

		require.NoError(t, h.Handle(ctx, item))
		assert.Empty(t, channel.sent)
	})

	t.Run("missing record is dropped", func(t *testing.T) {
		store := &fakeStore{}
		channel := &fakeChannel{}
		h := New(store, newFakeRegistry(), channel)

		require.NoError(t, h.Handle(ctx, item))
		assert.Empty(t, channel.sent)
	})

	t.Run("transient store failure is returned for redelivery", func(t *testing.T) {
		store := &fakeStore{recordGetErr: errors.New("connection reset")}
		h := New(store, newFakeRegistry(), &fakeChannel{})

		err := h.Handle(ctx, item)
		var serr *questions.StorageError
		require.ErrorAs(t, err, &serr)
	})
}
