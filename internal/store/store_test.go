package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmplq/internal/apperr"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTemplateStore_CreateGetConflict(t *testing.T) {
	s := NewTemplateStore()
	original := Template{ID: "welcome", Body: "Hello {{name}}", Description: "greeting"}

	require.NoError(t, s.Create(original))

	err := s.Create(Template{ID: "welcome", Body: "other"})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	got, err := s.Get("welcome")
	require.NoError(t, err)
	assert.Equal(t, original, got)

	_, err = s.Get("nope")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestTemplateStore_UpsertAndDelete(t *testing.T) {
	s := NewTemplateStore()

	created, err := s.Upsert("a", func(cur Template, exists bool) (Template, error) {
		assert.False(t, exists)
		cur.Body = "first"
		return cur, nil
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Upsert("a", func(cur Template, exists bool) (Template, error) {
		assert.True(t, exists)
		assert.Equal(t, "first", cur.Body)
		cur.Body = "second"
		return cur, nil
	})
	require.NoError(t, err)
	assert.False(t, created)

	boom := errors.New("rejected")
	_, err = s.Upsert("a", func(cur Template, exists bool) (Template, error) {
		return Template{}, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Body)

	require.NoError(t, s.Delete("a"))
	assert.True(t, apperr.Is(s.Delete("a"), apperr.NotFound))
	assert.Equal(t, 0, s.Len())
}

func TestTemplateStore_ListSortedByID(t *testing.T) {
	s := NewTemplateStore()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Create(Template{ID: id, Body: id}))
	}

	var ids []string
	for _, tpl := range s.List() {
		ids = append(ids, tpl.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestJobStore_Lifecycle(t *testing.T) {
	s := NewJobStore()

	j1 := s.Create("tpl", map[string]any{"a": "b"}, t0)
	j2 := s.Create("tpl", nil, t0)
	assert.Equal(t, int64(1), j1.ID)
	assert.Equal(t, int64(2), j2.ID)
	assert.Equal(t, JobStatusQueued, j1.Status)
	assert.Nil(t, j1.StartedAt)

	started, err := s.Start(j1.ID, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, JobStatusProcessing, started.Status)
	require.NotNil(t, started.StartedAt)

	done, err := s.Succeed(j1.ID, JobResult{Output: "ok"}, t0.Add(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, JobStatusSucceeded, done.Status)
	require.NotNil(t, done.Result)
	assert.Nil(t, done.Error)
	assert.Equal(t, 2*time.Second, done.Result.Duration)
	assert.False(t, done.DoneAt.Before(*done.StartedAt))
	assert.False(t, done.StartedAt.Before(done.EnqueuedAt))

	// Earlier snapshots are unaffected by later transitions.
	assert.Equal(t, JobStatusQueued, j1.Status)

	_, err = s.Start(j2.ID, t0)
	require.NoError(t, err)
	failed, err := s.Fail(j2.ID, JobError{Kind: "render_error", Message: "gone"}, t0)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, failed.Status)
	assert.Nil(t, failed.Result)
	require.NotNil(t, failed.Error)

	jobs := s.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, int64(1), jobs[0].ID)
	assert.Equal(t, int64(2), jobs[1].ID)

	counts := s.CountByStatus()
	assert.Equal(t, 1, counts[JobStatusSucceeded])
	assert.Equal(t, 1, counts[JobStatusFailed])
}

func TestJobStore_RejectsIllegalTransitions(t *testing.T) {
	s := NewJobStore()
	j := s.Create("tpl", nil, t0)

	// QUEUED may not skip PROCESSING.
	_, err := s.Succeed(j.ID, JobResult{}, t0)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, JobStatusQueued, terr.From)
	assert.True(t, apperr.Is(err, apperr.Internal))

	_, err = s.Start(j.ID, t0)
	require.NoError(t, err)
	_, err = s.Start(j.ID, t0)
	assert.Error(t, err, "PROCESSING -> PROCESSING")

	_, err = s.Fail(j.ID, JobError{Message: "x"}, t0)
	require.NoError(t, err)

	// Terminal is final.
	_, err = s.Succeed(j.ID, JobResult{}, t0)
	assert.Error(t, err)
	got, err := s.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, got.Status)
	assert.Nil(t, got.Result)

	_, err = s.Start(99, t0)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestJobStore_ConcurrentReadersNeverSeeHalfUpdatedJobs(t *testing.T) {
	s := NewJobStore()
	const n = 200
	for i := 0; i < n; i++ {
		s.Create("tpl", nil, t0)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for id := int64(1); id <= n; id++ {
			_, _ = s.Start(id, t0)
			_, _ = s.Succeed(id, JobResult{Output: "x"}, t0)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				for _, j := range s.List() {
					if j.Status == JobStatusSucceeded && (j.Result == nil || j.DoneAt == nil) {
						t.Errorf("job %d succeeded without result", j.ID)
					}
					if j.Status == JobStatusProcessing && j.StartedAt == nil {
						t.Errorf("job %d processing without start time", j.ID)
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestQueue_BoundedFIFO(t *testing.T) {
	q := NewQueue()
	next := int64(0)
	alloc := func() int64 { next++; return next }

	for i := 0; i < 3; i++ {
		_, ok := q.Offer(3, alloc)
		require.True(t, ok)
	}
	_, ok := q.Offer(3, alloc)
	assert.False(t, ok)
	assert.Equal(t, int64(3), next, "alloc must not run when the queue is full")
	assert.Equal(t, 3, q.Len())

	id, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, 2, q.Len())

	id, ok = q.Offer(3, alloc)
	require.True(t, ok)
	assert.Equal(t, int64(4), id)

	for _, want := range []int64{2, 3, 4} {
		id, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, id)
	}
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueue_ConcurrentOffersRespectCapacity(t *testing.T) {
	q := NewQueue()
	var mu sync.Mutex
	next := int64(0)
	alloc := func() int64 {
		mu.Lock()
		defer mu.Unlock()
		next++
		return next
	}

	var (
		wg       sync.WaitGroup
		accepted sync.Map
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if id, ok := q.Offer(10, alloc); ok {
				accepted.Store(id, true)
			}
		}()
	}
	wg.Wait()

	count := 0
	accepted.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 10, count)
	assert.Equal(t, 10, q.Len())
}

func TestHistory_BoundedNewestFirst(t *testing.T) {
	h, err := NewHistory(3)
	require.NoError(t, err)

	for id := int64(1); id <= 5; id++ {
		h.Push(HistoryEntry{Job: Job{ID: id}}, 3)
		assert.LessOrEqual(t, h.Len(), 3)
	}

	assert.Equal(t, []int64{5, 4, 3}, historyIDs(h))
}

func TestHistory_CapacityChangeAppliesOnNextPush(t *testing.T) {
	h, err := NewHistory(5)
	require.NoError(t, err)
	for id := int64(1); id <= 5; id++ {
		h.Push(HistoryEntry{Job: Job{ID: id}}, 5)
	}

	h.Push(HistoryEntry{Job: Job{ID: 6}}, 2)
	assert.Equal(t, []int64{6, 5}, historyIDs(h))

	h.Push(HistoryEntry{Job: Job{ID: 7}}, 4)
	h.Push(HistoryEntry{Job: Job{ID: 8}}, 4)
	assert.Equal(t, []int64{8, 7, 6, 5}, historyIDs(h))
}

func TestNewHistory_RejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewHistory(0)
	assert.Error(t, err)
}

func historyIDs(h *History) []int64 {
	var ids []int64
	for _, e := range h.List() {
		ids = append(ids, e.Job.ID)
	}
	return ids
}
