package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
)

// fakeOracle answers each call with respond(call index, request).
type fakeOracle struct {
	mu       sync.Mutex
	calls    int
	requests [][]core.Message
	respond  func(call int, history []core.Message) (string, error)
}

func (f *fakeOracle) Chat(ctx context.Context, history []core.Message) (core.Message, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.requests = append(f.requests, history)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return core.Message{}, err
	}
	content, err := f.respond(call, history)
	if err != nil {
		return core.Message{}, err
	}
	return core.Message{Role: core.RoleAssistant, Content: content}, nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func staticOracle(content string) *fakeOracle {
	return &fakeOracle{respond: func(int, []core.Message) (string, error) { return content, nil }}
}

type bucketKey struct {
	userID string
	t      core.MemoryType
}

// memStore is an in-memory MemoryStore.
type memStore struct {
	mu          sync.Mutex
	entries     []core.Entry
	buckets     map[bucketKey]core.ContextBucket
	schemaCalls int
	schemaErr   error
	saveErr     func(core.Entry) error
	appendErr   error
}

func newMemStore() *memStore {
	return &memStore{buckets: make(map[bucketKey]core.ContextBucket)}
}

func (s *memStore) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaCalls++
	return s.schemaErr
}

func (s *memStore) SaveEntry(ctx context.Context, e core.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		if err := s.saveErr(e); err != nil {
			return err
		}
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *memStore) ListEntries(ctx context.Context, userID string, limit int) ([]core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID == userID {
			out = append(out, s.entries[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) AppendContext(ctx context.Context, userID string, t core.MemoryType, sessionID string, items []core.Projection, maxItems int) (core.ContextBucket, error) {
	if err := ctx.Err(); err != nil {
		return core.ContextBucket{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return core.ContextBucket{}, s.appendErr
	}
	k := bucketKey{userID, t}
	b := core.FoldBucket(s.buckets[k], userID, t, sessionID, items, maxItems, time.Now())
	s.buckets[k] = b
	return b, nil
}

func (s *memStore) GetContextBuckets(ctx context.Context, userID string) ([]core.ContextBucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ContextBucket
	for k, b := range s.buckets {
		if k.userID == userID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b core.ContextBucket) int { return strings.Compare(string(a.Type), string(b.Type)) })
	return out, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) bucket(userID string, t core.MemoryType) core.ContextBucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buckets[bucketKey{userID, t}]
}

type fakeSemantic struct {
	mu      sync.Mutex
	stored  []core.Candidate
	answer  string
	err     error
	queries []string
	related [][]string
}

func (f *fakeSemantic) BatchStoreMemories(ctx context.Context, userID, sessionID string, candidates []core.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, candidates...)
	return f.err
}

func (f *fakeSemantic) GetContextualMemories(ctx context.Context, userID, query string, related []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.related = append(f.related, related)
	return f.answer, f.err
}

func conversation(n int, say func(i int) string) []core.Message {
	msgs := make([]core.Message, n)
	for i := range msgs {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		msgs[i] = core.Message{Role: role, Content: say(i)}
	}
	return msgs
}

func smallTalk(i int) string {
	return fmt.Sprintf("Let's talk about weekend plans, item number %d.", i)
}

var errBoom = errors.New("boom")
