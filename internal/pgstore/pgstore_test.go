package pgstore

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/triple"
)

const dcTitle = "http://purl.org/dc/terms/title"

// setupTestStore connects to POSTGRES_URL and hands out a fresh graph so runs
// do not see each other's triples.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set")
	}
	ctx := context.Background()
	p, err := Connect(ctx, url, zerolog.Nop())
	require.NoError(t, err)

	graph := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = p.pool.Exec(ctx, "DELETE FROM triples WHERE graph = $1", graph)
		_, _ = p.pool.Exec(ctx, "DELETE FROM counters WHERE graph = $1", graph)
		p.Close()
	})
	s, err := p.Store(graph)
	require.NoError(t, err)
	return s
}

func TestWherePattern(t *testing.T) {
	where, args := wherePattern("g", triple.Pattern{})
	assert.Equal(t, " WHERE graph = $1", where)
	assert.Equal(t, []any{"g"}, args)

	where, args = wherePattern("g", triple.Pattern{Subject: "s", Predicate: "p", Object: quad.Float(1.5)})
	assert.Equal(t, " WHERE graph = $1 AND subject = $2 AND predicate = $3 AND object = $4 AND datatype = $5", where)
	assert.Equal(t, []any{"g", "s", "p", "1.5", triple.XSDDouble}, args)
}

func TestPositionColumn(t *testing.T) {
	col, err := positionColumn(triple.Subject)
	require.NoError(t, err)
	assert.Equal(t, "subject", col)

	_, err = positionColumn(triple.Position(9))
	assert.Error(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcTitle, Object: quad.String("a")}))
	require.NoError(t, s.Insert(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcTitle, Object: quad.String("a")}))
	require.NoError(t, s.Replace(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcTitle, Object: quad.Int(7)}))

	vals, err := s.Value(ctx, "urn:doc:1", dcTitle)
	require.NoError(t, err)
	assert.Equal(t, []quad.Value{quad.Int(7)}, vals)

	got, err := s.Select(ctx, triple.Pattern{Subject: "urn:doc:1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, s.Delete(ctx, triple.Pattern{Subject: "urn:doc:1"}))
	got, err = s.Select(ctx, triple.Pattern{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNextIndexConcurrent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	p := triple.Pattern{Predicate: dcTitle}

	const n = 20
	var mu sync.Mutex
	seen := map[int64]bool{}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, err := s.NextIndex(ctx, p, triple.Subject)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[idx], "index %d handed out twice", idx)
			seen[idx] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
