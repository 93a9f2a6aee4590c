package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/model"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/triple"
)

const (
	testProject = "test-project"
	dcTitle     = "http://purl.org/dc/terms/title"
	dcSubject   = "http://purl.org/dc/terms/subject"
)

func setupTestDB(t testing.TB) (*DBManager, func()) {
	config := NewConfig()
	// The `cache=shared` is crucial for sharing the connection across different
	// calls to `sql.Open` within the same process; a fresh name keeps tests apart.
	config.URL = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	config.MultiProjectMode = false
	db, err := NewDBManager(config, zerolog.Nop())
	require.NoError(t, err)

	cleanup := func() {
		err := db.Close()
		assert.NoError(t, err)
	}

	return db, cleanup
}

func setupTestStore(t testing.TB) (*Store, func()) {
	db, cleanup := setupTestDB(t)
	s, err := db.Store(testProject)
	require.NoError(t, err)
	return s, cleanup
}

func TestInsertSelectValue(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	objects := []quad.Value{quad.String("finance"), quad.Int(2024), quad.Float(0.5), quad.IRI("http://example.org/x")}
	for _, o := range objects {
		require.NoError(t, s.Insert(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcSubject, Object: o}))
	}
	// identical triple is ignored
	require.NoError(t, s.Insert(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcSubject, Object: quad.String("finance")}))

	vals, err := s.Value(ctx, "urn:doc:1", dcSubject)
	require.NoError(t, err)
	assert.Equal(t, objects, vals)

	got, err := s.Select(ctx, triple.Pattern{Subject: "urn:doc:1", Object: quad.Int(2024)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, dcSubject, got[0].Predicate)

	// the string "2024" is a different object than the integer
	got, err = s.Select(ctx, triple.Pattern{Object: quad.String("2024")})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReplaceAndDelete(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcTitle, Object: quad.String("a")}))
	require.NoError(t, s.Insert(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcTitle, Object: quad.String("b")}))
	require.NoError(t, s.Replace(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcTitle, Object: quad.String("c")}))

	vals, err := s.Value(ctx, "urn:doc:1", dcTitle)
	require.NoError(t, err)
	assert.Equal(t, []quad.Value{quad.String("c")}, vals)

	require.NoError(t, s.Delete(ctx, triple.Pattern{Subject: "urn:doc:1", Predicate: dcTitle}))
	vals, err = s.Value(ctx, "urn:doc:1", dcTitle)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestNextIndex(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	p := triple.Pattern{Predicate: dcTitle}

	for _, urn := range []string{"urn:doc:1", "urn:doc:2"} {
		require.NoError(t, s.Insert(ctx, triple.Triple{Subject: urn, Predicate: dcTitle, Object: quad.String(urn)}))
	}
	next, err := s.NextIndex(ctx, p, triple.Subject)
	require.NoError(t, err)
	assert.Equal(t, int64(3), next)

	// reserved indexes are not handed out again, even after deletes
	require.NoError(t, s.Delete(ctx, triple.Pattern{Predicate: dcTitle}))
	next, err = s.NextIndex(ctx, p, triple.Subject)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)

	// counters are per pattern
	next, err = s.NextIndex(ctx, triple.Pattern{Predicate: dcSubject}, triple.Subject)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

// setupFileStore opens a libsql database file, the layout a default install
// writes to.
func setupFileStore(t *testing.T) *Store {
	t.Helper()
	config := &Config{URL: "file:" + filepath.Join(t.TempDir(), "triplemap.db")}
	db, err := NewDBManager(config, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })
	s, err := db.Store(testProject)
	require.NoError(t, err)
	return s
}

func TestNextIndexConcurrent(t *testing.T) {
	s := setupFileStore(t)
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

func TestConcurrentCreatesOnFile(t *testing.T) {
	s := setupFileStore(t)
	ctx := context.Background()

	schema, err := model.NewSchemaBuilder("doc").
		Prefix("dc", "http://purl.org/dc/terms/").
		Template("urn:doc:%").
		CountBy("title").
		Attribute(model.Attribute{Name: "title", Predicate: "dc:title", Type: model.Text, Required: true}).
		Build()
	require.NoError(t, err)
	m := model.New(schema, s)

	const n = 16
	urns := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := m.Create(ctx, model.Values{"title": fmt.Sprintf("doc %d", i)})
			if assert.NoError(t, err) {
				urns <- doc.URN()
			}
		}(i)
	}
	wg.Wait()
	close(urns)

	seen := map[string]bool{}
	for urn := range urns {
		assert.False(t, seen[urn], "urn %s allocated twice", urn)
		seen[urn] = true
	}
	assert.Len(t, seen, n)

	got, err := s.Select(ctx, triple.Pattern{Predicate: dcTitle})
	require.NoError(t, err)
	assert.Len(t, got, n)
}

func TestInTxRollsBack(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx triple.Store) error {
		if err := tx.Insert(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcTitle, Object: quad.String("x")}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Select(ctx, triple.Pattern{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestModelOnLibSQL(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	schema, err := model.NewSchemaBuilder("doc").
		Prefix("dc", "http://purl.org/dc/terms/").
		Template("urn:doc:%").
		CountBy("title").
		Attribute(model.Attribute{Name: "title", Predicate: "dc:title", Type: model.Text, Required: true}).
		Attribute(model.Attribute{Name: "tag", Predicate: "dc:subject", Type: model.Text, Cardinality: model.Multi}).
		Attribute(model.Attribute{Name: "pages", Predicate: "dc:extent", Type: model.Integer}).
		Build()
	require.NoError(t, err)
	m := model.New(schema, s)

	doc, err := m.Create(ctx, model.Values{"title": "Report", "pages": 12})
	require.NoError(t, err)
	assert.Equal(t, "urn:doc:1", doc.URN())

	require.NoError(t, doc.Add(ctx, "tag", "finance"))
	require.NoError(t, doc.Add(ctx, "tag", "2024"))

	all, err := doc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Report", all["title"])
	assert.Equal(t, "12", all["pages"])
	assert.ElementsMatch(t, []string{"finance", "2024"}, all["tag"])

	pages, err := doc.Get(ctx, "pages")
	require.NoError(t, err)
	assert.Equal(t, int64(12), pages)

	// a failing change leaves nothing behind
	err = doc.Change(ctx, model.Values{"title": "Changed", "pages": "x"})
	require.ErrorIs(t, err, model.ErrTypeMismatch)
	title, err := doc.Get(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, "Report", title)

	second, err := m.Create(ctx, model.Values{"title": "Second"})
	require.NoError(t, err)
	assert.Equal(t, "urn:doc:2", second.URN())
}

func TestMultiProject(t *testing.T) {
	dir, err := os.MkdirTemp("", "triplemap-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	config := &Config{
		ProjectsDir:      dir,
		MultiProjectMode: true,
	}

	db, err := NewDBManager(config, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	s1, err := db.Store("project1")
	require.NoError(t, err)
	s2, err := db.Store("project2")
	require.NoError(t, err)

	require.NoError(t, s1.Insert(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcTitle, Object: quad.String("one")}))
	require.NoError(t, s2.Insert(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcTitle, Object: quad.String("two")}))

	v1, err := s1.Value(ctx, "urn:doc:1", dcTitle)
	require.NoError(t, err)
	assert.Equal(t, []quad.Value{quad.String("one")}, v1)
	v2, err := s2.Value(ctx, "urn:doc:1", dcTitle)
	require.NoError(t, err)
	assert.Equal(t, []quad.Value{quad.String("two")}, v2)

	_, err = os.Stat(dir + "/project1/libsql.db")
	assert.NoError(t, err)

	_, err = db.Store("../escape")
	assert.Error(t, err)
	_, err = db.Store("")
	assert.Error(t, err)
}

func TestVersionAtLeast(t *testing.T) {
	assert.True(t, versionAtLeast("3.45.1", 3, 35))
	assert.True(t, versionAtLeast("3.35.0", 3, 35))
	assert.False(t, versionAtLeast("3.34.9", 3, 35))
	assert.True(t, versionAtLeast("4.0", 3, 35))
	assert.False(t, versionAtLeast("garbage", 3, 35))
}

func TestWherePattern(t *testing.T) {
	where, args := wherePattern(triple.Pattern{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = wherePattern(triple.Pattern{Subject: "s", Object: quad.Int(1)})
	assert.Equal(t, " WHERE subject = ? AND object = ? AND datatype = ?", where)
	assert.Equal(t, []any{"s", "1", triple.XSDInteger}, args)
}

func BenchmarkInsert(b *testing.B) {
	s, cleanup := setupTestStore(b)
	defer cleanup()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Insert(ctx, triple.Triple{Subject: "urn:doc:1", Predicate: dcSubject, Object: quad.Int(i)}); err != nil {
			b.Fatal(err)
		}
	}
}
