package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagmill/tagmill/internal/rules"
)

func TestClientFetch(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/entries", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entries":[
			{"tag":"Finance/IFRS","patterns":"\\bifrs\\b\nmsfo","exclude":"ifrs\\.com","weight":1.2},
			{"tag":"Topic/Lavka","patterns":"lavka","weight":1}
		]}`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL, Token: "sekrit"})
	require.NoError(t, err)

	entries, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Bearer sekrit", gotAuth)
	assert.Equal(t, "Finance/IFRS", entries[0].Tag)
	assert.Equal(t, "\\bifrs\\b\nmsfo", entries[0].Patterns)
	assert.Equal(t, 1.2, entries[0].Weight)
}

func TestClientFetchClientErrorNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "no such catalog", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, 1, attempts, "4xx responses must not be retried")
}

func TestClientFetchServerErrorRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"entries":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL, MaxRetries: 2})
	require.NoError(t, err)

	entries, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 2, attempts)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)
}

func TestDocumentRoundTripsThroughRuleLoader(t *testing.T) {
	entries := []Entry{
		{Tag: "Finance/IFRS", Patterns: "\\bifrs\\b\n\n  msfo  ", Exclude: "ifrs\\.com", Weight: 1.2},
		{Tag: "Topic/Lavka", Patterns: "lavka", Weight: 1},
		{Tag: "   ", Patterns: "ignored"},
	}

	data, duplicates, err := Document(entries)
	require.NoError(t, err)
	assert.Empty(t, duplicates)

	set := rules.Load(data, nil)
	require.Equal(t, 2, set.Len())

	rule, ok := set.Lookup("Finance/IFRS")
	require.True(t, ok)
	assert.Len(t, rule.Patterns, 2, "newline-joined patterns split into separate regexes")
	assert.Len(t, rule.Exclude, 1)
	assert.Equal(t, 1.2, rule.Weight)
}

func TestDocumentReportsDuplicates(t *testing.T) {
	entries := []Entry{
		{Tag: "Topic/Lavka", Patterns: "old", Weight: 1},
		{Tag: "Topic/Lavka", Patterns: "new", Weight: 2},
	}

	data, duplicates, err := Document(entries)
	require.NoError(t, err)
	assert.Equal(t, []string{"Topic/Lavka"}, duplicates)

	set := rules.Load(data, nil)
	rule, ok := set.Lookup("Topic/Lavka")
	require.True(t, ok)
	assert.Equal(t, 2.0, rule.Weight, "last occurrence wins")
}

type fakeFetcher struct {
	entries []Entry
	err     error
}

func (f *fakeFetcher) Fetch(context.Context) ([]Entry, error) {
	return f.entries, f.err
}

func TestSyncerSwapsStoreAndWritesSnapshot(t *testing.T) {
	store, err := rules.NewStore(nil, nil)
	require.NoError(t, err)
	snapshot := filepath.Join(t.TempDir(), "catalog.yaml")

	syncer, err := NewSyncer(SyncerConfig{
		Client: &fakeFetcher{entries: []Entry{
			{Tag: "Finance/IFRS", Patterns: "\\bifrs\\b", Weight: 1.2},
		}},
		Store:        store,
		SnapshotPath: snapshot,
	})
	require.NoError(t, err)

	require.NoError(t, syncer.Sync(context.Background()))

	assert.Equal(t, 1, store.Active().Len())
	_, ok := store.Active().Lookup("Finance/IFRS")
	assert.True(t, ok)

	data, err := os.ReadFile(snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Finance/IFRS")
}

func TestSyncerNotifiesOnSwap(t *testing.T) {
	store, err := rules.NewStore(nil, nil)
	require.NoError(t, err)

	swaps := 0
	syncer, err := NewSyncer(SyncerConfig{
		Client: &fakeFetcher{entries: []Entry{
			{Tag: "Finance/IFRS", Patterns: "\\bifrs\\b", Weight: 1.2},
		}},
		Store:  store,
		OnSwap: func() { swaps++ },
	})
	require.NoError(t, err)

	require.NoError(t, syncer.Sync(context.Background()))
	assert.Equal(t, 1, swaps)
}

func TestSyncerNotifiesOnSnapshotFallback(t *testing.T) {
	store, err := rules.NewStore(nil, nil)
	require.NoError(t, err)

	snapshot := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "Finance/IFRS:\n  patterns: ['\\bifrs\\b']\n  weight: 1.2\n"
	require.NoError(t, os.WriteFile(snapshot, []byte(doc), 0o600))

	swaps := 0
	syncer, err := NewSyncer(SyncerConfig{
		Client:       &fakeFetcher{err: errors.New("catalog unreachable")},
		Store:        store,
		SnapshotPath: snapshot,
		OnSwap:       func() { swaps++ },
	})
	require.NoError(t, err)

	require.NoError(t, syncer.Sync(context.Background()))
	assert.Equal(t, 1, swaps, "serving the snapshot also replaces the rules")
}

func TestSyncerFallsBackToSnapshot(t *testing.T) {
	store, err := rules.NewStore(nil, nil)
	require.NoError(t, err)

	snapshot := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "Finance/IFRS:\n  patterns: ['\\bifrs\\b']\n  weight: 1.2\n"
	require.NoError(t, os.WriteFile(snapshot, []byte(doc), 0o600))

	syncer, err := NewSyncer(SyncerConfig{
		Client:       &fakeFetcher{err: errors.New("catalog unreachable")},
		Store:        store,
		SnapshotPath: snapshot,
	})
	require.NoError(t, err)

	require.NoError(t, syncer.Sync(context.Background()), "a usable snapshot makes the sync succeed")
	assert.Equal(t, 1, store.Active().Len())
}

func TestSyncerFetchFailureWithoutSnapshot(t *testing.T) {
	store, err := rules.NewStore(nil, nil)
	require.NoError(t, err)

	syncer, err := NewSyncer(SyncerConfig{
		Client: &fakeFetcher{err: errors.New("catalog unreachable")},
		Store:  store,
	})
	require.NoError(t, err)

	err = syncer.Sync(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Zero(t, store.Active().Len(), "a failed sync leaves the store untouched")
}
