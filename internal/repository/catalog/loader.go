// Package catalog loads the static catalog, category metadata, and
// precomputed embedding artifacts from disk. The source JSON carries
// duck-typed shapes (meaning as string-or-array, embeddings flat or nested);
// they are normalized here, at the ingestion boundary, so the scoring core
// only ever sees the typed forms.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	domcat "github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	"github.com/kotonoha-labs/birthdex/internal/domain/embedding"
)

// Config holds the artifact file paths.
type Config struct {
	CatalogPath    string
	MetaPath       string
	EmbeddingsPath string
}

// Loader reads the artifacts once per process and caches the immutable
// snapshots. Concurrent first callers share one load via sync.Once; the
// snapshots are never invalidated during process lifetime.
type Loader struct {
	cfg    Config
	logger *zap.Logger

	snapOnce sync.Once
	snap     *domcat.Snapshot
	snapErr  error

	embOnce sync.Once
	store   *embedding.Store
	embErr  error
}

// New creates a loader. Nothing is read until first access.
func New(cfg Config, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, logger: logger}
}

// Snapshot returns the loaded catalog, loading it on first access.
func (l *Loader) Snapshot() (*domcat.Snapshot, error) {
	l.snapOnce.Do(func() {
		l.snap, l.snapErr = l.loadSnapshot()
	})
	return l.snap, l.snapErr
}

// Embeddings returns the precomputed vector store, loading it on first
// access. A missing or empty artifact yields an empty store, not an error:
// the search degrades to its lexical tier.
func (l *Loader) Embeddings() (*embedding.Store, error) {
	l.embOnce.Do(func() {
		l.store, l.embErr = l.loadEmbeddings()
	})
	return l.store, l.embErr
}

// Warm eagerly loads the catalog and embeddings so startup fails fast on a
// broken catalog. Embedding problems are logged, not fatal.
func (l *Loader) Warm() error {
	snap, err := l.Snapshot()
	if err != nil {
		return err
	}
	store, err := l.Embeddings()
	if err != nil {
		l.logger.Warn("embeddings artifact unusable, semantic tier disabled", zap.Error(err))
		return nil
	}
	l.logger.Info("catalog loaded",
		zap.Int("dates", len(snap.Dates)),
		zap.Int("categories", len(snap.Categories)),
		zap.Int("item_vectors", len(store.Items)),
		zap.Int("phrase_vectors", len(store.Phrases)),
	)
	return nil
}

type entryDTO struct {
	Name      string     `json:"name"`
	Meaning   meaningDTO `json:"meaning"`
	ColorCode string     `json:"colorCode"`
	Source    string     `json:"source"`
}

// meaningDTO accepts the string-or-array union of the source JSON.
type meaningDTO []string

func (m *meaningDTO) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	if data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		if single == "" {
			*m = nil
		} else {
			*m = meaningDTO{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*m = meaningDTO(list)
	return nil
}

type catalogDTO struct {
	Dates map[string]map[string][]entryDTO `json:"dates"`
}

type metaDTO struct {
	Categories []domcat.Category `json:"categories"`
}

func (l *Loader) loadSnapshot() (*domcat.Snapshot, error) {
	raw, err := readJSONFile(l.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var dto catalogDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	rawMeta, err := readJSONFile(l.cfg.MetaPath)
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	var meta metaDTO
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, fmt.Errorf("parse meta: %w", err)
	}
	if len(meta.Categories) == 0 {
		return nil, fmt.Errorf("meta has no categories")
	}

	dates := make(map[string]domcat.Record, len(dto.Dates))
	for dateKey, rec := range dto.Dates {
		out := make(domcat.Record, len(rec))
		for category, list := range rec {
			entries := make([]domcat.Entry, len(list))
			for i, e := range list {
				entries[i] = domcat.Entry{
					Name:      e.Name,
					Meaning:   e.Meaning,
					ColorCode: e.ColorCode,
					Source:    e.Source,
				}
			}
			out[category] = entries
		}
		dates[dateKey] = out
	}

	return &domcat.Snapshot{Dates: dates, Categories: meta.Categories}, nil
}

func (l *Loader) loadEmbeddings() (*embedding.Store, error) {
	raw, err := readJSONFile(l.cfg.EmbeddingsPath)
	if os.IsNotExist(err) {
		return embedding.NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read embeddings: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return embedding.NewStore(), nil
	}

	// Nested form first; older artifacts are a flat id -> vector map.
	var nested struct {
		Items   map[string]embedding.Vector `json:"items"`
		Phrases map[string]embedding.Vector `json:"phrases"`
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse embeddings: %w", err)
	}
	store := embedding.NewStore()
	if _, ok := probe["items"]; ok {
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, fmt.Errorf("parse embeddings: %w", err)
		}
		if nested.Items != nil {
			store.Items = nested.Items
		}
		if nested.Phrases != nil {
			store.Phrases = nested.Phrases
		}
		return store, nil
	}

	flat := make(map[string]embedding.Vector, len(probe))
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("parse flat embeddings: %w", err)
	}
	store.Items = flat
	return store, nil
}

// readJSONFile reads a file and strips a UTF-8 BOM if present.
func readJSONFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), nil
}
