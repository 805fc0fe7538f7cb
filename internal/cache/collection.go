package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/openharvest/fieldcache/internal/kvstore"
)

const (
	// DefaultCeilingBytes is the size ceiling for the flat cross-project
	// cache object before a project falls back to chunked storage.
	DefaultCeilingBytes = 4 * 1024 * 1024
	// DefaultChunkBudgetMB is the target size of one chunk entry.
	DefaultChunkBudgetMB = 1.0
)

var (
	// ErrCachePayloadCorrupt indicates a stored cache object that no longer parses.
	ErrCachePayloadCorrupt = errors.New("cache: stored payload corrupt")

	errMissingBackend = errors.New("key-value backend is required")
)

// collection implements chunked, size-bounded persistence of compressed
// question records for one kind (question bank or generated questions),
// keyed by project, over a plain key-value backend.
type collection struct {
	kv            kvstore.Store
	kind          string
	ceilingBytes  int
	chunkBudgetMB float64
	clock         func() time.Time
	logger        *zap.Logger
}

func (c *collection) flatKey() string {
	return c.kind
}

func (c *collection) updatedAtKey() string {
	return c.kind + "_updated_at"
}

func (c *collection) metaKey(project string) string {
	return fmt.Sprintf("%s_%s_meta", c.kind, project)
}

func (c *collection) chunkKey(project string, index int) string {
	return fmt.Sprintf("%s_%s_chunk_%d", c.kind, project, index)
}

// put replaces one project's slice of the cache. When the whole
// cross-project cache object fits under the ceiling it is written back as
// one flat entry; when it does not, or the backend rejects the write for
// size, this project's records fall back to chunked storage.
func (c *collection) put(ctx context.Context, project string, records []CompressedQuestion) error {
	cacheObject := c.readFlatObject(ctx)
	cacheObject[project] = records

	totalSize, err := EstimateSize(cacheObject)
	if err != nil {
		return err
	}

	if totalSize <= c.ceilingBytes {
		payload, err := json.Marshal(cacheObject)
		if err != nil {
			return fmt.Errorf("cache: marshal %s: %w", c.kind, err)
		}
		setErr := c.kv.Set(ctx, c.flatKey(), string(payload))
		if setErr == nil {
			c.clearChunkedLayout(ctx, project)
			c.stampUpdatedAt(ctx)
			return nil
		}
		if !errors.Is(setErr, kvstore.ErrQuotaExceeded) {
			return fmt.Errorf("cache: write %s: %w", c.kind, setErr)
		}
		c.logger.Warn("flat cache write rejected for size, falling back to chunked storage",
			zap.String("kind", c.kind),
			zap.String("project", project),
			zap.Int("size_bytes", totalSize))
	} else {
		c.logger.Info("cache object exceeds ceiling, using chunked storage",
			zap.String("kind", c.kind),
			zap.String("project", project),
			zap.Int("size_bytes", totalSize),
			zap.Int("ceiling_bytes", c.ceilingBytes))
	}

	if err := c.writeChunked(ctx, project, records); err != nil {
		return err
	}
	c.stampUpdatedAt(ctx)
	return nil
}

// get returns one project's records, resolving the storage layout once:
// chunked wins over the flat cache object whenever chunk metadata exists.
func (c *collection) get(ctx context.Context, project string) ([]CompressedQuestion, ReadStats, error) {
	layout := c.resolveLayout(ctx, project)
	if layout.mode == layoutChunked {
		records, stats := c.readChunks(ctx, project, layout.metadata)
		return records, stats, nil
	}

	raw, ok, err := c.kv.Get(ctx, c.flatKey())
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("cache: read %s: %w", c.kind, err)
	}
	if !ok {
		return nil, ReadStats{}, nil
	}
	var cacheObject map[string][]CompressedQuestion
	if err := json.Unmarshal([]byte(raw), &cacheObject); err != nil {
		return nil, ReadStats{}, fmt.Errorf("%w: %s: %v", ErrCachePayloadCorrupt, c.kind, err)
	}
	return cacheObject[project], ReadStats{}, nil
}

func (c *collection) resolveLayout(ctx context.Context, project string) storageLayout {
	raw, ok, err := c.kv.Get(ctx, c.metaKey(project))
	if err != nil || !ok {
		return storageLayout{mode: layoutFlat}
	}
	var metadata ChunkMetadata
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		c.logger.Warn("chunk metadata corrupt, falling back to flat cache",
			zap.String("kind", c.kind),
			zap.String("project", project),
			zap.Error(err))
		return storageLayout{mode: layoutFlat}
	}
	return storageLayout{mode: layoutChunked, metadata: metadata}
}

func (c *collection) readChunks(ctx context.Context, project string, metadata ChunkMetadata) ([]CompressedQuestion, ReadStats) {
	stats := ReadStats{ExpectedChunks: metadata.TotalChunks}
	records := make([]CompressedQuestion, 0, metadata.TotalItems)
	for index := 0; index < metadata.TotalChunks; index++ {
		raw, ok, err := c.kv.Get(ctx, c.chunkKey(project, index))
		if err != nil || !ok {
			c.logger.Warn("cache chunk missing, continuing with partial data",
				zap.String("kind", c.kind),
				zap.String("project", project),
				zap.Int("chunk", index),
				zap.Error(err))
			continue
		}
		var chunk []CompressedQuestion
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			c.logger.Warn("cache chunk corrupt, continuing with partial data",
				zap.String("kind", c.kind),
				zap.String("project", project),
				zap.Int("chunk", index),
				zap.Error(err))
			continue
		}
		records = append(records, chunk...)
		stats.LoadedChunks++
	}
	return records, stats
}

func (c *collection) writeChunked(ctx context.Context, project string, records []CompressedQuestion) error {
	chunkSize := minItemsPerChunk
	if len(records) > 0 {
		planned, err := PlanChunkSize(records[0], c.chunkBudgetMB)
		if err != nil {
			return err
		}
		chunkSize = planned
	}

	previous := c.resolveLayout(ctx, project)

	totalChunks := 0
	for offset := 0; offset < len(records); offset += chunkSize {
		end := offset + chunkSize
		if end > len(records) {
			end = len(records)
		}
		payload, err := json.Marshal(records[offset:end])
		if err != nil {
			return fmt.Errorf("cache: marshal chunk %d of %s: %w", totalChunks, c.kind, err)
		}
		if err := c.kv.Set(ctx, c.chunkKey(project, totalChunks), string(payload)); err != nil {
			return fmt.Errorf("cache: write chunk %d of %s: %w", totalChunks, c.kind, err)
		}
		totalChunks++
	}

	metadata := ChunkMetadata{
		CollectionKey: fmt.Sprintf("%s_%s", c.kind, project),
		TotalChunks:   totalChunks,
		TotalItems:    len(records),
		ChunkSize:     chunkSize,
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("cache: marshal metadata of %s: %w", c.kind, err)
	}
	// Metadata last: a crash before this point leaves the previous layout readable.
	if err := c.kv.Set(ctx, c.metaKey(project), string(payload)); err != nil {
		return fmt.Errorf("cache: write metadata of %s: %w", c.kind, err)
	}

	if previous.mode == layoutChunked && previous.metadata.TotalChunks > totalChunks {
		c.removeChunkRange(ctx, project, totalChunks, previous.metadata.TotalChunks)
	}

	return nil
}

// clearChunkedLayout removes a project's chunk entries and metadata after a
// successful flat write, so a stale chunked layout cannot shadow it.
func (c *collection) clearChunkedLayout(ctx context.Context, project string) {
	layout := c.resolveLayout(ctx, project)
	if layout.mode != layoutChunked {
		return
	}
	if err := c.kv.Remove(ctx, c.metaKey(project)); err != nil {
		c.logger.Warn("failed to remove stale chunk metadata",
			zap.String("kind", c.kind),
			zap.String("project", project),
			zap.Error(err))
		return
	}
	c.removeChunkRange(ctx, project, 0, layout.metadata.TotalChunks)
}

func (c *collection) removeChunkRange(ctx context.Context, project string, from, to int) {
	keys := make([]string, 0, to-from)
	for index := from; index < to; index++ {
		keys = append(keys, c.chunkKey(project, index))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.kv.Remove(ctx, keys...); err != nil {
		c.logger.Warn("failed to remove stale cache chunks",
			zap.String("kind", c.kind),
			zap.String("project", project),
			zap.Error(err))
	}
}

// readFlatObject loads the cross-project cache object for the write path.
// A corrupt stored object is logged and replaced, since put rewrites the
// whole entry anyway.
func (c *collection) readFlatObject(ctx context.Context) map[string][]CompressedQuestion {
	raw, ok, err := c.kv.Get(ctx, c.flatKey())
	if err != nil || !ok {
		return make(map[string][]CompressedQuestion)
	}
	var cacheObject map[string][]CompressedQuestion
	if err := json.Unmarshal([]byte(raw), &cacheObject); err != nil {
		c.logger.Warn("flat cache object corrupt, rebuilding",
			zap.String("kind", c.kind),
			zap.Error(err))
		return make(map[string][]CompressedQuestion)
	}
	if cacheObject == nil {
		cacheObject = make(map[string][]CompressedQuestion)
	}
	return cacheObject
}

func (c *collection) stampUpdatedAt(ctx context.Context) {
	stamp := strconv.FormatInt(c.clock().UTC().Unix(), 10)
	if err := c.kv.Set(ctx, c.updatedAtKey(), stamp); err != nil {
		c.logger.Warn("failed to record cache update timestamp",
			zap.String("kind", c.kind),
			zap.Error(err))
	}
}
