package cache

// ChunkMetadata describes the chunked layout of one project's collection.
// It is written after the chunks it references, so a crash mid-write leaves
// at worst a metadata record pointing at a partially written chunk, never a
// metadata record for a non-empty collection with zero chunks.
type ChunkMetadata struct {
	CollectionKey string `json:"collectionKey"`
	TotalChunks   int    `json:"totalChunks"`
	TotalItems    int    `json:"totalItems"`
	ChunkSize     int    `json:"chunkSize"`
}

// ReadStats annotates a collection read with how many chunks the metadata
// declared versus how many were actually loaded, so callers can detect an
// incomplete read without the read itself failing.
type ReadStats struct {
	ExpectedChunks int
	LoadedChunks   int
}

// Complete reports whether every declared chunk was read.
func (s ReadStats) Complete() bool {
	return s.ExpectedChunks == s.LoadedChunks
}

type layoutMode int

const (
	layoutFlat layoutMode = iota
	layoutChunked
)

// storageLayout is the resolved storage variant for one get call: either
// the flat multi-project cache object or a chunked per-project layout.
// Chunked always wins once its metadata exists.
type storageLayout struct {
	mode     layoutMode
	metadata ChunkMetadata
}
