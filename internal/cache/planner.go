package cache

import "fmt"

const (
	// chunkBudgetSlack leaves headroom for storage-layer overhead so a
	// serialized chunk stays under the configured budget.
	chunkBudgetSlack = 0.8
	// minItemsPerChunk bounds metadata overhead when records are tiny.
	minItemsPerChunk = 10

	bytesPerMegabyte = 1024 * 1024
)

// PlanChunkSize computes how many records may share one storage entry,
// from a representative record and a chunk budget in megabytes. The result
// is deterministic for the same sample and budget.
func PlanChunkSize(sample any, budgetMB float64) (int, error) {
	if budgetMB <= 0 {
		return 0, fmt.Errorf("cache: chunk budget must be positive, got %v", budgetMB)
	}
	itemSize, err := EstimateSize(sample)
	if err != nil {
		return 0, err
	}
	if itemSize <= 0 {
		return minItemsPerChunk, nil
	}
	items := int(budgetMB * bytesPerMegabyte * chunkBudgetSlack / float64(itemSize))
	if items < minItemsPerChunk {
		return minItemsPerChunk, nil
	}
	return items, nil
}
