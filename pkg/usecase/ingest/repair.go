package ingest

import (
	"context"

	"github.com/abhivel/lyfe/pkg/utils/logging"
)

const repairPageSize = 100

// RepairResult summarizes a reconciliation pass.
type RepairResult struct {
	Scanned  int
	Repaired int
	Failed   int
}

// Repair walks every persisted photo and re-embeds the ones missing index
// vectors. Photos whose embedding still fails are counted and skipped.
func (p *Pipeline) Repair(ctx context.Context) (*RepairResult, error) {
	result := &RepairResult{}

	for offset := 0; ; offset += repairPageSize {
		photos, err := p.repo.List(ctx, offset, repairPageSize)
		if err != nil {
			return result, err
		}
		if len(photos) == 0 {
			break
		}

		for _, photo := range photos {
			result.Scanned++
			updated, err := p.Embed(ctx, photo)
			if err != nil {
				result.Failed++
				logging.From(ctx).Warn("repair skipped photo",
					"photo_id", photo.ID, "error", err)
				continue
			}
			if updated {
				result.Repaired++
			}
		}

		if len(photos) < repairPageSize {
			break
		}
	}

	logging.From(ctx).Info("repair finished",
		"scanned", result.Scanned,
		"repaired", result.Repaired,
		"failed", result.Failed)

	return result, nil
}
