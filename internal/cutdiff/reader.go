package cutdiff

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cutlens/cutlens/internal/otime"
	"github.com/cutlens/cutlens/internal/store"
	"github.com/cutlens/cutlens/internal/timeline"
)

// ReadCut reconstructs a timeline track from a stored cut and its
// items. Holes in record time become gaps; overlapping items abort the
// read, the stored data cannot be trusted for a comparison.
func ReadCut(ctx context.Context, st store.Store, cutID int64, logger *slog.Logger) (*timeline.Track, error) {
	cut, err := st.GetCut(ctx, cutID)
	if err != nil {
		return nil, fmt.Errorf("read cut %d: %w", cutID, err)
	}
	items, err := st.GetCutItems(ctx, cutID)
	if err != nil {
		return nil, fmt.Errorf("read cut %d items: %w", cutID, err)
	}
	if cut.Fps <= 0 {
		return nil, fmt.Errorf("cut %q: %w", cut.Code, ErrNoFrameRate)
	}

	track := &timeline.Track{Name: cut.Code}
	start := otime.FromFrames(0, cut.Fps)
	if cut.TimecodeStart != "" {
		start, err = otime.FromTimecode(cut.TimecodeStart, cut.Fps)
		if err != nil {
			return nil, fmt.Errorf("cut %q start: %w", cut.Code, err)
		}
	}
	track.Start = start

	end := start
	for _, item := range items {
		recordIn, err := otime.FromTimecode(item.TimecodeEditIn, cut.Fps)
		if err != nil {
			return nil, fmt.Errorf("cut item %q edit in: %w", item.Code, err)
		}
		recordOut, err := otime.FromTimecode(item.TimecodeEditOut, cut.Fps)
		if err != nil {
			return nil, fmt.Errorf("cut item %q edit out: %w", item.Code, err)
		}
		sourceIn, err := otime.FromTimecode(item.TimecodeCutItemIn, cut.Fps)
		if err != nil {
			return nil, fmt.Errorf("cut item %q source in: %w", item.Code, err)
		}
		sourceOut, err := otime.FromTimecode(item.TimecodeCutItemOut, cut.Fps)
		if err != nil {
			return nil, fmt.Errorf("cut item %q source out: %w", item.Code, err)
		}

		if recordIn.Less(end) {
			return nil, fmt.Errorf("cut item %q starts at %s before %s: %w",
				item.Code, recordIn.ToTimecode(), end.ToTimecode(), ErrOverlappingItems)
		}
		if recordIn.Greater(end) {
			if logger != nil {
				logger.Debug("gap in stored cut",
					"cut", cut.Code, "before", item.Code,
					"frames", recordIn.Sub(end).ToFrames())
			}
			track.Append(&timeline.Gap{
				TimeSpan: otime.RangeFromStartEnd(end, recordIn),
			})
		}

		track.Append(&timeline.Clip{
			Name:        item.Code,
			SourceRange: otime.RangeFromStartEnd(sourceIn, sourceOut),
			Recorded:    item,
		})
		end = recordOut
	}
	return track, nil
}
