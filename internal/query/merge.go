package query

import (
	"sort"

	"pocketlytics/internal/timeframe"
)

// MergeBuckets full outer joins session-half and page-half rows on their
// bucket start. Columns missing from either side are coalesced to zero and
// rows without a bucket start are dropped. The result is ordered by bucket
// start.
func MergeBuckets(sessions, pages []map[string]any) []map[string]any {
	merged := make(map[int64]map[string]any, len(sessions)+len(pages))

	row := func(start int64, in map[string]any) map[string]any {
		if r, ok := merged[start]; ok {
			return r
		}
		r := ZeroOverviewRow()
		r[ColumnTime] = in[ColumnTime]
		r[ColumnBucketStart] = start
		merged[start] = r
		return r
	}

	for _, side := range []struct {
		rows    []map[string]any
		columns []string
	}{
		{rows: sessions, columns: SessionColumns},
		{rows: pages, columns: PageColumns},
	} {
		for _, in := range side.rows {
			start, ok := timeframe.BucketStart(in)
			if !ok {
				continue
			}
			out := row(start, in)
			for _, c := range side.columns {
				if v, ok := in[c]; ok && v != nil {
					out[c] = v
				}
			}
		}
	}

	starts := make([]int64, 0, len(merged))
	for start := range merged {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	out := make([]map[string]any, len(starts))
	for i, start := range starts {
		out[i] = merged[start]
	}
	return out
}

// ZeroOverviewRow holds zero for every overview metric.
func ZeroOverviewRow() map[string]any {
	r := make(map[string]any, len(SessionColumns)+len(PageColumns))
	for _, c := range SessionColumns {
		r[c] = int64(0)
	}
	for _, c := range PageColumns {
		r[c] = int64(0)
	}
	return r
}
