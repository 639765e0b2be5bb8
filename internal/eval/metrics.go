package eval

import "sort"

// HitKValues are the K values Hit@K is reported for.
var HitKValues = []int{1, 5, 10}

// BugRank records the positions (1-indexed, within the ranked result) at
// which a ground-truth file was found for one bug, for both flavors.
type BugRank struct {
	BugID         string
	BaselineRanks []int // nil if no hit
	ExtendedRanks []int // nil if no hit
}

// Metrics is the aggregate evaluation outcome for one query type
// (basic/keybert/reason), computed over every considered bug.
type Metrics struct {
	ConsideredBugs int

	HitAtKBaselinePercent map[int]float64
	HitAtKExtendedPercent map[int]float64

	MRRBaseline float64
	MRRExtended float64
	MAPBaseline float64 // percent, matching the reference tool's *100 scaling
	MAPExtended float64

	Improved int
	Identical int
	Worse     int

	MissingGroundTruth []string // bug ids with no ground-truth set at all
	BugRanks           []BugRank
}

// BugResults is one bug's baseline/extended ranked file-id lists for a
// single query type.
type BugResults struct {
	BugID    string
	Baseline []string
	Extended []string
}

// Compute aggregates Hit@K, MRR, MAP and QE counts over every bug with a
// non-empty ground-truth set (post-existence-filtering). A missing or empty
// result list (nil Baseline or nil Extended) is scored as zero hits for that
// flavor: the bug is still counted and contributes 0 to that flavor's
// Hit@K, MRR and MAP.
func Compute(groundTruth GroundTruth, results []BugResults) Metrics {
	m := Metrics{
		HitAtKBaselinePercent: make(map[int]float64, len(HitKValues)),
		HitAtKExtendedPercent: make(map[int]float64, len(HitKValues)),
	}

	hitBaseline := make(map[int]int, len(HitKValues))
	hitExtended := make(map[int]int, len(HitKValues))
	for _, k := range HitKValues {
		hitBaseline[k] = 0
		hitExtended[k] = 0
	}

	var mrrBaselineSum, mrrExtendedSum float64
	var mapBaselineSum, mapExtendedSum float64
	total := 0

	for _, br := range results {
		gtSet, ok := groundTruth[br.BugID]
		if !ok || len(gtSet) == 0 {
			m.MissingGroundTruth = append(m.MissingGroundTruth, br.BugID)
			continue
		}

		baselineRanks := matchRanks(br.Baseline, gtSet)
		extendedRanks := matchRanks(br.Extended, gtSet)

		baselineRank := firstOrInf(baselineRanks)
		extendedRank := firstOrInf(extendedRanks)

		m.BugRanks = append(m.BugRanks, BugRank{BugID: br.BugID, BaselineRanks: baselineRanks, ExtendedRanks: extendedRanks})

		switch {
		case extendedRank < baselineRank:
			m.Improved++
		case extendedRank == baselineRank:
			m.Identical++
		default:
			m.Worse++
		}

		if !isInf(baselineRank) {
			mrrBaselineSum += 1 / float64(baselineRank)
		}
		if !isInf(extendedRank) {
			mrrExtendedSum += 1 / float64(extendedRank)
		}

		mapBaselineSum += averagePrecision(br.Baseline, gtSet)
		mapExtendedSum += averagePrecision(br.Extended, gtSet)

		for _, k := range HitKValues {
			if anyHit(br.Baseline, gtSet, k) {
				hitBaseline[k]++
			}
			if anyHit(br.Extended, gtSet, k) {
				hitExtended[k]++
			}
		}

		total++
	}

	m.ConsideredBugs = total
	for _, k := range HitKValues {
		if total == 0 {
			m.HitAtKBaselinePercent[k] = 0
			m.HitAtKExtendedPercent[k] = 0
			continue
		}
		m.HitAtKBaselinePercent[k] = float64(hitBaseline[k]) / float64(total) * 100
		m.HitAtKExtendedPercent[k] = float64(hitExtended[k]) / float64(total) * 100
	}

	if total > 0 {
		m.MRRBaseline = mrrBaselineSum / float64(total)
		m.MRRExtended = mrrExtendedSum / float64(total)
		m.MAPBaseline = mapBaselineSum / float64(total) * 100
		m.MAPExtended = mapExtendedSum / float64(total) * 100
	}

	sort.Slice(m.BugRanks, func(i, j int) bool { return m.BugRanks[i].BugID < m.BugRanks[j].BugID })
	sort.Strings(m.MissingGroundTruth)

	return m
}

// matchRanks returns the 1-indexed positions (in order of appearance) at
// which a ground-truth file was retrieved.
func matchRanks(retrieved []string, gtSet map[string]struct{}) []int {
	var ranks []int
	for i, f := range retrieved {
		if _, ok := gtSet[f]; ok {
			ranks = append(ranks, i+1)
		}
	}
	return ranks
}

const infRank = int(^uint(0) >> 1) // math.MaxInt, used as the "no hit" sentinel rank

func firstOrInf(ranks []int) int {
	if len(ranks) == 0 {
		return infRank
	}
	return ranks[0]
}

func isInf(rank int) bool { return rank == infRank }

// averagePrecision computes AP = (1/hits) * Σ precision_at_each_hit.
func averagePrecision(retrieved []string, gtSet map[string]struct{}) float64 {
	hits := 0
	var precisionSum float64
	for i, f := range retrieved {
		if _, ok := gtSet[f]; ok {
			hits++
			precisionSum += float64(hits) / float64(i+1)
		}
	}
	if hits == 0 {
		return 0
	}
	return precisionSum / float64(hits)
}

func anyHit(retrieved []string, gtSet map[string]struct{}, k int) bool {
	if k > len(retrieved) {
		k = len(retrieved)
	}
	for i := 0; i < k; i++ {
		if _, ok := gtSet[retrieved[i]]; ok {
			return true
		}
	}
	return false
}
