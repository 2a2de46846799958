package history

import (
	"fmt"
	"math"
	"time"
)

func BuildTrendReport(snapshots []Snapshot, window time.Duration) (TrendReport, error) {
	if len(snapshots) == 0 {
		return TrendReport{}, fmt.Errorf("no run snapshots available")
	}

	points := make([]TrendPoint, 0, len(snapshots))
	for i, current := range snapshots {
		point := TrendPoint{
			Timestamp:     current.Timestamp,
			CommitHash:    current.CommitHash,
			ModuleCount:   current.ModuleCount,
			FileCount:     current.FileCount,
			ChangedCount:  current.ChangedCount,
			ImpactedCount: current.ImpactedCount,
			WarningCount:  current.WarningCount,
			DurationMS:    current.DurationMS,
		}

		if i > 0 {
			prev := snapshots[i-1]
			point.DeltaModules = current.ModuleCount - prev.ModuleCount
			point.DeltaImpacted = current.ImpactedCount - prev.ImpactedCount
			point.DeltaWarnings = current.WarningCount - prev.WarningCount
		}

		avgImpacted, avgWarnings := movingAverages(snapshots, i, window)
		point.AvgImpacted = round2(avgImpacted)
		point.AvgWarnings = round2(avgWarnings)
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		Since:         snapshots[0].Timestamp,
		Until:         snapshots[len(snapshots)-1].Timestamp,
		Window:        window.String(),
		RunCount:      len(points),
		Points:        points,
	}, nil
}

func movingAverages(snapshots []Snapshot, index int, window time.Duration) (float64, float64) {
	if window <= 0 {
		return float64(snapshots[index].ImpactedCount), float64(snapshots[index].WarningCount)
	}

	cutoff := snapshots[index].Timestamp.Add(-window)
	var impactedTotal int
	var warningTotal int
	count := 0
	for i := index; i >= 0; i-- {
		if snapshots[i].Timestamp.Before(cutoff) {
			break
		}
		impactedTotal += snapshots[i].ImpactedCount
		warningTotal += snapshots[i].WarningCount
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return float64(impactedTotal) / float64(count), float64(warningTotal) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
