package history

import "time"

const SchemaVersion = 1

// Snapshot records the outcome of one selection run.
type Snapshot struct {
	SchemaVersion   int       `json:"schema_version"`
	Timestamp       time.Time `json:"timestamp"`
	CommitHash      string    `json:"commit_hash,omitempty"`
	CommitTimestamp time.Time `json:"commit_timestamp,omitempty"`
	ModuleCount     int       `json:"module_count"`
	FileCount       int       `json:"file_count"`
	ChangedCount    int       `json:"changed_count"`
	ImpactedCount   int       `json:"impacted_count"`
	WarningCount    int       `json:"warning_count"`
	DurationMS      int64     `json:"duration_ms"`
}

type TrendPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	CommitHash      string    `json:"commit_hash,omitempty"`
	ModuleCount     int       `json:"module_count"`
	FileCount       int       `json:"file_count"`
	ChangedCount    int       `json:"changed_count"`
	ImpactedCount   int       `json:"impacted_count"`
	WarningCount    int       `json:"warning_count"`
	DurationMS      int64     `json:"duration_ms"`
	DeltaModules    int       `json:"delta_modules"`
	DeltaImpacted   int       `json:"delta_impacted"`
	DeltaWarnings   int       `json:"delta_warnings"`
	AvgImpacted     float64   `json:"avg_impacted"`
	AvgWarnings     float64   `json:"avg_warnings"`
	WindowHours     float64   `json:"window_hours"`
}

type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	RunCount      int          `json:"run_count"`
	Points        []TrendPoint `json:"points"`
}
