package models

// ValidationStatus summarizes the reconciliation outcome for a symbol.
type ValidationStatus string

const (
	// StatusConsistent means both sources reported and agreed on at least one
	// field, with no conflicts.
	StatusConsistent ValidationStatus = "consistent"
	// StatusPartial means no conflicts, but at least one field was present in
	// only one source and was copied into the unified record.
	StatusPartial ValidationStatus = "partial"
	// StatusConflict means at least one comparable field disagreed beyond
	// tolerance.
	StatusConflict ValidationStatus = "conflict"
	// StatusSingleSource means exactly one source produced data.
	StatusSingleSource ValidationStatus = "single-source"
	// StatusNoData means no source produced data.
	StatusNoData ValidationStatus = "no-data"
)

// FieldConflict records a comparable field on which both sources reported a
// value but disagreed beyond tolerance. Both values are carried so callers
// can inspect the disagreement; the unified record still contains the
// preferred value.
type FieldConflict struct {
	Field           string      `json:"field"`
	PreferredSource Source      `json:"preferredSource"`
	PreferredValue  interface{} `json:"preferredValue"`
	OtherSource     Source      `json:"otherSource"`
	OtherValue      interface{} `json:"otherValue"`
}

// ValidationReport is the field-level comparison output of reconciliation.
type ValidationReport struct {
	Status             ValidationStatus `json:"status"`
	Policy             string           `json:"policy"`
	MatchedFields      []string         `json:"matchedFields"`
	ConflictFields     []FieldConflict  `json:"conflictFields"`
	SupplementedFields []string         `json:"supplementedFields"`
}

// SourceOutcome exposes per-collector attempt facts for the metrics
// collaborator: one entry per collection path, success or not.
type SourceOutcome struct {
	Source    Source `json:"source"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

// UnifiedRecord is the reconciled record plus its confidence score and
// validation report. It is constructed once per collection request and must
// not be mutated afterwards; downstream consumers copy on modify.
type UnifiedRecord struct {
	CanonicalStockRecord
	Confidence float64          `json:"confidence"`
	Validation ValidationReport `json:"validation"`
	Sources    []SourceOutcome  `json:"sources,omitempty"`
}
