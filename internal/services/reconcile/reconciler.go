package reconcile

import (
	"math"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
	"github.com/ternarybob/crossquote/internal/models"
)

// PolicyPreferStructured names the conflict-resolution policy recorded in
// every validation report: when both sources report a field and disagree, the
// structured API value wins and the vision value is kept in the conflict
// entry for inspection.
const PolicyPreferStructured = "prefer-structured"

// Reconciler merges per-source collection results into a unified record.
// It is stateless and safe for concurrent use.
type Reconciler struct {
	config common.ReconcileConfig
	logger arbor.ILogger
}

func New(config common.ReconcileConfig, logger arbor.ILogger) *Reconciler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Reconciler{
		config: config,
		logger: logger,
	}
}

// Reconcile merges the given collection results for one symbol. It accepts
// any number of results, of which zero, one, or two may have succeeded, and
// always returns a record: the no-data case is reported through
// Validation.Status, not an error, so the caller decides how to surface it.
func (r *Reconciler) Reconcile(symbol string, results ...*models.CollectionResult) *models.UnifiedRecord {
	outcomes := make([]models.SourceOutcome, 0, len(results))
	succeeded := make([]*models.CollectionResult, 0, 2)
	for _, res := range results {
		if res == nil {
			continue
		}
		outcomes = append(outcomes, models.SourceOutcome{
			Source:    res.Source,
			Success:   res.Success,
			Error:     res.Error,
			LatencyMs: res.LatencyMs,
		})
		if res.Success && res.Data != nil {
			succeeded = append(succeeded, res)
		}
	}

	switch len(succeeded) {
	case 0:
		return r.noData(symbol, outcomes)
	case 1:
		return r.singleSource(succeeded[0], outcomes)
	}

	preferred, other := orderByPreference(succeeded[0], succeeded[1])
	return r.merge(symbol, preferred, other, outcomes)
}

// orderByPreference puts the structured API result first. When neither (or
// both) result is structured, the original order stands.
func orderByPreference(a, b *models.CollectionResult) (preferred, other *models.CollectionResult) {
	if b.Source == models.SourceStructured && a.Source != models.SourceStructured {
		return b, a
	}
	return a, b
}

func (r *Reconciler) noData(symbol string, outcomes []models.SourceOutcome) *models.UnifiedRecord {
	r.logger.Warn().Str("symbol", symbol).Msg("No source produced data")
	return &models.UnifiedRecord{
		CanonicalStockRecord: *models.NewCanonicalStockRecord(symbol, models.SourceUnified),
		Confidence:           0,
		Validation: models.ValidationReport{
			Status:             models.StatusNoData,
			Policy:             PolicyPreferStructured,
			MatchedFields:      []string{},
			ConflictFields:     []models.FieldConflict{},
			SupplementedFields: []string{},
		},
		Sources: outcomes,
	}
}

// singleSource passes the surviving record through unchanged, with the fixed
// baseline confidence. No fields are dropped or altered.
func (r *Reconciler) singleSource(res *models.CollectionResult, outcomes []models.SourceOutcome) *models.UnifiedRecord {
	r.logger.Debug().
		Str("symbol", res.Data.BasicInfo.Symbol).
		Str("source", string(res.Source)).
		Msg("Single source succeeded, passing record through")
	return &models.UnifiedRecord{
		CanonicalStockRecord: *res.Data,
		Confidence:           r.config.SingleSourceConfidence,
		Validation: models.ValidationReport{
			Status:             models.StatusSingleSource,
			Policy:             PolicyPreferStructured,
			MatchedFields:      []string{},
			ConflictFields:     []models.FieldConflict{},
			SupplementedFields: []string{},
		},
		Sources: outcomes,
	}
}

func (r *Reconciler) merge(symbol string, preferred, other *models.CollectionResult, outcomes []models.SourceOutcome) *models.UnifiedRecord {
	unified := models.NewCanonicalStockRecord(symbol, models.SourceUnified)

	matched := []string{}
	conflicts := []models.FieldConflict{}
	supplemented := []string{}

	for _, f := range numericFields {
		pv, ov := f.get(preferred.Data), f.get(other.Data)
		switch {
		case pv == nil && ov == nil:
			// neither source reported it
		case pv == nil:
			f.set(unified, *ov)
			supplemented = append(supplemented, f.path)
		case ov == nil:
			f.set(unified, *pv)
			supplemented = append(supplemented, f.path)
		default:
			f.set(unified, *pv)
			if withinTolerance(*pv, *ov, r.tolerance(f.class)) {
				matched = append(matched, f.path)
			} else {
				conflicts = append(conflicts, models.FieldConflict{
					Field:           f.path,
					PreferredSource: preferred.Source,
					PreferredValue:  *pv,
					OtherSource:     other.Source,
					OtherValue:      *ov,
				})
			}
		}
	}

	for _, f := range stringFields {
		pv, ov := f.get(preferred.Data), f.get(other.Data)
		switch {
		case pv == "" && ov == "":
		case pv == "":
			f.set(unified, ov)
			supplemented = append(supplemented, f.path)
		case ov == "":
			f.set(unified, pv)
			supplemented = append(supplemented, f.path)
		default:
			f.set(unified, pv)
			if stringsEquivalent(pv, ov) {
				matched = append(matched, f.path)
			} else {
				conflicts = append(conflicts, models.FieldConflict{
					Field:           f.path,
					PreferredSource: preferred.Source,
					PreferredValue:  pv,
					OtherSource:     other.Source,
					OtherValue:      ov,
				})
			}
		}
	}

	status := mergedStatus(len(matched), len(supplemented), len(conflicts))
	confidence := confidenceScore(len(matched), len(supplemented), len(conflicts))

	r.logger.Info().
		Str("symbol", symbol).
		Str("status", string(status)).
		Float64("confidence", confidence).
		Int("matched", len(matched)).
		Int("supplemented", len(supplemented)).
		Int("conflicts", len(conflicts)).
		Msg("Reconciled dual-source record")

	return &models.UnifiedRecord{
		CanonicalStockRecord: *unified,
		Confidence:           confidence,
		Validation: models.ValidationReport{
			Status:             status,
			Policy:             PolicyPreferStructured,
			MatchedFields:      matched,
			ConflictFields:     conflicts,
			SupplementedFields: supplemented,
		},
		Sources: outcomes,
	}
}

func (r *Reconciler) tolerance(class toleranceClass) float64 {
	if class == classPrice {
		return r.config.PriceTolerance
	}
	return r.config.RatioTolerance
}

// withinTolerance compares two values relatively: the difference is scaled by
// the larger magnitude, so tolerance reads as a fraction regardless of units.
// Two exact zeros always match.
func withinTolerance(a, b, tol float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= tol*scale
}

// stringsEquivalent treats case and whitespace-run differences as agreement;
// providers format names inconsistently.
func stringsEquivalent(a, b string) bool {
	return normalizeString(a) == normalizeString(b)
}

func normalizeString(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// mergedStatus classifies a dual-source merge. Conflicts dominate; a merge of
// two records that shared no fields at all reports partial.
func mergedStatus(matched, supplemented, conflicts int) models.ValidationStatus {
	switch {
	case conflicts > 0:
		return models.StatusConflict
	case supplemented > 0:
		return models.StatusPartial
	case matched > 0:
		return models.StatusConsistent
	default:
		return models.StatusPartial
	}
}

// confidenceScore weights agreement against disagreement: matches count
// fully, supplements count half (present but unverifiable), and each
// conflict costs double. The score is clamped to [0, 1]; with no compared
// fields at all it is 0.
func confidenceScore(matched, supplemented, conflicts int) float64 {
	denom := float64(matched + supplemented + 2*conflicts)
	if denom == 0 {
		return 0
	}
	score := (float64(matched) + 0.5*float64(supplemented)) / denom
	return math.Min(1, math.Max(0, score))
}
