package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
	"github.com/ternarybob/crossquote/internal/models"
)

func testReconciler() *Reconciler {
	return New(common.ReconcileConfig{
		PriceTolerance:         0.001,
		RatioTolerance:         0.02,
		SingleSourceConfidence: 0.5,
	}, arbor.NewLogger())
}

func fptr(v float64) *float64 { return &v }

func record(source models.Source) *models.CanonicalStockRecord {
	r := models.NewCanonicalStockRecord("005930", source)
	return r
}

func success(source models.Source, data *models.CanonicalStockRecord) *models.CollectionResult {
	return models.SuccessResult(source, time.Now(), data)
}

func failure(source models.Source) *models.CollectionResult {
	return models.FailedResult(source, time.Now(), assert.AnError)
}

func TestReconcileNoData(t *testing.T) {
	r := testReconciler()

	unified := r.Reconcile("005930", failure(models.SourceStructured), failure(models.SourceVision))

	assert.Equal(t, models.StatusNoData, unified.Validation.Status)
	assert.Equal(t, PolicyPreferStructured, unified.Validation.Policy)
	assert.Zero(t, unified.Confidence)
	assert.Equal(t, "005930", unified.BasicInfo.Symbol)
	assert.Len(t, unified.Sources, 2)
	for _, outcome := range unified.Sources {
		assert.False(t, outcome.Success)
		assert.NotEmpty(t, outcome.Error)
	}
}

func TestReconcileSingleSourcePassthrough(t *testing.T) {
	r := testReconciler()

	for _, source := range []models.Source{models.SourceStructured, models.SourceVision} {
		t.Run(string(source), func(t *testing.T) {
			data := record(source)
			data.BasicInfo.Name = "Samsung Electronics"
			data.PriceData.CurrentPrice = fptr(71500)
			data.Valuation.PER = fptr(13.2)
			data.SupplyDemand = &models.SupplyDemandData{ForeignOwnership: fptr(51.3)}

			other := models.SourceVision
			if source == models.SourceVision {
				other = models.SourceStructured
			}
			unified := r.Reconcile("005930", success(source, data), failure(other))

			assert.Equal(t, models.StatusSingleSource, unified.Validation.Status)
			assert.Equal(t, 0.5, unified.Confidence)
			// the record passes through exactly, provenance included
			assert.Equal(t, *data, unified.CanonicalStockRecord)
			assert.Empty(t, unified.Validation.MatchedFields)
			assert.Empty(t, unified.Validation.ConflictFields)
		})
	}
}

func TestReconcileIdenticalRecordsConsistent(t *testing.T) {
	r := testReconciler()

	a := record(models.SourceStructured)
	a.BasicInfo.Name = "Samsung Electronics"
	a.PriceData.CurrentPrice = fptr(71500)
	a.PriceData.Volume = fptr(12345678)
	a.Valuation.PER = fptr(13.2)

	b := record(models.SourceVision)
	b.BasicInfo.Name = "Samsung Electronics"
	b.PriceData.CurrentPrice = fptr(71500)
	b.PriceData.Volume = fptr(12345678)
	b.Valuation.PER = fptr(13.2)

	unified := r.Reconcile("005930", success(models.SourceStructured, a), success(models.SourceVision, b))

	assert.Equal(t, models.StatusConsistent, unified.Validation.Status)
	assert.Equal(t, 1.0, unified.Confidence)
	assert.Len(t, unified.Validation.MatchedFields, 4)
	assert.Empty(t, unified.Validation.ConflictFields)
	assert.Empty(t, unified.Validation.SupplementedFields)
	assert.Equal(t, models.SourceUnified, unified.Source)
}

func TestReconcilePriceToleranceBoundary(t *testing.T) {
	r := testReconciler()

	t.Run("within tolerance matches", func(t *testing.T) {
		a := record(models.SourceStructured)
		a.PriceData.CurrentPrice = fptr(100.00)
		b := record(models.SourceVision)
		b.PriceData.CurrentPrice = fptr(100.05)

		unified := r.Reconcile("TEST", success(models.SourceStructured, a), success(models.SourceVision, b))

		assert.Equal(t, models.StatusConsistent, unified.Validation.Status)
		assert.Contains(t, unified.Validation.MatchedFields, "priceData.currentPrice")
		require.NotNil(t, unified.PriceData.CurrentPrice)
		assert.Equal(t, 100.00, *unified.PriceData.CurrentPrice)
	})

	t.Run("beyond tolerance conflicts", func(t *testing.T) {
		a := record(models.SourceStructured)
		a.PriceData.CurrentPrice = fptr(100.00)
		b := record(models.SourceVision)
		b.PriceData.CurrentPrice = fptr(120.00)

		unified := r.Reconcile("TEST", success(models.SourceStructured, a), success(models.SourceVision, b))

		assert.Equal(t, models.StatusConflict, unified.Validation.Status)
		require.Len(t, unified.Validation.ConflictFields, 1)
		conflict := unified.Validation.ConflictFields[0]
		assert.Equal(t, "priceData.currentPrice", conflict.Field)
		assert.Equal(t, models.SourceStructured, conflict.PreferredSource)
		assert.Equal(t, 100.00, conflict.PreferredValue)
		assert.Equal(t, 120.00, conflict.OtherValue)
		// conflicting fields still resolve to the structured value
		require.NotNil(t, unified.PriceData.CurrentPrice)
		assert.Equal(t, 100.00, *unified.PriceData.CurrentPrice)
	})

	t.Run("both zero match", func(t *testing.T) {
		a := record(models.SourceStructured)
		a.PriceData.Change = fptr(0)
		b := record(models.SourceVision)
		b.PriceData.Change = fptr(0)

		unified := r.Reconcile("TEST", success(models.SourceStructured, a), success(models.SourceVision, b))
		assert.Contains(t, unified.Validation.MatchedFields, "priceData.change")
	})
}

func TestReconcileRatioToleranceLooser(t *testing.T) {
	r := testReconciler()

	// 1.5% apart: beyond price tolerance but within ratio tolerance
	a := record(models.SourceStructured)
	a.Valuation.PER = fptr(13.20)
	b := record(models.SourceVision)
	b.Valuation.PER = fptr(13.00)

	unified := r.Reconcile("TEST", success(models.SourceStructured, a), success(models.SourceVision, b))

	assert.Contains(t, unified.Validation.MatchedFields, "valuationData.per")
	assert.Empty(t, unified.Validation.ConflictFields)
}

func TestReconcileSupplementedFields(t *testing.T) {
	r := testReconciler()

	a := record(models.SourceStructured)
	a.PriceData.CurrentPrice = fptr(71500)
	b := record(models.SourceVision)
	b.PriceData.CurrentPrice = fptr(71500)
	b.SupplyDemand = &models.SupplyDemandData{
		ForeignOwnership: fptr(51.3),
		ForeignNetBuy:    fptr(-120000),
	}

	unified := r.Reconcile("005930", success(models.SourceStructured, a), success(models.SourceVision, b))

	assert.Equal(t, models.StatusPartial, unified.Validation.Status)
	assert.Contains(t, unified.Validation.SupplementedFields, "supplyDemandData.foreignOwnership")
	assert.Contains(t, unified.Validation.SupplementedFields, "supplyDemandData.foreignNetBuy")
	require.NotNil(t, unified.SupplyDemand)
	require.NotNil(t, unified.SupplyDemand.ForeignOwnership)
	assert.Equal(t, 51.3, *unified.SupplyDemand.ForeignOwnership)
	require.NotNil(t, unified.SupplyDemand.ForeignNetBuy)
	assert.Equal(t, -120000.0, *unified.SupplyDemand.ForeignNetBuy)
}

func TestReconcileSupplyDemandAbsentStaysAbsent(t *testing.T) {
	r := testReconciler()

	a := record(models.SourceStructured)
	a.PriceData.CurrentPrice = fptr(190.50)
	b := record(models.SourceVision)
	b.PriceData.CurrentPrice = fptr(190.50)

	unified := r.Reconcile("AAPL", success(models.SourceStructured, a), success(models.SourceVision, b))

	assert.Nil(t, unified.SupplyDemand)
}

func TestReconcileArgumentOrderIrrelevant(t *testing.T) {
	r := testReconciler()

	build := func() (*models.CollectionResult, *models.CollectionResult) {
		a := record(models.SourceStructured)
		a.PriceData.CurrentPrice = fptr(100.00)
		a.Valuation.PER = fptr(13.2)
		b := record(models.SourceVision)
		b.PriceData.CurrentPrice = fptr(120.00)
		b.Valuation.EPS = fptr(5400)
		return success(models.SourceStructured, a), success(models.SourceVision, b)
	}

	sa, va := build()
	forward := r.Reconcile("TEST", sa, va)
	sb, vb := build()
	reversed := r.Reconcile("TEST", vb, sb)

	assert.Equal(t, forward.Validation.Status, reversed.Validation.Status)
	assert.Equal(t, forward.Confidence, reversed.Confidence)
	assert.Equal(t, forward.Validation.MatchedFields, reversed.Validation.MatchedFields)
	assert.Equal(t, forward.Validation.ConflictFields, reversed.Validation.ConflictFields)
	// structured wins regardless of order
	require.NotNil(t, reversed.PriceData.CurrentPrice)
	assert.Equal(t, 100.00, *reversed.PriceData.CurrentPrice)
}

func TestReconcileStringNormalization(t *testing.T) {
	r := testReconciler()

	a := record(models.SourceStructured)
	a.BasicInfo.Name = "Samsung Electronics"
	b := record(models.SourceVision)
	b.BasicInfo.Name = "  samsung   ELECTRONICS "

	unified := r.Reconcile("005930", success(models.SourceStructured, a), success(models.SourceVision, b))

	assert.Contains(t, unified.Validation.MatchedFields, "basicInfo.name")
	assert.Equal(t, "Samsung Electronics", unified.BasicInfo.Name)
}

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		name         string
		matched      int
		supplemented int
		conflicts    int
		want         float64
	}{
		{"all matched", 10, 0, 0, 1.0},
		{"no compared fields", 0, 0, 0, 0},
		{"only supplements", 0, 4, 0, 0.5},
		{"only conflicts", 0, 0, 3, 0},
		{"mixed", 6, 2, 1, 0.7}, // (6 + 1) / (6 + 2 + 2)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, confidenceScore(tt.matched, tt.supplemented, tt.conflicts), 1e-9)
		})
	}
}

func TestConfidenceMonotonicity(t *testing.T) {
	base := confidenceScore(5, 2, 1)
	assert.Greater(t, confidenceScore(6, 2, 1), base, "extra match must raise confidence")
	assert.Less(t, confidenceScore(5, 2, 2), base, "extra conflict must lower confidence")

	for _, c := range []struct{ m, s, k int }{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {3, 7, 2}, {100, 0, 100}} {
		score := confidenceScore(c.m, c.s, c.k)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, withinTolerance(0, 0, 0.001))
	assert.True(t, withinTolerance(100.00, 100.05, 0.001))
	assert.False(t, withinTolerance(100.00, 100.50, 0.001))
	assert.True(t, withinTolerance(-10, -10.01, 0.02))
}
