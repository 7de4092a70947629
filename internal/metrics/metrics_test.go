package metrics_test

import (
	"testing"
	"time"

	"pocketlytics/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordStoreQuery(t *testing.T) {
	before := testutil.ToFloat64(metrics.StoreQueriesTotal.WithLabelValues("metrics_test", metrics.OutcomeSuccess))
	metrics.RecordStoreQuery("metrics_test", metrics.OutcomeSuccess, 15*time.Millisecond, 3)
	after := testutil.ToFloat64(metrics.StoreQueriesTotal.WithLabelValues("metrics_test", metrics.OutcomeSuccess))
	assert.Equal(t, before+1, after)
}

func TestRecordDegradedFeature(t *testing.T) {
	before := testutil.ToFloat64(metrics.DegradedFeaturesTotal.WithLabelValues("metrics_test_feature"))
	metrics.RecordDegradedFeature("metrics_test_feature")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DegradedFeaturesTotal.WithLabelValues("metrics_test_feature")))
}
