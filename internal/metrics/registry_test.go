package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadron-mkt/hadron/internal/adapters/common"
	"github.com/hadron-mkt/hadron/internal/domain"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestRegistrySatisfiesConsumerInterfaces(t *testing.T) {
	reg := New(prometheus.NewRegistry())

	var _ common.Health = reg
	var _ interface {
		RecordResolutionHit()
		RecordResolutionMiss()
		RecordDrop(string)
	} = reg
	var _ interface {
		SetQueueDepth(int, domain.Priority, int)
		IncDrop(domain.Priority)
		IncLag(int)
	} = reg.Router()
	var _ interface {
		IncTick(int, domain.Priority)
		IncDecision(int, string, domain.DecisionKind)
		IncPanic(int)
	} = reg
}

func TestRegistryIncrementsIntentCounter(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	reg.IncIntent(domain.SideBuy)
	reg.IncIntent(domain.SideBuy)
	reg.IncIntent(domain.SideSell)

	buyCounter, err := reg.IntentsByside.GetMetricWithLabelValues("buy")
	require.NoError(t, err)
	assert.Equal(t, float64(2), counterValue(t, buyCounter))
}

func TestRouterAndRecorderLagAreIndependentCounters(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	reg.Router().IncLag(3)
	reg.Recorder().IncLag(7)

	assert.Equal(t, float64(1), counterValue(t, reg.RouterLag))
	assert.Equal(t, float64(1), counterValue(t, reg.RecorderLag))
}
