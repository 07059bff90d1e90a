package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestObserveJobTerminal_IncrementsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveJobTerminal("deploy", "completed", 1.5)

	mf, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range mf {
		if f.GetName() == "controller_jobs_completed_total" {
			found = true
			require.Len(t, f.Metric, 1)
			require.Equal(t, float64(1), f.Metric[0].GetCounter().GetValue())
		}
	}
	require.True(t, found)
}

func TestObserveRepair_LabelsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRepair("vlan_repair", true)
	m.ObserveRepair("full_recreate", false)

	mf, err := reg.Gather()
	require.NoError(t, err)

	var repairs *dto.MetricFamily
	for _, f := range mf {
		if f.GetName() == "controller_reconcile_repairs_total" {
			repairs = f
		}
	}
	require.NotNil(t, repairs)
	require.Len(t, repairs.Metric, 2)
}
