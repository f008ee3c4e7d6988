package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistryInitializesAllGroups(t *testing.T) {
	r := NewRegistry()

	if r.ClientsTotal == nil || r.EdgesTotal == nil {
		t.Fatal("graph metrics not initialized")
	}
	if r.ConnectionsTotal == nil || r.EmergencyDisconnectTotal == nil {
		t.Fatal("routing metrics not initialized")
	}
	if r.ClientsAppearedTotal == nil {
		t.Fatal("monitor metrics not initialized")
	}
	if r.AudioServerUp == nil {
		t.Fatal("audio server metrics not initialized")
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.ConnectionsTotal.WithLabelValues("ok").Inc()

	if got := testutil.ToFloat64(a.ConnectionsTotal.WithLabelValues("ok")); got != 1 {
		t.Fatalf("registry a: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(b.ConnectionsTotal.WithLabelValues("ok")); got != 0 {
		t.Fatalf("registry b should be untouched, got %v", got)
	}
}
