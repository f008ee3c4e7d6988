package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/anjeleno/rdx-rivendell/pkg/audioserver"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/metrics"
)

func newTestModel(t *testing.T) (*Model, *audioserver.MemConn) {
	t.Helper()
	conn := audioserver.NewMemConn()
	client := audioserver.NewClient(conn, logging.NewNopLogger(), metrics.NewRegistry())
	client.Reconnect()
	return NewModel(client, logging.NewNopLogger(), metrics.NewRegistry()), conn
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	model, conn := newTestModel(t)
	conn.AddPorts(
		"rivendell_0:playout_0L",
		"rivendell_0:playout_0R",
		"rivendell_0:record_0L",
		"stereo_tool:in_1",
		"system:capture_1",
	)
	if err := conn.Connect(context.Background(), "rivendell_0:playout_0L", "stereo_tool:in_1"); err != nil {
		t.Fatal(err)
	}

	snap, err := model.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	clients := snap.Clients()
	if len(clients) != 3 {
		t.Fatalf("expected 3 clients, got %v", clients)
	}
	if clients[0] != "rivendell_0" {
		t.Errorf("client order must follow server order, got %v", clients)
	}

	if got := len(snap.PortsOf("rivendell_0")); got != 3 {
		t.Errorf("expected 3 rivendell ports, got %d", got)
	}
	if got := len(snap.SourcePortsOf("rivendell_0")); got != 2 {
		t.Errorf("expected 2 playout sources, got %d", got)
	}
	if got := len(snap.SinkPortsOf("rivendell_0")); got != 1 {
		t.Errorf("expected 1 record sink, got %d", got)
	}

	edges := snap.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %v", edges)
	}
	if edges[0].Source != "rivendell_0:playout_0L" || edges[0].Sink != "stereo_tool:in_1" {
		t.Errorf("edge not oriented playout -> in: %+v", edges[0])
	}
}

func TestEdgeOrientationPrefersSinkRule(t *testing.T) {
	model, conn := newTestModel(t)
	conn.AddPorts("vlc_media_player:out_0", "rivendell_0:record_0L")
	if err := conn.Connect(context.Background(), "vlc_media_player:out_0", "rivendell_0:record_0L"); err != nil {
		t.Fatal(err)
	}

	snap, err := model.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	edges := snap.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %v", edges)
	}
	// record_0L ends in L like a source, but the record rule wins.
	if edges[0].Sink != "rivendell_0:record_0L" {
		t.Errorf("record port must be the sink: %+v", edges[0])
	}
}

func TestRefreshServesEmptySnapshotOnLoss(t *testing.T) {
	model, conn := newTestModel(t)
	conn.AddPorts("system:capture_1")
	if _, err := model.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(model.Snapshot().Clients()) != 1 {
		t.Fatal("expected populated snapshot")
	}

	conn.SetRunning(false)
	_, err := model.Refresh(context.Background())
	if !errors.Is(err, audioserver.ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
	if len(model.Snapshot().Clients()) != 0 {
		t.Error("no cached graph may be served after server loss")
	}
}
