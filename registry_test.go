package fotasync

import "testing"

func TestRegistryAddGetRemove(t *testing.T) {
	registry := NewRegistry()
	client := fleetStub()
	coordinator := newTestCoordinator(t, client)

	if _, err := registry.Add("", client, coordinator); err == nil {
		t.Fatal("expected error for empty entry id")
	}

	entry, err := registry.Add("primary", client, coordinator)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if entry.Commands == nil {
		t.Fatal("entry must carry bound task commands")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", registry.Len())
	}

	got, ok := registry.Get("primary")
	if !ok || got != entry {
		t.Fatal("get did not return the registered entry")
	}

	registry.Remove("primary")
	if _, ok := registry.Get("primary"); ok {
		t.Fatal("entry still present after remove")
	}
	if _, ok := registry.First(); ok {
		t.Fatal("first must report empty after remove")
	}
}

func TestRegistryForDevice(t *testing.T) {
	registry := NewRegistry()

	first := fleetStub()
	firstCoordinator := newTestCoordinator(t, first)
	if _, err := registry.Add("first", first, firstCoordinator); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	second := fleetStub()
	second.devicePages = []DevicePage{{
		Items:       []Device{{IMEI: "860000000000099", ActivityStatus: StatusOnline}},
		CurrentPage: 1,
		LastPage:    1,
	}}
	secondCoordinator := newTestCoordinator(t, second)
	if _, err := registry.Add("second", second, secondCoordinator); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	entry, ok := registry.ForDevice("860000000000099")
	if !ok || entry.ID != "second" {
		t.Fatalf("expected entry 'second' for imei, got %+v ok=%v", entry, ok)
	}

	// Unknown devices fall back to the earliest entry.
	entry, ok = registry.ForDevice("unknown")
	if !ok || entry.ID != "first" {
		t.Fatalf("expected fallback to 'first', got %+v ok=%v", entry, ok)
	}
}

func TestRegistryRefreshAll(t *testing.T) {
	registry := NewRegistry()
	client := fleetStub()
	coordinator := newTestCoordinator(t, client)
	if _, err := registry.Add("primary", client, coordinator); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	before := client.roundCount()

	registry.RefreshAll()
	coordinator.backgroundGroup.Wait()

	if client.roundCount() != before+1 {
		t.Fatalf("expected one refresh round, got %d extra", client.roundCount()-before)
	}
}
