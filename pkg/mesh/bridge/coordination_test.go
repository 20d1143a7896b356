package bridge

import (
	"testing"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

func TestCoordinator_PriorityBasedSelectsHighestPreference(t *testing.T) {
	table := NewTable(1, nil)
	table.Update(11, StatusMessage{InternetConnected: true}, 0)
	table.SetPriority(11, 5)
	table.Update(12, StatusMessage{InternetConnected: true}, 0)
	table.SetPriority(12, 9)

	c := NewCoordinator(table)
	id, ok := c.SelectBridge(0)
	if !ok || id != 12 {
		t.Fatalf("expected node 12 (higher priority) selected, got %d ok=%v", id, ok)
	}
}

func TestCoordinator_RoundRobinCyclesHealthyBridges(t *testing.T) {
	table := NewTable(1, nil)
	table.Update(11, StatusMessage{InternetConnected: true}, 0)
	table.Update(12, StatusMessage{InternetConnected: true}, 0)

	c := NewCoordinator(table)
	c.SetStrategy(types.StrategyRoundRobin)
	c.SetMaxBridges(2)

	first, _ := c.SelectBridge(0)
	second, _ := c.SelectBridge(0)
	third, _ := c.SelectBridge(0)

	if first == second {
		t.Fatalf("expected round robin to alternate, got %d then %d", first, second)
	}
	if third != first {
		t.Fatalf("expected round robin to wrap back to %d, got %d", first, third)
	}
}

func TestCoordinator_BestSignalPicksHighestRSSI(t *testing.T) {
	table := NewTable(1, nil)
	table.Update(11, StatusMessage{InternetConnected: true, RouterRSSI: -80}, 0)
	table.Update(12, StatusMessage{InternetConnected: true, RouterRSSI: -30}, 0)

	c := NewCoordinator(table)
	c.SetStrategy(types.StrategyBestSignal)
	id, ok := c.SelectBridge(0)
	if !ok || id != 12 {
		t.Fatalf("expected the strongest-signal bridge (12) selected, got %d", id)
	}
}

func TestCoordinator_MaxBridgesCapsConsideredSet(t *testing.T) {
	table := NewTable(1, nil)
	table.Update(11, StatusMessage{InternetConnected: true}, 0)
	table.SetPriority(11, 1)
	table.Update(12, StatusMessage{InternetConnected: true}, 0)
	table.SetPriority(12, 2)
	table.Update(13, StatusMessage{InternetConnected: true}, 0)
	table.SetPriority(13, 9)

	c := NewCoordinator(table)
	if err := c.SetMaxBridges(1); err != nil {
		t.Fatalf("SetMaxBridges: %v", err)
	}
	id, ok := c.SelectBridge(0)
	if !ok || id != 13 {
		t.Fatalf("expected only the single highest-priority bridge considered, got %d", id)
	}
}

func TestCoordinator_SetMaxBridgesRejectsOutOfRange(t *testing.T) {
	c := NewCoordinator(NewTable(1, nil))
	if err := c.SetMaxBridges(0); err != types.ErrInvalidValue {
		t.Fatalf("expected ErrInvalidValue for 0, got %v", err)
	}
	if err := c.SetMaxBridges(MaxBridgesHardCap + 1); err != types.ErrInvalidValue {
		t.Fatalf("expected ErrInvalidValue above the hard cap, got %v", err)
	}
}

func TestCoordinator_OverrideNextSupersedesStrategyOnce(t *testing.T) {
	table := NewTable(1, nil)
	table.Update(11, StatusMessage{InternetConnected: true}, 0)
	table.SetPriority(11, 9)
	table.Update(12, StatusMessage{InternetConnected: true}, 0)
	table.SetPriority(12, 1)

	c := NewCoordinator(table)
	c.OverrideNext(12)

	id, ok := c.SelectBridge(0)
	if !ok || id != 12 {
		t.Fatalf("expected the override to win once, got %d", id)
	}

	id, ok = c.SelectBridge(0)
	if !ok || id != 11 {
		t.Fatalf("expected the override to apply only once, strategy should resume, got %d", id)
	}
}

func TestCoordinator_NoHealthyBridgesReturnsFalse(t *testing.T) {
	c := NewCoordinator(NewTable(1, nil))
	if _, ok := c.SelectBridge(0); ok {
		t.Fatalf("expected no selection with an empty table")
	}
}
