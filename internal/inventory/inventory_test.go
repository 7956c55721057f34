package inventory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piwi3910/cutopt/internal/model"
)

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "inventory.json" {
		t.Errorf("expected filename inventory.json, got %s", filepath.Base(path))
	}
	if dir := filepath.Base(filepath.Dir(path)); dir != ".cutopt" {
		t.Errorf("expected parent dir .cutopt, got %s", dir)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.json")

	inv := &Inventory{
		Offcuts: []Entry{
			{ID: "a1", Length: 800, Width: 400},
			{ID: "b2", Length: 1200, Width: 300},
		},
	}
	if err := Save(path, inv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if inv.UpdatedAt == "" {
		t.Error("Save should stamp UpdatedAt")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Offcuts) != 2 {
		t.Fatalf("expected 2 offcuts, got %d", len(loaded.Offcuts))
	}
	if loaded.Offcuts[0].ID != "a1" || loaded.Offcuts[0].Length != 800 {
		t.Errorf("first entry mismatch: %+v", loaded.Offcuts[0])
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	inv, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(inv.Offcuts) != 0 {
		t.Errorf("expected empty inventory, got %d entries", len(inv.Offcuts))
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestSaveCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "inventory.json")
	if err := Save(path, &Inventory{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestBins(t *testing.T) {
	inv := &Inventory{Offcuts: []Entry{{ID: "a1", Length: 800, Width: 400}}}
	bins := inv.Bins()
	if len(bins) != 1 {
		t.Fatalf("expected 1 bin, got %d", len(bins))
	}
	if bins[0].Type != model.BinTypeOffcut {
		t.Errorf("expected offcut bin, got %v", bins[0].Type)
	}
	if bins[0].ID != "a1" || bins[0].Length != 800 || bins[0].Width != 400 {
		t.Errorf("bin mismatch: %+v", bins[0])
	}
}

func TestAdd(t *testing.T) {
	inv := &Inventory{}
	inv.Add([]model.Offcut{
		{ID: "c3", BinIndex: 2, Length: 600, Width: 350},
	})
	if len(inv.Offcuts) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(inv.Offcuts))
	}
	e := inv.Offcuts[0]
	if e.ID != "c3" || e.Length != 600 || e.Width != 350 {
		t.Errorf("entry mismatch: %+v", e)
	}
	if !strings.HasSuffix(e.AddedAt, "Z") {
		t.Errorf("expected UTC RFC3339 timestamp, got %q", e.AddedAt)
	}
}

func TestConsume(t *testing.T) {
	inv := &Inventory{Offcuts: []Entry{
		{ID: "a1", Length: 800, Width: 400},
		{ID: "b2", Length: 1200, Width: 300},
	}}

	sol := &model.Solution{Bins: []model.BinLayout{
		{Bin: model.Bin{ID: "a1", Type: model.BinTypeOffcut}},
		{Bin: model.Bin{ID: "s1", Type: model.BinTypeStandard}},
	}}

	if removed := inv.Consume(sol); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if len(inv.Offcuts) != 1 || inv.Offcuts[0].ID != "b2" {
		t.Errorf("wrong survivor: %+v", inv.Offcuts)
	}
}

func TestConsumeNoOffcutBins(t *testing.T) {
	inv := &Inventory{Offcuts: []Entry{{ID: "a1", Length: 800, Width: 400}}}
	sol := &model.Solution{Bins: []model.BinLayout{
		{Bin: model.Bin{ID: "s1", Type: model.BinTypeStandard}},
	}}
	if removed := inv.Consume(sol); removed != 0 {
		t.Errorf("expected 0 removed, got %d", removed)
	}
	if len(inv.Offcuts) != 1 {
		t.Errorf("inventory should be untouched: %+v", inv.Offcuts)
	}
}
