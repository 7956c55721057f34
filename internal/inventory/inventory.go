// Package inventory persists reusable offcuts between optimizer runs.
// Remnants detected after one packing can be stored and offered back as
// offcut bins on the next run, so leftover stock gets used before new
// sheets are opened.
package inventory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/cutopt/internal/model"
)

// Entry is one stored offcut.
type Entry struct {
	ID      string  `json:"id"`
	Length  float64 `json:"length"`
	Width   float64 `json:"width"`
	AddedAt string  `json:"added_at"`
}

// Inventory is the on-disk offcut store.
type Inventory struct {
	UpdatedAt string  `json:"updated_at"`
	Offcuts   []Entry `json:"offcuts"`
}

// DefaultPath returns the default inventory file location,
// ~/.cutopt/inventory.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cutopt", "inventory.json"), nil
}

// Load reads the inventory from the given JSON file. A missing file is
// not an error: it yields an empty inventory.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Inventory{}, nil
		}
		return nil, err
	}
	var inv Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Save writes the inventory to the given JSON file, creating parent
// directories as needed.
func Save(path string, inv *Inventory) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	inv.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Bins converts the stored offcuts into offcut bins for a packing run.
func (inv *Inventory) Bins() []model.Bin {
	bins := make([]model.Bin, 0, len(inv.Offcuts))
	for _, e := range inv.Offcuts {
		bins = append(bins, model.Bin{
			ID:     e.ID,
			Length: e.Length,
			Width:  e.Width,
			Type:   model.BinTypeOffcut,
		})
	}
	return bins
}

// Add stores the given offcuts, typically those detected in a solution.
func (inv *Inventory) Add(offcuts []model.Offcut) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, o := range offcuts {
		inv.Offcuts = append(inv.Offcuts, Entry{
			ID:      o.ID,
			Length:  o.Length,
			Width:   o.Width,
			AddedAt: now,
		})
	}
}

// Consume removes the entries whose offcut bins were cut into by the
// solution and returns how many were removed.
func (inv *Inventory) Consume(sol *model.Solution) int {
	used := make(map[string]bool)
	for _, bl := range sol.Bins {
		if bl.Bin.Type == model.BinTypeOffcut {
			used[bl.Bin.ID] = true
		}
	}
	if len(used) == 0 {
		return 0
	}

	kept := inv.Offcuts[:0]
	removed := 0
	for _, e := range inv.Offcuts {
		if used[e.ID] {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	inv.Offcuts = kept
	return removed
}
