package gscorpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/graphstorage"
	"github.com/korpling/graphannis-core/pkg/registry"
	"github.com/korpling/graphannis-core/pkg/symtab"
	"github.com/korpling/graphannis-core/pkg/types"
)

const (
	nodeAnnosFileName = "node_annos.json"
	namesFileName     = "node_names.json"
)

// nodeAnnoRecord is the on-disk shape of one node plus its annotations.
type nodeAnnoRecord struct {
	NodeID types.NodeID       `json:"node_id"`
	Annos  []types.Annotation `json:"annos"`
}

// componentDirName names the subdirectory SaveTo writes a component into:
// "<type>_<layer>_<name>", matching SPEC_FULL.md's persisted layout
// paragraph.
func componentDirName(c types.Component) string {
	return fmt.Sprintf("%s_%s_%s", c.Type, c.Layer, c.Name)
}

// SaveTo writes the whole corpus graph to dir: the node annotation store,
// the node-name symbol table, and one subdirectory per component holding
// that component's graphstorage.SaveTo output.
func (g *Graph) SaveTo(dir string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return coreerrors.IO(dir, err)
	}

	if err := g.saveNodeAnnos(dir); err != nil {
		return err
	}
	if err := g.saveNames(dir); err != nil {
		return err
	}
	for c, gs := range g.components {
		compDir := filepath.Join(dir, componentDirName(c))
		if err := graphstorage.SaveTo(gs, compDir); err != nil {
			return fmt.Errorf("saving component %s: %w", c, err)
		}
	}
	return nil
}

func (g *Graph) saveNodeAnnos(dir string) error {
	entries := g.names.Entries()
	records := make([]nodeAnnoRecord, 0, len(entries))
	for _, e := range entries {
		id := types.NodeID(e.ID)
		records = append(records, nodeAnnoRecord{NodeID: id, Annos: g.annos.AnnotationsForItem(id)})
	}
	path := filepath.Join(dir, nodeAnnosFileName)
	data, err := json.Marshal(records)
	if err != nil {
		return coreerrors.IO(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return coreerrors.IO(path, err)
	}
	return nil
}

// nameRecord pairs a node's symbol-table id with its name, so LoadFrom can
// restore each node at its original NodeID (symtab.RestoreAt) instead of
// having Intern reassign ids by array position, which would silently
// compact away any id a DeleteNode freed before the snapshot was taken.
type nameRecord struct {
	ID   types.NodeID `json:"id"`
	Name string       `json:"name"`
}

func (g *Graph) saveNames(dir string) error {
	entries := g.names.Entries()
	records := make([]nameRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, nameRecord{ID: types.NodeID(e.ID), Name: e.Value})
	}
	path := filepath.Join(dir, namesFileName)
	data, err := json.Marshal(records)
	if err != nil {
		return coreerrors.IO(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return coreerrors.IO(path, err)
	}
	return nil
}

// LoadFrom replaces g's content with what was written to dir by a prior
// SaveTo. db is used to reopen any disk-backed component representation
// registry.Deserialize encounters; pass nil if the corpus has no
// disk-backed components.
func (g *Graph) LoadFrom(dir string, db *badger.DB) error {
	return g.runLocked(func() error {
		names, err := loadNames(dir)
		if err != nil {
			return err
		}
		g.names.Clear()
		for _, rec := range names {
			g.names.RestoreAt(symtab.ID(rec.ID), rec.Name)
		}
		g.names.RebuildFreeList()

		annos, err := loadNodeAnnos(dir)
		if err != nil {
			return err
		}
		store := annostorage.NewMemoryStore[types.NodeID]()
		for _, rec := range annos {
			for _, a := range rec.Annos {
				store.Insert(rec.NodeID, a)
			}
		}
		g.annos = store

		entries, err := os.ReadDir(dir)
		if err != nil {
			return coreerrors.IO(dir, err)
		}
		g.components = make(map[types.Component]graphstorage.GraphStorage)
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			c, ok := parseComponentDirName(entry.Name())
			if !ok {
				continue
			}
			gs, err := registry.Deserialize(filepath.Join(dir, entry.Name()), db)
			if err != nil {
				return fmt.Errorf("loading component %s: %w", c, err)
			}
			g.components[c] = gs
		}
		return nil
	})
}

func loadNames(dir string) ([]nameRecord, error) {
	path := filepath.Join(dir, namesFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.IO(path, err)
	}
	var names []nameRecord
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, coreerrors.IO(path, err)
	}
	return names, nil
}

func loadNodeAnnos(dir string) ([]nodeAnnoRecord, error) {
	path := filepath.Join(dir, nodeAnnosFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.IO(path, err)
	}
	var records []nodeAnnoRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, coreerrors.IO(path, err)
	}
	return records, nil
}

// parseComponentDirName inverts componentDirName. The component type is
// always one bare closed-set token (no underscore), so the first
// underscore ends it; the second ends the layer; everything after is the
// component name, which may itself contain underscores.
func parseComponentDirName(name string) (types.Component, bool) {
	idx := strings.IndexByte(name, '_')
	if idx < 0 {
		return types.Component{}, false
	}
	rawType, rest := name[:idx], name[idx+1:]
	layer := rest
	if idx2 := strings.IndexByte(rest, '_'); idx2 >= 0 {
		layer, rest = rest[:idx2], rest[idx2+1:]
	} else {
		rest = ""
	}
	ctype, ok := types.ParseComponentType(rawType)
	if !ok {
		return types.Component{}, false
	}
	return types.Component{Type: ctype, Layer: layer, Name: rest}, true
}
