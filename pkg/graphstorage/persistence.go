package graphstorage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/types"
)

// edgeRecord is the on-disk shape of one edge plus its annotations. Every
// concrete GraphStorage representation already exposes its content through
// the same EdgeContainer/AnnoStorage methods, so SaveTo/LoadFrom serialize
// through that shared surface rather than each implementation's internal
// layout -- the same generalization Copy already relies on (registry.
// CreateWritable builds a fresh writable storage and Copies any source
// representation into it). A per-representation binary blob would just
// duplicate that reconstruction logic seven times for no benefit, since
// Copy is always available to rebuild the representation-specific layout
// from a plain edge list.
type edgeRecord struct {
	Source types.NodeID       `json:"source"`
	Target types.NodeID       `json:"target"`
	Annos  []types.Annotation `json:"annos,omitempty"`
}

const edgesFileName = "edges.json"

// TagFileName is the sibling file SaveTo writes alongside edges.json,
// holding the representation's SerializationID so pkg/registry can build
// the right empty instance before calling LoadFrom.
const TagFileName = "tag"

// SaveTo writes gs's content (every edge plus its annotations) and its
// SerializationID tag into dir, creating dir if needed.
func SaveTo(gs GraphStorage, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return coreerrors.IO(dir, err)
	}

	sources, err := gs.SourceNodes()
	if err != nil {
		return err
	}
	var records []edgeRecord
	for _, src := range sources {
		targets, err := gs.OutgoingEdges(src)
		if err != nil {
			return err
		}
		for _, tgt := range targets {
			edge := types.Edge{Source: src, Target: tgt}
			records = append(records, edgeRecord{
				Source: src,
				Target: tgt,
				Annos:  gs.AnnoStorage().AnnotationsForItem(edge),
			})
		}
	}

	edgesPath := filepath.Join(dir, edgesFileName)
	data, err := json.Marshal(records)
	if err != nil {
		return coreerrors.IO(edgesPath, err)
	}
	if err := os.WriteFile(edgesPath, data, 0o644); err != nil {
		return coreerrors.IO(edgesPath, err)
	}
	tagPath := filepath.Join(dir, TagFileName)
	if err := os.WriteFile(tagPath, []byte(gs.SerializationID()), 0o644); err != nil {
		return coreerrors.IO(tagPath, err)
	}
	return nil
}

// LoadFrom reads the edges.json written by SaveTo out of dir and copies
// them into target via target.Copy, so the caller only needs to have
// constructed an empty target of the right representation first (typically
// via pkg/registry.NewInstance with the tag file's contents).
func LoadFrom(dir string, target GraphStorage) error {
	edgesPath := filepath.Join(dir, edgesFileName)
	data, err := os.ReadFile(edgesPath)
	if err != nil {
		return coreerrors.IO(edgesPath, err)
	}
	var records []edgeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return coreerrors.IO(edgesPath, err)
	}

	tmp := NewAdjacencyListStorage()
	for _, r := range records {
		edge := types.Edge{Source: r.Source, Target: r.Target}
		if err := tmp.AddEdge(edge); err != nil {
			return err
		}
		for _, a := range r.Annos {
			tmp.AnnoStorage().Insert(edge, a)
		}
	}
	return target.Copy(nil, tmp)
}

// ReadTag reads the SerializationID tag SaveTo wrote alongside edges.json
// in dir.
func ReadTag(dir string) (string, error) {
	tagPath := filepath.Join(dir, TagFileName)
	data, err := os.ReadFile(tagPath)
	if err != nil {
		return "", coreerrors.IO(tagPath, err)
	}
	return string(data), nil
}
