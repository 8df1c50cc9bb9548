package update

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUpdate() *GraphUpdate {
	u := New()
	u.Add(NewAddNode("tok1", "node"))
	u.Add(NewAddNode("tok2", "node"))
	u.Add(NewAddNodeLabel("tok1", "annis", "tok", "hello"))
	u.Add(NewAddEdge("tok1", "tok2", "Ordering", "", "default"))
	u.Add(NewAddEdgeLabel("tok1", "tok2", "Ordering", "", "default", "annis", "weight", "1"))
	u.Add(NewDeleteEdgeLabel("tok1", "tok2", "Ordering", "", "default", "annis", "weight"))
	u.Add(NewDeleteEdge("tok1", "tok2", "Ordering", "", "default"))
	u.Add(NewDeleteNodeLabel("tok1", "annis", "tok"))
	u.Add(NewDeleteNode("tok2"))
	return u
}

// TestScenarioS6RoundTrip mirrors scenario S6: serializing and reloading a
// GraphUpdate reproduces the same ordered event sequence.
func TestScenarioS6RoundTrip(t *testing.T) {
	original := sampleUpdate()

	data, err := json.Marshal(original)
	require.NoError(t, err)

	reloaded := New()
	require.NoError(t, json.Unmarshal(data, reloaded))

	assert.Equal(t, original.Len(), reloaded.Len())
	assert.Equal(t, original.Iter(), reloaded.Iter())
}

func TestGraphUpdateEmpty(t *testing.T) {
	u := New()
	assert.True(t, u.IsEmpty())
	assert.Equal(t, 0, u.Len())
	assert.Empty(t, u.Iter())
}

func TestGraphUpdateAddPreservesOrder(t *testing.T) {
	u := sampleUpdate()
	events := u.Iter()
	require.Len(t, events, 9)
	assert.Equal(t, KindAddNode, events[0].Kind)
	assert.Equal(t, KindDeleteNode, events[8].Kind)
	assert.Equal(t, "tok1", events[2].AddNodeLabel.NodeName)
	assert.Equal(t, "hello", events[2].AddNodeLabel.AnnoValue)
}

func TestGraphUpdateIterReturnsCopy(t *testing.T) {
	u := sampleUpdate()
	events := u.Iter()
	events[0] = NewDeleteNode("mutated")
	assert.Equal(t, KindAddNode, u.Iter()[0].Kind)
}
