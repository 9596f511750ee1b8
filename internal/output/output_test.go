package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/hashmap-kz/peaceflow/internal/progress"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("yaml")
	require.NoError(t, err)
	assert.Equal(t, YAML, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, Text, f)

	_, err = ParseFormat("bogus")
	assert.Error(t, err)
}

func TestSinkPresentYAML(t *testing.T) {
	streams, _, out, _ := genericiooptions.NewTestIOStreams()
	s := NewSink(streams, YAML)
	require.NoError(t, s.Present(map[string]int{"mock": 1}))
	assert.Contains(t, out.String(), "mock: 1")
}

func TestSinkPresentJSON(t *testing.T) {
	streams, _, out, _ := genericiooptions.NewTestIOStreams()
	s := NewSink(streams, JSON)
	require.NoError(t, s.Present(map[string]int{"mock": 1}))
	assert.Contains(t, out.String(), `"mock": 1`)
}

func TestSinkPresentNoneWritesNothing(t *testing.T) {
	streams, _, out, _ := genericiooptions.NewTestIOStreams()
	s := NewSink(streams, None)
	require.NoError(t, s.Present("anything"))
	assert.Empty(t, out.String())
}

func TestSinkWriteErr(t *testing.T) {
	streams, _, _, errOut := genericiooptions.NewTestIOStreams()
	s := NewSink(streams, Text)
	require.NoError(t, s.WriteErr(assert.AnError))
	assert.Contains(t, errOut.String(), assert.AnError.Error())
}

func TestSinkPresentItemErrorsTable(t *testing.T) {
	streams, _, out, _ := genericiooptions.NewTestIOStreams()
	s := NewSink(streams, Text)
	require.NoError(t, s.Present(ItemErrors{
		{ItemID: "mock", Error: "apply failed"},
		{ItemID: "vec_copy", Error: "discover failed"},
	}))
	assert.Contains(t, out.String(), "mock")
	assert.Contains(t, out.String(), "apply failed")
	assert.Contains(t, out.String(), "vec_copy")
	assert.Contains(t, out.String(), "ERROR")
}

func TestSinkProgressBeginAndEnd(t *testing.T) {
	streams, _, out, _ := genericiooptions.NewTestIOStreams()
	s := NewSink(streams, Text)
	tr := progress.NewTracker("vec_copy")
	s.ProgressBegin([]*progress.Tracker{tr})
	tr.Apply(progress.Update{Kind: progress.UpdateCompleteSuccess})
	s.ProgressEnd([]*progress.Tracker{tr})
	assert.Contains(t, out.String(), "vec_copy")
}

func TestSinkProgressUpdateReRendersTable(t *testing.T) {
	streams, _, out, _ := genericiooptions.NewTestIOStreams()
	s := NewSink(streams, Text)
	tr := progress.NewTracker("vec_copy")
	s.ProgressBegin([]*progress.Tracker{tr})
	before := out.Len()

	tr.Apply(progress.Update{Kind: progress.UpdateDelta})
	s.ProgressUpdate(tr, progress.Update{Kind: progress.UpdateDelta})

	rendered := out.String()[before:]
	assert.Contains(t, rendered, "ITEM")
	assert.Contains(t, rendered, "vec_copy")
	assert.Contains(t, rendered, "running")
}
