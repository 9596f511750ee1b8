// Package output implements the CmdOutput sink: progress rendering and a
// selectable outcome format for presenting results and errors.
package output

import (
	"encoding/json"
	"fmt"

	"github.com/aquasecurity/table"
	"gopkg.in/yaml.v3"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/progress"
)

// ItemErrorEntry is one item's failure within an ItemError outcome.
type ItemErrorEntry struct {
	ItemID itemid.ID `yaml:"item_id" json:"item_id"`
	Error  string    `yaml:"error" json:"error"`
}

// ItemErrors is the sorted-by-item-id list of per-item failures. Present
// renders it as a one-line-per-item table under the Text format; the
// other formats marshal it as-is.
type ItemErrors []ItemErrorEntry

// Format selects how Present/WriteErr render a value.
type Format int

const (
	Text Format = iota
	YAML
	JSON
	None
)

func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return Text, nil
	case "yaml":
		return YAML, nil
	case "json":
		return JSON, nil
	case "none":
		return None, nil
	default:
		return Text, fmt.Errorf("output: unknown outcome format %q", s)
	}
}

// Write is the interface the runtime writes through, built over a
// genericiooptions.IOStreams In/Out/ErrOut triple.
type Write interface {
	ProgressBegin(trackers []*progress.Tracker)
	ProgressUpdate(tracker *progress.Tracker, update progress.Update)
	ProgressEnd(trackers []*progress.Tracker)
	Present(value any) error
	WriteErr(err error) error
}

// Sink is the default Write implementation: a Text table writer for
// progress plus a selectable outcome format for Present/WriteErr. Between
// ProgressBegin and ProgressEnd it holds the tracker list so every update
// re-renders the whole table rather than logging a line per event.
type Sink struct {
	Streams genericiooptions.IOStreams
	Format  Format

	trackers []*progress.Tracker
}

// NewSink builds a Sink over streams with the given outcome format.
func NewSink(streams genericiooptions.IOStreams, format Format) *Sink {
	return &Sink{Streams: streams, Format: format}
}

// renderProgressTable writes the current snapshot of every tracker as one
// table, the updating-table rendering the Text format uses for progress.
func (s *Sink) renderProgressTable() {
	t := table.New(s.Streams.Out)
	t.SetHeaders("ITEM", "STATE", "COMPLETED")
	for _, tr := range s.trackers {
		snap := tr.Snapshot()
		completed := fmt.Sprintf("%d", snap.Completed)
		if snap.Limit.N > 0 {
			completed = fmt.Sprintf("%d/%d", snap.Completed, snap.Limit.N)
		}
		t.AddRow(string(snap.ItemID), snap.State.String(), completed)
	}
	t.Render()
}

func (s *Sink) ProgressBegin(trackers []*progress.Tracker) {
	if s.Format != Text || len(trackers) == 0 {
		return
	}
	s.trackers = trackers
	s.renderProgressTable()
}

func (s *Sink) ProgressUpdate(*progress.Tracker, progress.Update) {
	if s.Format != Text || len(s.trackers) == 0 {
		return
	}
	s.renderProgressTable()
}

func (s *Sink) ProgressEnd(trackers []*progress.Tracker) {
	if s.Format != Text || len(trackers) == 0 {
		return
	}
	s.trackers = trackers
	s.renderProgressTable()
	s.trackers = nil
}

func (s *Sink) Present(value any) error {
	switch s.Format {
	case None:
		return nil
	case YAML:
		b, err := yaml.Marshal(value)
		if err != nil {
			return fmt.Errorf("output: marshaling yaml: %w", err)
		}
		_, err = s.Streams.Out.Write(b)
		return err
	case JSON:
		b, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return fmt.Errorf("output: marshaling json: %w", err)
		}
		b = append(b, '\n')
		_, err = s.Streams.Out.Write(b)
		return err
	default:
		if errs, ok := value.(ItemErrors); ok {
			t := table.New(s.Streams.Out)
			t.SetHeaders("ITEM", "ERROR")
			for _, e := range errs {
				t.AddRow(string(e.ItemID), e.Error)
			}
			t.Render()
			return nil
		}
		_, err := fmt.Fprintf(s.Streams.Out, "%+v\n", value)
		return err
	}
}

func (s *Sink) WriteErr(cause error) error {
	switch s.Format {
	case None:
		return nil
	case YAML:
		b, err := yaml.Marshal(map[string]string{"error": cause.Error()})
		if err != nil {
			return fmt.Errorf("output: marshaling yaml: %w", err)
		}
		_, err = s.Streams.ErrOut.Write(b)
		return err
	case JSON:
		b, err := json.Marshal(map[string]string{"error": cause.Error()})
		if err != nil {
			return fmt.Errorf("output: marshaling json: %w", err)
		}
		_, err = s.Streams.ErrOut.Write(append(b, '\n'))
		return err
	default:
		_, err := fmt.Fprintf(s.Streams.ErrOut, "error: %s\n", cause)
		return err
	}
}
