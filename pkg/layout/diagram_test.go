package layout

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

func TestDiagramRoundTrip(t *testing.T) {
	d := build([]snapshot.Branch{
		{Name: "main", LastCommit: 200, Commits: map[string]snapshot.Commit{
			"a": commit(50),
			"b": commit(120, "a"),
			"c": commit(200, "b"),
		}},
		{Name: "topic", Priority: 4, LastCommit: 180, Commits: map[string]snapshot.Commit{
			"t": commit(180, "b"),
		}},
	}, snapshot.Window{Min: 100, Max: 200})

	data, err := d.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalDiagram(data)
	if err != nil {
		t.Fatalf("UnmarshalDiagram: %v", err)
	}

	if len(got.Nodes) != len(d.Nodes) || len(got.Links) != len(d.Links) || len(got.Lanes) != len(d.Lanes) {
		t.Fatalf("counts: nodes %d/%d links %d/%d lanes %d/%d",
			len(got.Nodes), len(d.Nodes), len(got.Links), len(d.Links), len(got.Lanes), len(d.Lanes))
	}
	if got.Height != d.Height || got.LaneHeight != d.LaneHeight || got.Window != d.Window {
		t.Errorf("dimensions changed: %+v", got)
	}
	for i, l := range got.Links {
		want := d.Links[i]
		if l.Source.ID != want.Source.ID || l.Target.ID != want.Target.ID || l.Kind != want.Kind || l.Prehistoric != want.Prehistoric {
			t.Errorf("link %d = %s->%s %s, want %s->%s %s", i, l.Source.ID, l.Target.ID, l.Kind, want.Source.ID, want.Target.ID, want.Kind)
		}
		if got.Node(l.Source.ID) != l.Source {
			t.Errorf("link %d source not shared with node list", i)
		}
	}
}

func TestUnmarshalDiagramDangling(t *testing.T) {
	data := []byte(`{"nodes":[{"id":"main@a"}],"links":[{"source":"main@a","target":"main@zz","kind":"lane"}]}`)
	if _, err := UnmarshalDiagram(data); !errors.Is(err, errors.ErrCodeDanglingReference) {
		t.Errorf("err = %v, want DANGLING_REFERENCE", err)
	}
	if _, err := UnmarshalDiagram([]byte("{")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestDiagramEmptyCollectionsAreArrays(t *testing.T) {
	tests := []struct {
		name     string
		branches []snapshot.Branch
	}{
		{"no branches", nil},
		{"single node", []snapshot.Branch{
			{Name: "main", LastCommit: 150, Commits: map[string]snapshot.Commit{"a": commit(150)}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := build(tt.branches, snapshot.Window{Min: 100, Max: 200}).Marshal()
			if err != nil {
				t.Fatal(err)
			}
			var raw map[string]json.RawMessage
			if err := json.Unmarshal(data, &raw); err != nil {
				t.Fatal(err)
			}
			for _, key := range []string{"lanes", "nodes", "links"} {
				if v := string(raw[key]); v == "" || v == "null" {
					t.Errorf("%s = %q, want an array", key, v)
				}
			}
			if string(raw["links"]) != "[]" {
				t.Errorf("links = %s, want []", raw["links"])
			}
		})
	}
}
