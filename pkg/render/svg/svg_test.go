package svg

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/gitway/pkg/layout"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

func testDiagram(t *testing.T) *layout.Diagram {
	t.Helper()
	snap := &snapshot.Snapshot{
		MinTime: 1000,
		MaxTime: 2000,
		Branches: []snapshot.Branch{
			{Name: "origin/master", Priority: 0, LastCommit: 2000, LastCommitter: "Ada <&>", Commits: map[string]snapshot.Commit{
				"a": {Timestamp: 500, ParentHashes: []string{}},
				"b": {Timestamp: 1200, ParentHashes: []string{"a"}},
				"c": {Timestamp: 2000, ParentHashes: []string{"b"}},
			}},
			{Name: "origin/feature/login", Priority: 4, LastCommit: 1500, Commits: map[string]snapshot.Commit{
				"d": {Timestamp: 1500, ParentHashes: []string{"b"}},
			}},
		},
		References: map[string][]snapshot.Ref{
			"c": {{Type: snapshot.RefBranch, Ref: "origin/master"}, {Type: snapshot.RefTag, Ref: "v2.0"}},
		},
	}
	eng, err := layout.NewEngine(layout.Options{Width: 1000, LaneHeight: 60})
	if err != nil {
		t.Fatal(err)
	}
	d, err := eng.Build(snap)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRenderWellFormed(t *testing.T) {
	out := Render(testDiagram(t), WithNow(time.Unix(2000+3*day, 0)))

	dec := xml.NewDecoder(strings.NewReader(string(out)))
	for {
		if _, err := dec.Token(); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("invalid XML: %v\n%s", err, out)
		}
	}
}

func TestRenderContent(t *testing.T) {
	out := string(Render(testDiagram(t), WithNow(time.Unix(2000+3*day, 0))))

	checks := []struct {
		name, want string
	}{
		{"canvas includes gutter", `width="1200" height="120"`},
		{"master label", ">master</text>"},
		{"feature label", ">login</text>"},
		{"escaped committer", "Ada &lt;&amp;&gt;"},
		{"age", ">3 days ago</text>"},
		{"prehistoric link", "ancestor prehistoric"},
		{"divergence link", `class="commitline divergence" data-source="origin/feature/login@d"`},
		{"tag ref", `class="ref tag"`},
		{"important node", `class="commitnode important" r="6"`},
	}
	for _, c := range checks {
		if !strings.Contains(out, c.want) {
			t.Errorf("%s: output missing %q", c.name, c.want)
		}
	}
}

func TestRenderOptions(t *testing.T) {
	d := testDiagram(t)

	plain := string(Render(d, WithoutRefs(), WithGutter(0)))
	if strings.Contains(plain, `class="ref`) {
		t.Error("WithoutRefs still renders refs")
	}
	if !strings.Contains(plain, `width="1000"`) {
		t.Error("WithGutter(0) did not shrink canvas")
	}

	all := string(Render(d, WithAllNodes()))
	if strings.Count(all, "<circle") <= strings.Count(string(Render(d)), "<circle") {
		t.Error("WithAllNodes did not add nodes")
	}
}

func TestRenderEmpty(t *testing.T) {
	out := string(Render(&layout.Diagram{Width: 100}))
	if !strings.HasPrefix(out, "<svg") || !strings.HasSuffix(out, "</svg>\n") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestElapsed(t *testing.T) {
	tests := []struct {
		ago  int64
		want string
	}{
		{0, "just now"},
		{120, "just now"},
		{121, "2 minutes ago"},
		{7200, "120 minutes ago"},
		{7201, "2 hours ago"},
		{172800, "48 hours ago"},
		{172801, "2 days ago"},
		{1209600, "14 days ago"},
		{1209601, "2 weeks ago"},
		{10 * week, "10 weeks ago"},
		{-50, "just now"},
	}
	for _, tt := range tests {
		if got := Elapsed(1_000_000_000, 1_000_000_000-tt.ago); got != tt.want {
			t.Errorf("Elapsed(%ds ago) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
