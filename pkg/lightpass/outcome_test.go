package lightpass

import (
	"reflect"
	"strings"
	"testing"

	"github.com/zen-systems/localgate/pkg/contextpack"
)

func TestDedupeReasons(t *testing.T) {
	got := dedupeReasons(
		[]string{"no_hedging: too tentative", "length: too short"},
		[]string{"length: too short", "", "retry local-model request failed"},
	)
	want := []string{"no_hedging: too tentative", "length: too short", "retry local-model request failed"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dedupeReasons = %v, want %v", got, want)
	}
}

func TestDigestFiles(t *testing.T) {
	packed := &contextpack.PackedContext{
		Outlines: []contextpack.FileOutline{
			{Path: "a.go", Language: "go", TotalLines: 120, Functions: []string{"Run"}},
			{Path: "b.py", Language: "python", TotalLines: 40, Classes: []string{"Job"}},
		},
	}

	files := digestFiles(packed)
	if len(files) != 2 {
		t.Fatalf("digest = %d files, want 2", len(files))
	}
	if files[0].Path != "a.go" || files[0].TotalLines != 120 {
		t.Fatalf("first digest = %+v", files[0])
	}

	if digestFiles(nil) != nil {
		t.Fatal("nil packed context should digest to nil")
	}
}

func TestRenderDigest(t *testing.T) {
	out := RenderDigest([]FileDigest{
		{Path: "a.go", Language: "go", TotalLines: 120, Functions: []string{"Run", "Stop"}},
		{Path: "b.py", Language: "python", TotalLines: 40},
	})

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("digest lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "a.go (go, 120 lines)") || !strings.Contains(lines[0], "Run, Stop") {
		t.Fatalf("first line = %q", lines[0])
	}
}
