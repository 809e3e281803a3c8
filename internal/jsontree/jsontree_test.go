package jsontree

import (
	"reflect"
	"strings"
	"testing"
)

func TestDecode_Kinds(t *testing.T) {
	v, err := Decode([]byte(`{"name":"exchange","rate":4.5,"ok":true,"tags":["fx","usd"],"missing":null}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Kind != KindObject {
		t.Fatalf("Expected object root, got %v", v.Kind)
	}
	if f := v.Fields["name"]; f.Kind != KindString || f.Str != "exchange" {
		t.Fatalf("String field wrong: %+v", f)
	}
	if f := v.Fields["rate"]; f.Kind != KindNumber || f.Number != 4.5 {
		t.Fatalf("Number field wrong: %+v", f)
	}
	if f := v.Fields["ok"]; f.Kind != KindBool || !f.Bool {
		t.Fatalf("Bool field wrong: %+v", f)
	}
	if f := v.Fields["tags"]; f.Kind != KindArray || len(f.Items) != 2 {
		t.Fatalf("Array field wrong: %+v", f)
	}
	if f := v.Fields["missing"]; f.Kind != KindNull {
		t.Fatalf("Null field wrong: %+v", f)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte(`{"broken`)); err == nil {
		t.Fatal("Expected error for malformed JSON")
	}
}

func TestFromAny_Interface_Roundtrip(t *testing.T) {
	in := map[string]any{
		"n":    float64(3),
		"s":    "x",
		"b":    false,
		"arr":  []any{"a", float64(1)},
		"null": nil,
	}
	got := FromAny(in).Interface()
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("Roundtrip mismatch:\n in: %#v\nout: %#v", in, got)
	}
}

func TestWalk_DeterministicOrderAndPruning(t *testing.T) {
	v := FromAny(map[string]any{
		"b": map[string]any{"inner": "deep"},
		"a": "first",
		"c": []any{"x", "y"},
	})

	var visited []string
	Walk(v, func(path []string, node Value) bool {
		visited = append(visited, strings.Join(path, "."))
		// Prune below "b" so "b.inner" is never reached.
		return !(len(path) == 1 && path[0] == "b")
	})

	want := []string{"", "a", "b", "c", "c.0", "c.1"}
	if !reflect.DeepEqual(visited, want) {
		t.Fatalf("Walk order wrong:\n got: %v\nwant: %v", visited, want)
	}
}

func TestStrings_CollectsLeaves(t *testing.T) {
	v := FromAny(map[string]any{
		"a": "alpha",
		"n": float64(1),
		"nested": map[string]any{
			"path": "/tmp/chart.png",
		},
		"list": []any{"beta", true},
	})

	got := v.Strings()
	want := []string{"alpha", "beta", "/tmp/chart.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Strings wrong:\n got: %v\nwant: %v", got, want)
	}
}

func TestFlatten_DottedPaths(t *testing.T) {
	v := FromAny(map[string]any{
		"task": map[string]any{
			"id":    "t-1",
			"state": "working",
		},
		"parts": []any{
			map[string]any{"kind": "text"},
		},
	})

	got := Flatten(v)
	want := map[string]any{
		"task.id":      "t-1",
		"task.state":   "working",
		"parts.0.kind": "text",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Flatten wrong:\n got: %#v\nwant: %#v", got, want)
	}
}

func TestFlatten_ScalarRoot(t *testing.T) {
	got := Flatten(FromAny("solo"))
	if len(got) != 1 || got[""] != "solo" {
		t.Fatalf("Scalar root flatten wrong: %#v", got)
	}
}
