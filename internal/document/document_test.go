package document

import (
	"encoding/json"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func parseMapping(t *testing.T, src string) *Mapping {
	t.Helper()
	var m Mapping
	if err := yaml.Unmarshal([]byte(src), &m); err != nil {
		t.Fatalf("failed to parse YAML: %v", err)
	}
	return &m
}

func TestUnmarshal_PreservesKeyOrder(t *testing.T) {
	m := parseMapping(t, `
zebra: 1
alpha: 2
mike: 3
bravo: 4
`)

	want := []string{"zebra", "alpha", "mike", "bravo"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected key order %v, got %v", want, got)
	}
}

func TestUnmarshal_ScalarTypes(t *testing.T) {
	m := parseMapping(t, `
name: web
count: 3
ratio: 1.5
enabled: true
empty:
`)

	tests := []struct {
		key  string
		want any
	}{
		{"name", "web"},
		{"count", 3},
		{"ratio", 1.5},
		{"enabled", true},
		{"empty", nil},
	}
	for _, tt := range tests {
		got, ok := m.Get(tt.key)
		if !ok {
			t.Errorf("Expected key %q to be present", tt.key)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Key %q: expected %#v, got %#v", tt.key, tt.want, got)
		}
	}
}

func TestUnmarshal_NestedStructures(t *testing.T) {
	m := parseMapping(t, `
nodes:
  web:
    memory: 512
folders:
  - host: ./src
    guest: /srv
`)

	nodes, ok := m.Get("nodes")
	if !ok {
		t.Fatal("Expected 'nodes' key")
	}
	nodesMap, ok := AsMapping(nodes)
	if !ok {
		t.Fatalf("Expected nodes to be a *Mapping, got %T", nodes)
	}
	web, _ := nodesMap.Get("web")
	webMap, ok := AsMapping(web)
	if !ok {
		t.Fatalf("Expected web to be a *Mapping, got %T", web)
	}
	if mem, _ := webMap.Get("memory"); mem != 512 {
		t.Errorf("Expected memory 512, got %#v", mem)
	}

	folders, _ := m.Get("folders")
	seq, ok := folders.([]any)
	if !ok {
		t.Fatalf("Expected folders to be a []any, got %T", folders)
	}
	if len(seq) != 1 {
		t.Fatalf("Expected 1 folder entry, got %d", len(seq))
	}
	entry, ok := AsMapping(seq[0])
	if !ok {
		t.Fatalf("Expected folder entry to be a *Mapping, got %T", seq[0])
	}
	if host, _ := entry.Get("host"); host != "./src" {
		t.Errorf("Expected host './src', got %#v", host)
	}
}

func TestSet_ExistingKeyKeepsPosition(t *testing.T) {
	m := NewMapping()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3)

	if got := m.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Expected keys [a b], got %v", got)
	}
	if v, _ := m.Get("a"); v != 3 {
		t.Errorf("Expected a=3, got %#v", v)
	}
}

func TestMerge_IdentityLaws(t *testing.T) {
	doc := parseMapping(t, `
boxes:
  focal: https://example.com/focal.box
nodes:
  web:
    memory: 512
`)

	if got := Merge(doc, NewMapping()); !reflect.DeepEqual(got, doc) {
		t.Errorf("merge(D, empty) != D:\ngot  %#v\nwant %#v", got, doc)
	}
	if got := Merge(NewMapping(), doc); !reflect.DeepEqual(got, doc) {
		t.Errorf("merge(empty, D) != D:\ngot  %#v\nwant %#v", got, doc)
	}
}

func TestMerge_OverrideWinsDeep(t *testing.T) {
	base := parseMapping(t, `
nodes:
  a:
    memory: 512
    hostname: a.example.com
`)
	override := parseMapping(t, `
nodes:
  a:
    memory: 1024
`)

	merged := Merge(base, override)

	nodes, _ := merged.Get("nodes")
	a, _ := nodes.(*Mapping).Get("a")
	attrs := a.(*Mapping)

	if mem, _ := attrs.Get("memory"); mem != 1024 {
		t.Errorf("Expected override memory 1024, got %#v", mem)
	}
	// Deep merge, not wholesale replacement: primary-only attributes survive.
	if hn, _ := attrs.Get("hostname"); hn != "a.example.com" {
		t.Errorf("Expected hostname preserved, got %#v", hn)
	}
}

func TestMerge_SequencesReplaceWholesale(t *testing.T) {
	base := parseMapping(t, `
plugins: [one, two, three]
`)
	override := parseMapping(t, `
plugins: [four]
`)

	merged := Merge(base, override)
	got, _ := merged.Get("plugins")
	if !reflect.DeepEqual(got, []any{"four"}) {
		t.Errorf("Expected override sequence to replace base, got %#v", got)
	}
}

func TestMerge_TypeMismatchReplacesWholesale(t *testing.T) {
	base := parseMapping(t, `
setting:
  nested: true
other: scalar
`)
	override := parseMapping(t, `
setting: plain
other:
  now: mapping
`)

	merged := Merge(base, override)

	if v, _ := merged.Get("setting"); v != "plain" {
		t.Errorf("Expected mapping replaced by scalar, got %#v", v)
	}
	v, _ := merged.Get("other")
	m, ok := AsMapping(v)
	if !ok {
		t.Fatalf("Expected scalar replaced by mapping, got %T", v)
	}
	if nested, _ := m.Get("now"); nested != "mapping" {
		t.Errorf("Expected nested value 'mapping', got %#v", nested)
	}
}

func TestMerge_BaseOnlyKeysCarryThrough(t *testing.T) {
	base := parseMapping(t, `
boxes:
  focal: https://example.com/focal.box
nodes:
  web: {}
`)
	override := parseMapping(t, `
nodes:
  db: {}
`)

	merged := Merge(base, override)
	if _, ok := merged.Get("boxes"); !ok {
		t.Error("Expected base-only 'boxes' section to carry through")
	}
	nodes, _ := merged.Get("nodes")
	want := []string{"web", "db"}
	if got := nodes.(*Mapping).Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected node order %v, got %v", want, got)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := parseMapping(t, `
nodes:
  a:
    memory: 512
`)
	override := parseMapping(t, `
nodes:
  a:
    memory: 1024
`)
	baseBefore := base.Clone()
	overrideBefore := override.Clone()

	merged := Merge(base, override)

	// Mutating the result must not leak into either input.
	nodes, _ := merged.Get("nodes")
	a, _ := nodes.(*Mapping).Get("a")
	a.(*Mapping).Set("memory", 9999)
	a.(*Mapping).Set("injected", true)

	if !reflect.DeepEqual(base, baseBefore) {
		t.Error("Merge mutated the base document")
	}
	if !reflect.DeepEqual(override, overrideBefore) {
		t.Error("Merge mutated the override document")
	}
}

func TestMarshalYAML_RoundTripPreservesOrder(t *testing.T) {
	m := parseMapping(t, `
zulu: 1
alpha:
  november: true
  charlie: false
`)

	data, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var again Mapping
	if err := yaml.Unmarshal(data, &again); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(&again, m) {
		t.Errorf("Round trip changed document:\ngot  %#v\nwant %#v", &again, m)
	}
	if got := again.Keys(); !reflect.DeepEqual(got, []string{"zulu", "alpha"}) {
		t.Errorf("Expected key order preserved, got %v", got)
	}
}

func TestMarshalJSON_PreservesOrder(t *testing.T) {
	m := NewMapping()
	m.Set("zebra", 1)
	m.Set("alpha", []any{"a", "b"})
	inner := NewMapping()
	inner.Set("y", true)
	inner.Set("x", nil)
	m.Set("inner", inner)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"zebra":1,"alpha":["a","b"],"inner":{"y":true,"x":null}}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}

func TestUnmarshal_RejectsNonMappingRoot(t *testing.T) {
	var m Mapping
	if err := yaml.Unmarshal([]byte("- one\n- two\n"), &m); err == nil {
		t.Error("Expected error for sequence root, got nil")
	}
}
