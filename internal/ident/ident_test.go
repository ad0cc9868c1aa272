package ident

import (
	"encoding/json"
	"testing"
)

func TestNamespaceCanonicalRoundTrip(t *testing.T) {
	ns := Namespace{"a", "b", "c"}
	canon := ns.Canonical()
	if canon != "a\x1fb\x1fc" {
		t.Fatalf("unexpected canonical form: %q", canon)
	}
	got := ParseNamespace(canon)
	if !got.Equal(ns) {
		t.Fatalf("round-trip mismatch: got %v, want %v", got, ns)
	}
}

func TestNamespaceEqualIsCaseSensitive(t *testing.T) {
	a := Namespace{"Foo"}
	b := Namespace{"foo"}
	if a.Equal(b) {
		t.Fatalf("namespace equality must be case-sensitive")
	}
}

func TestParseEmptyNamespace(t *testing.T) {
	got := ParseNamespace("")
	if len(got) != 0 {
		t.Fatalf("expected empty namespace, got %v", got)
	}
}

func TestTableIdentString(t *testing.T) {
	ti := TableIdent{Namespace: Namespace{"a", "b"}, Name: "t"}
	want := "a\x1fb\x1ft"
	if got := ti.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNewTableIDIsUnique(t *testing.T) {
	a, err := NewTableID()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewTableID()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("expected distinct table IDs")
	}
}

func TestTableIDJSONRoundTrip(t *testing.T) {
	id, err := NewTableID()
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `"` + id.String() + `"`
	if string(data) != want {
		t.Fatalf("TableID did not marshal as its UUID string: got %s, want %s", data, want)
	}

	var got TableID
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != id {
		t.Fatalf("round-trip mismatch: got %v, want %v", got, id)
	}
}
