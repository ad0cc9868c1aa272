package tablemeta

import "testing"

func TestRequireNotExistFailsWhenExists(t *testing.T) {
	if err := (RequireNotExist{}).Assert(&Metadata{UUID: "x"}, true); err == nil {
		t.Fatalf("expected failure when table exists")
	}
}

func TestRequireNotExistPassesWhenStaged(t *testing.T) {
	if err := (RequireNotExist{}).Assert(nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireUUIDMatch(t *testing.T) {
	cur := &Metadata{UUID: "abc"}
	if err := (RequireUUIDMatch{UUID: "abc"}).Assert(cur, true); err != nil {
		t.Fatalf("matching uuid should pass: %v", err)
	}
	if err := (RequireUUIDMatch{UUID: "other"}).Assert(cur, true); err == nil {
		t.Fatalf("mismatched uuid should fail")
	}
}

func TestAssignUUIDGuard(t *testing.T) {
	agg := &Aggregate{m: &Metadata{}}
	cur := &Metadata{UUID: "abc"}

	if err := (AssignUUID{UUID: "abc"}).Apply(agg, cur); err != nil {
		t.Fatalf("matching assign-uuid should be a no-op accept: %v", err)
	}
	if err := (AssignUUID{UUID: "different"}).Apply(agg, cur); err == nil {
		t.Fatalf("changing uuid must be rejected")
	}
}

func TestSetLocationGuard(t *testing.T) {
	agg := &Aggregate{m: &Metadata{}}
	cur := &Metadata{Location: "s3://b/t"}

	if err := (SetLocation{Location: "s3://b/t"}).Apply(agg, cur); err != nil {
		t.Fatalf("matching set-location should be accepted: %v", err)
	}
	if err := (SetLocation{Location: "s3://b/other"}).Apply(agg, cur); err == nil {
		t.Fatalf("changing location must be rejected")
	}
}

func TestSetPropertiesMergesAndPreservesExisting(t *testing.T) {
	agg := &Aggregate{m: &Metadata{Properties: map[string]string{"a": "1"}}}
	if err := (SetProperties{Properties: map[string]string{"b": "2"}}).Apply(agg, nil); err != nil {
		t.Fatal(err)
	}
	if agg.m.Properties["a"] != "1" || agg.m.Properties["b"] != "2" {
		t.Fatalf("expected merged properties, got %v", agg.m.Properties)
	}
}
