package pagination

import (
	"encoding/json"
	"testing"
)

func TestPageTokenUnmarshalEmptyString(t *testing.T) {
	var tok PageToken
	if err := json.Unmarshal([]byte(`""`), &tok); err != nil {
		t.Fatal(err)
	}
	if !tok.IsEmpty() {
		t.Fatalf("expected Empty state")
	}
}

func TestPageTokenUnmarshalPresent(t *testing.T) {
	var tok PageToken
	if err := json.Unmarshal([]byte(`"abc"`), &tok); err != nil {
		t.Fatal(err)
	}
	cursor, ok := tok.Cursor()
	if !ok || cursor != "abc" {
		t.Fatalf("expected Present(abc), got cursor=%q ok=%v", cursor, ok)
	}
}

func TestFromQueryParamAbsentVsEmpty(t *testing.T) {
	if !FromQueryParam(false, "").IsAbsent() {
		t.Fatalf("missing key must be Absent")
	}
	if !FromQueryParam(true, "").IsEmpty() {
		t.Fatalf("present-but-empty key must be Empty")
	}
	cursor, ok := FromQueryParam(true, "xyz").Cursor()
	if !ok || cursor != "xyz" {
		t.Fatalf("present key must carry its cursor")
	}
}

func TestNextPageTokenFinishedSerializesAsNullLiteral(t *testing.T) {
	b, err := json.Marshal(NextFinished)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"null"` {
		t.Fatalf(`expected the literal string "null", got %s`, b)
	}
}

func TestNextPageTokenUnsupportedIsOmitted(t *testing.T) {
	if !NextUnsupported.Omit() {
		t.Fatalf("Unsupported must report Omit() == true")
	}
	if NextFinished.Omit() || NextPresent("x").Omit() {
		t.Fatalf("only Unsupported omits the field")
	}
}

func TestNextPageTokenPresentSerializesAsCursor(t *testing.T) {
	b, err := json.Marshal(NextPresent("cur"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"cur"` {
		t.Fatalf("got %s", b)
	}
}
