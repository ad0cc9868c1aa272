// Package pagination implements the catalog's opaque page-token encoding.
//
// Requests carry a three-state PageToken (absent / empty / present) and
// responses carry a three-state NextPageToken (next / finished / unsupported),
// matching the protocol's exact serde behavior for the "page-token" and
// "next-page-token" JSON fields.
package pagination

import "encoding/json"

// PageToken is the three-state token a list request may carry.
type PageToken struct {
	state tokenState
	value string
}

type tokenState int

const (
	stateAbsent tokenState = iota
	stateEmpty
	statePresent
)

// Absent is the zero value: the client did not paginate at all.
var Absent = PageToken{state: stateAbsent}

// Empty is an explicitly empty token, distinct from Absent: some clients
// send `"page-token": ""` to mean "start from the beginning" in a request
// that otherwise requires the key to be present.
var Empty = PageToken{state: stateEmpty}

// Present wraps a non-empty cursor string.
func Present(cursor string) PageToken { return PageToken{state: statePresent, value: cursor} }

// IsAbsent, IsEmpty and Cursor let callers switch on the token's state.
func (t PageToken) IsAbsent() bool { return t.state == stateAbsent }
func (t PageToken) IsEmpty() bool  { return t.state == stateEmpty }

// Cursor returns the cursor string and whether the token carries one
// (i.e. is Present). Empty and Absent both return ("", false).
func (t PageToken) Cursor() (string, bool) {
	if t.state == statePresent {
		return t.value, true
	}
	return "", false
}

// UnmarshalJSON implements the request-deserialize rule: missing key never
// reaches UnmarshalJSON at all (the field is *PageToken and stays nil);
// an empty string decodes to Empty; anything else decodes to Present.
func (t *PageToken) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Empty
	} else {
		*t = Present(s)
	}
	return nil
}

// MarshalJSON round-trips a PageToken symmetrically to UnmarshalJSON; it
// is provided for completeness (round-trip tests) even though requests,
// not responses, carry PageToken.
func (t PageToken) MarshalJSON() ([]byte, error) {
	if t.state == statePresent {
		return json.Marshal(t.value)
	}
	return json.Marshal("")
}

// FromQueryParam implements the request-deserialize rule directly against
// an HTTP query parameter, where "missing key" and "present but empty"
// must be distinguished by the caller (net/url collapses both to "" unless
// the caller also checks whether the key was present).
func FromQueryParam(present bool, value string) PageToken {
	if !present {
		return Absent
	}
	if value == "" {
		return Empty
	}
	return Present(value)
}

// NextPageToken is the three-state token a list response carries.
type NextPageToken struct {
	state tokenState
	value string
}

// NextFinished signals no further pages; it serializes as the JSON literal
// string "null" (not the JSON null value — the protocol's sentinel).
var NextFinished = NextPageToken{state: stateEmpty}

// NextUnsupported signals that the backend cannot report a cursor; the
// field must be omitted from the response entirely.
var NextUnsupported = NextPageToken{state: stateAbsent}

// NextPresent wraps the cursor for the next page.
func NextPresent(cursor string) NextPageToken {
	return NextPageToken{state: statePresent, value: cursor}
}

// Omit reports whether the field must be omitted from the serialized
// response (the Unsupported state).
func (t NextPageToken) Omit() bool { return t.state == stateAbsent }

// MarshalJSON implements the response-serialize rule: Finished becomes the
// literal string "null"; Present(s) becomes the string s. Omit is handled
// by the caller via Omit(), since "omit the field" cannot be expressed by
// returning a value from MarshalJSON.
func (t NextPageToken) MarshalJSON() ([]byte, error) {
	switch t.state {
	case stateEmpty:
		return json.Marshal("null")
	case statePresent:
		return json.Marshal(t.value)
	default:
		// Unsupported should have been filtered out via Omit() before
		// marshaling; fall back to the same sentinel as Finished so a
		// caller that forgets the check does not emit invalid JSON.
		return json.Marshal("null")
	}
}
