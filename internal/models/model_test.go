package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func decodeModel(t *testing.T, body string) *Model {
	t.Helper()
	var m Model
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("Failed to decode model: %v", err)
	}
	return &m
}

func TestModel_UnmarshalKnownAndExtraKeys(t *testing.T) {
	m := decodeModel(t, `{
		"id": "gpt-helper",
		"name": "Helper",
		"base_model_id": "openai.gpt-4o",
		"meta": {"description": "keep me"},
		"params": {"temperature": 0.2},
		"access_control": null,
		"is_active": true
	}`)

	if m.ID != "gpt-helper" {
		t.Errorf("Expected id gpt-helper, got %q", m.ID)
	}
	if m.Name != "Helper" {
		t.Errorf("Expected name Helper, got %q", m.Name)
	}
	if m.BaseModelID != "openai.gpt-4o" {
		t.Errorf("Expected base model openai.gpt-4o, got %q", m.BaseModelID)
	}
	if string(m.Meta) != `{"description": "keep me"}` {
		t.Errorf("Meta not kept verbatim: %s", m.Meta)
	}
	if len(m.Extra) != 2 {
		t.Errorf("Expected 2 extra keys, got %d", len(m.Extra))
	}
	if !m.Has("access_control") {
		t.Error("Expected null extra key to be present")
	}
}

func TestModel_UnmarshalRejectsNonObject(t *testing.T) {
	for _, body := range []string{`"just a string"`, `[1,2]`, `null`, `42`} {
		var m Model
		err := json.Unmarshal([]byte(body), &m)
		if !errors.Is(err, ErrNotObject) {
			t.Errorf("Unmarshal(%s) error = %v, want ErrNotObject", body, err)
		}
	}
}

func TestModel_RoundTripPreservesEncoding(t *testing.T) {
	m := decodeModel(t, `{"id":7,"name":null,"base_model_id":"a","custom":{"x":[1,2,3]}}`)

	if m.ID != "7" {
		t.Errorf("Expected numeric id rendered as 7, got %q", m.ID)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}

	expected := map[string]string{
		"id":            `7`,
		"name":          `null`,
		"base_model_id": `"a"`,
		"custom":        `{"x":[1,2,3]}`,
	}
	for key, want := range expected {
		if got := string(fields[key]); got != want {
			t.Errorf("key %s = %s, want %s", key, got, want)
		}
	}
	if _, ok := fields["meta"]; ok {
		t.Error("Absent meta must not be invented on plain marshal")
	}
}

func TestModel_MarshalChangedField(t *testing.T) {
	m := decodeModel(t, `{"id":"a","base_model_id":"old"}`)
	c := m.Clone()
	c.BaseModelID = "new"
	c.Extra["added"] = json.RawMessage(`1`)

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"added":1,"base_model_id":"new","id":"a"}` {
		t.Errorf("Unexpected output: %s", out)
	}

	if m.BaseModelID != "old" || m.Has("added") {
		t.Error("Clone must not alias the original record")
	}
}

func TestStringValue(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{`"abc"`, "abc"},
		{` "spaced" `, "spaced"},
		{`12`, "12"},
		{`-1.5`, "-1.5"},
		{`null`, ""},
		{`true`, ""},
		{`{"a":1}`, ""},
		{``, ""},
	}

	for _, tt := range tests {
		if got := StringValue(json.RawMessage(tt.raw)); got != tt.expected {
			t.Errorf("StringValue(%s) = %q, want %q", tt.raw, got, tt.expected)
		}
	}
}
