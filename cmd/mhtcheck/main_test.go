package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const checkItems = `group|Kitchen|Kitchen|kitchen
switch|Kitchen_Light|Kitchen Light|lightbulb|@Kitchen|1/2/3
switch|Kitchen_Dimmer|Dimmer|slider|@Kitchen|1/2/4+1/2/5:percent|1/2/6:bool
measurement|Kitchen_Temp|Temperature||@Kitchen|3/1/0:listen
switch|Hall_Light|Hall Light|lightbulb|1/2/3
`

func writeItemsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "home.items")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing items: %v", err)
	}
	return path
}

// execute runs the command tree with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range newRootCmd().Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"validate", "items", "lookup"} {
		if !found[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestValidate(t *testing.T) {
	path := writeItemsFile(t, checkItems)
	out, err := execute(t, "validate", path)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out, "ok, 5 items, 5 datapoints, 5 addresses") {
		t.Errorf("output = %q", out)
	}
}

func TestValidate_ParseError(t *testing.T) {
	path := writeItemsFile(t, checkItems+"switch|Kitchen_Light\n")
	_, err := execute(t, "validate", path)
	if err == nil {
		t.Fatal("validate should fail on a duplicate item")
	}

	var buf bytes.Buffer
	printError(&buf, err)
	if got, want := buf.String(), "line 6: duplicate item name \"Kitchen_Light\" (first defined on line 2)\n"; got != want {
		t.Errorf("printError() = %q, want %q", got, want)
	}
}

func TestValidate_Delimiter(t *testing.T) {
	path := writeItemsFile(t, "switch;A;Light;;1/1/1\n")
	if _, err := execute(t, "validate", path); err == nil {
		t.Error("default delimiter should not parse a semicolon file")
	}
	if _, err := execute(t, "validate", path, "--delimiter", ";"); err != nil {
		t.Errorf("validate --delimiter ';' error = %v", err)
	}
	if _, err := execute(t, "validate", path, "--delimiter", ":"); err == nil {
		t.Error("reserved delimiter should be rejected")
	}
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.items"))
	if err == nil {
		t.Fatal("validate should fail for a missing file")
	}
	var buf bytes.Buffer
	printError(&buf, err)
	if !strings.HasPrefix(buf.String(), "error: ") {
		t.Errorf("printError() = %q, want error: prefix", buf.String())
	}
}

func TestItems_JSON(t *testing.T) {
	path := writeItemsFile(t, checkItems)
	out, err := execute(t, "items", path, "--format", "json")
	if err != nil {
		t.Fatalf("items error = %v", err)
	}

	var entries []struct {
		Name       string `json:"name"`
		Datapoints []struct {
			Type string `json:"type"`
		} `json:"datapoints"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("unmarshal %q: %v", out, err)
	}
	if len(entries) != 5 || entries[2].Name != "Kitchen_Dimmer" || len(entries[2].Datapoints) != 2 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestItems_YAML(t *testing.T) {
	path := writeItemsFile(t, checkItems)
	out, err := execute(t, "items", path)
	if err != nil {
		t.Fatalf("items error = %v", err)
	}

	var entries []map[string]any
	if err := yaml.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("unmarshal %q: %v", out, err)
	}
	if len(entries) != 5 || entries[1]["name"] != "Kitchen_Light" || entries[1]["kind"] != "switch" {
		t.Errorf("entries = %v", entries)
	}
	if !strings.Contains(out, "- 1/2/3") {
		t.Errorf("addresses not rendered as text:\n%s", out)
	}
}

func TestItems_BadFormat(t *testing.T) {
	path := writeItemsFile(t, checkItems)
	if _, err := execute(t, "items", path, "--format", "xml"); err == nil {
		t.Error("unsupported format should fail")
	}
}

func TestLookup(t *testing.T) {
	path := writeItemsFile(t, checkItems)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"by address", []string{"--address", "1/2/3"}, []string{`"type": "bool"`, `"Kitchen_Light"`, `"Hall_Light"`}},
		{"by dotted address", []string{"--address", "1.2.3"}, []string{`"Hall_Light"`}},
		{"item", []string{"--item", "Kitchen_Temp"}, []string{`"widget": "text"`, `"role": "listen"`}},
		{"item and type", []string{"--item", "Kitchen_Dimmer", "--type", "percent"}, []string{`"dpt": "5.001"`, `"1/2/4"`, `"1/2/5"`}},
		{"item and address", []string{"--item", "Kitchen_Dimmer", "--address", "1/2/6"}, []string{`"type": "bool"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"lookup", path, "--format", "json"}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("lookup error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output %q does not contain %s", out, want)
				}
			}
		})
	}
}

func TestLookup_Errors(t *testing.T) {
	path := writeItemsFile(t, checkItems)

	tests := []struct {
		name     string
		args     []string
		notFound bool
	}{
		{"no selector", nil, false},
		{"type without item", []string{"--type", "bool"}, false},
		{"bad address", []string{"--address", "32/0/0"}, false},
		{"unknown type", []string{"--item", "Kitchen_Light", "--type", "colour"}, false},
		{"unknown item", []string{"--item", "Nope"}, true},
		{"missing datapoint", []string{"--item", "Kitchen_Light", "--type", "percent"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"lookup", path}, tt.args...)...)
			if err == nil {
				t.Fatal("lookup should fail")
			}
			if got := errors.Is(err, errNotFound); got != tt.notFound {
				t.Errorf("errors.Is(err, errNotFound) = %v, want %v (err = %v)", got, tt.notFound, err)
			}
		})
	}
}
