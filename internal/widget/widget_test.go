package widget

import (
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-mht/internal/mht"
)

func TestDefaultFor(t *testing.T) {
	tests := []struct {
		kind mht.Kind
		want Type
	}{
		{mht.KindSwitch, Switch},
		{mht.KindMeasurement, Text},
		{mht.KindContact, Text},
		{mht.KindShade, Switch},
		{mht.KindString, Selection},
		{mht.KindGroup, Group},
	}
	for _, tt := range tests {
		got, ok := DefaultFor(tt.kind)
		if !ok || got != tt.want {
			t.Errorf("DefaultFor(%s) = %q, %v, want %q", tt.kind, got, ok, tt.want)
		}
	}

	if _, ok := DefaultFor("lamp"); ok {
		t.Error("DefaultFor(lamp) reported a widget")
	}
}

func TestDefaultFor_CoversEveryKind(t *testing.T) {
	for _, k := range mht.Kinds() {
		if _, ok := DefaultFor(k); !ok {
			t.Errorf("kind %s has no default widget", k)
		}
	}
}

func TestResolver(t *testing.T) {
	res, err := mht.Parse(strings.NewReader("group|Ground|Ground Floor\nswitch|Light||bulb|@Ground|1/0/0\nstring|Mode\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	r := NewResolver(res)

	if w, ok := r.Widget("Light"); !ok || w != Switch {
		t.Errorf("Widget(Light) = %q, %v, want switch", w, ok)
	}
	if _, ok := r.Widget("Missing"); ok {
		t.Error("Widget(Missing) reported found")
	}

	d, ok := r.Describe("Light")
	if !ok {
		t.Fatal("Describe(Light) not found")
	}
	want := Descriptor{Item: "Light", Kind: mht.KindSwitch, Widget: Switch, Icon: "bulb"}
	if d != want {
		t.Errorf("Describe(Light) = %+v, want %+v", d, want)
	}

	d, _ = r.Describe("Ground")
	if d.Widget != Group || d.Label != "Ground Floor" || d.Icon != "" {
		t.Errorf("Describe(Ground) = %+v", d)
	}
	if d, _ := r.Describe("Mode"); d.Widget != Selection {
		t.Errorf("Describe(Mode).Widget = %q, want selection", d.Widget)
	}
	if _, ok := r.Describe("Missing"); ok {
		t.Error("Describe(Missing) reported found")
	}
}
