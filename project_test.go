package brine

import (
	"encoding/base64"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
	capitantest "github.com/zoobzio/capitan/testing"
)

func entryAt(t *testing.T, tree *Tree, name string) Entry {
	t.Helper()
	e, ok := tree.Get(name)
	if !ok {
		t.Fatalf("entry %q missing", name)
	}
	return e
}

func TestProject_Scalars(t *testing.T) {
	r := newTestRegistry(t)

	tree, err := r.Project(newTestPerson())
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}

	tests := []struct {
		name string
		tag  Tag
		text string
	}{
		{"name", TagNone, "Alice"},
		{"age", TagInt, "34"},
		{"height", TagFloat, "1.5"},
		{"active", TagBool, "true"},
		{"rank", TagInt, "7"},
		{"nickname", TagNone, "Al"},
		{"avatar", TagNone, base64.StdEncoding.EncodeToString([]byte{0xde, 0xad, 0xbe, 0xef})},
		{"born", TagNone, "1990-03-04T05:06:07Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entryAt(t, tree, tt.name)
			if e.Key.Tag != tt.tag {
				t.Errorf("tag = %q, want %q", e.Key.Tag, tt.tag)
			}
			if e.Value.IsBranch() || e.Value.Text() != tt.text {
				t.Errorf("value = %q, want %q", e.Value.Text(), tt.text)
			}
		})
	}
}

func TestProject_FieldOrder(t *testing.T) {
	r := newTestRegistry(t)

	tree, err := r.Project(newTestPerson())
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}

	want := []string{"name", "age", "height", "active", "rank", "nickname", "home", "work",
		"labels", "scores", "avatar", "born"}
	entries := tree.Entries()
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Key.Name != want[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Key.Name, want[i])
		}
	}
}

func TestProject_SilentSkip(t *testing.T) {
	r := newTestRegistry(t)

	p := newTestPerson()
	p.Nickname = nil
	p.Work = nil
	p.Labels = nil
	p.Notify = make(chan string)
	p.Callback = func() {}

	capture := capitantest.NewEventCapture()
	listener := capitan.Hook(SignalFieldSkipped, capture.Handler())

	tree, err := r.Project(p)
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	for _, name := range []string{"nickname", "work", "labels", "extra", "Notify", "Callback", "Hidden", "private"} {
		if _, ok := tree.Get(name); ok {
			t.Errorf("%q should be skipped", name)
		}
	}

	want := []string{"Callback", "Notify", "extra", "labels", "nickname", "work"}
	if !capture.WaitForCount(len(want), time.Second) {
		t.Fatalf("got %d field skipped events, want %d", capture.Count(), len(want))
	}
	listener.Close()

	var skipped []string
	for _, e := range capture.Events() {
		if KeyTypeName.ExtractFromFields(e.Fields) == "Person" {
			skipped = append(skipped, KeyField.ExtractFromFields(e.Fields))
		}
	}
	sort.Strings(skipped)
	if len(skipped) != len(want) {
		t.Fatalf("skipped fields = %v, want %v", skipped, want)
	}
	for i := range want {
		if skipped[i] != want[i] {
			t.Errorf("skipped fields = %v, want %v", skipped, want)
			break
		}
	}

	h, err := r.Project(&testHolder{Name: "h", Other: testUnregistered{Value: 1}})
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	if h.Len() != 1 {
		t.Errorf("unregistered structs should be skipped, got %d entries", h.Len())
	}
}

func TestProject_NestedObjects(t *testing.T) {
	r := newTestRegistry(t)

	tree, err := r.Project(newTestPerson())
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}

	for _, name := range []string{"home", "work"} {
		e := entryAt(t, tree, name)
		if e.Key.Tag != "Address" || !e.Value.IsBranch() {
			t.Fatalf("%s = %+v, want Address branch", name, e)
		}
		if entryAt(t, e.Value.Tree(), "street").Value.Text() == "" {
			t.Errorf("%s.street empty", name)
		}
	}
}

func TestProject_Containers(t *testing.T) {
	r := newTestRegistry(t)

	tree, err := r.Project(newTestPerson())
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}

	scores := entryAt(t, tree, "scores")
	if scores.Key.Tag != TagArray {
		t.Fatalf("scores tag = %q, want array", scores.Key.Tag)
	}
	for i, want := range []string{"3", "1", "2"} {
		e := scores.Value.Tree().Entries()[i]
		if e.Key.Name != []string{"0", "1", "2"}[i] || e.Key.Tag != TagInt || e.Value.Text() != want {
			t.Errorf("scores[%d] = %+v", i, e)
		}
	}

	labels := entryAt(t, tree, "labels")
	if labels.Key.Tag != TagArray {
		t.Fatalf("labels tag = %q, want array", labels.Key.Tag)
	}
	keys := labels.Value.Tree().Entries()
	if len(keys) != 2 || keys[0].Key.Name != "role" || keys[1].Key.Name != "team" {
		t.Errorf("labels should be sorted by key, got %+v", keys)
	}
}

func TestProject_Polymorphic(t *testing.T) {
	r := newTestRegistry(t)

	d := &testDrawing{
		Primary: &testSquare{Side: 2},
		Shapes:  []testShape{&testCircle{Radius: 1}, &testSquare{Side: 3}, nil},
		ByName:  map[string]testShape{"c": &testCircle{Radius: 4}},
	}
	tree, err := r.Project(d)
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}

	if tag := entryAt(t, tree, "primary").Key.Tag; tag != "Square" {
		t.Errorf("primary tag = %q, want Square", tag)
	}
	shapes := entryAt(t, tree, "shapes").Value.Tree()
	if shapes.Len() != 2 {
		t.Fatalf("shapes len = %d, nil element should be skipped", shapes.Len())
	}
	if shapes.Entries()[0].Key.Tag != "Circle" || shapes.Entries()[1].Key.Tag != "Square" {
		t.Errorf("shapes tags = %+v", shapes.Entries())
	}
	if tag := entryAt(t, entryAt(t, tree, "ByName").Value.Tree(), "c").Key.Tag; tag != "Circle" {
		t.Errorf("ByName[c] tag = %q, want Circle", tag)
	}
}

func TestProject_Cycle(t *testing.T) {
	r := newTestRegistry(t)

	a := &testNode{Name: "a"}
	b := &testNode{Name: "b", Next: a}
	a.Next = b

	_, err := r.Project(a)
	if !errors.Is(err, ErrCycle) {
		t.Errorf("Project() error = %v, want ErrCycle", err)
	}
}

func TestProject_SharedNotCycle(t *testing.T) {
	r := newTestRegistry(t)

	shared := &testSquare{Side: 1}
	d := &testDrawing{Primary: shared, Shapes: []testShape{shared, shared}}
	if _, err := r.Project(d); err != nil {
		t.Errorf("Project() error = %v, shared references are not cycles", err)
	}
}

func TestProject_Override(t *testing.T) {
	r := newTestRegistry(t)

	tree, err := r.Project(&testVersioned{Major: 2, Minor: 11})
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	if got := entryAt(t, tree, "version").Value.Text(); got != "2.11" {
		t.Errorf("version = %q, want 2.11", got)
	}
}

func TestProject_InvalidTargets(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name    string
		obj     any
		wantErr error
	}{
		{"nil", nil, ErrInvalidTarget},
		{"nil pointer", (*testPerson)(nil), ErrInvalidTarget},
		{"unregistered", &testUnregistered{}, ErrUnknownType},
		{"primitive", 42, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Project(tt.obj); !errors.Is(err, tt.wantErr) {
				t.Errorf("Project() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
