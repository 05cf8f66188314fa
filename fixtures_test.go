package brine

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type testAddress struct {
	Street string `brine:"street"`
	City   string `brine:"city"`
}

type testPerson struct {
	Name     string            `brine:"name"`
	Age      int               `brine:"age"`
	Height   float32           `brine:"height"`
	Active   bool              `brine:"active"`
	Rank     uint8             `brine:"rank"`
	Nickname *string           `brine:"nickname"`
	Home     testAddress       `brine:"home"`
	Work     *testAddress      `brine:"work"`
	Labels   map[string]string `brine:"labels"`
	Scores   []int             `brine:"scores"`
	Avatar   []byte            `brine:"avatar"`
	Born     time.Time         `brine:"born"`
	Extra    any               `brine:"extra"`
	Hidden   string            `brine:"-"`
	Notify   chan string
	Callback func()
	private  string
}

type testShape interface {
	Area() float64
}

type testCircle struct {
	Radius float64 `brine:"radius"`
}

func (c *testCircle) Area() float64 { return 3 * c.Radius * c.Radius }

type testSquare struct {
	Side float64 `brine:"side"`
}

func (s *testSquare) Area() float64 { return s.Side * s.Side }

type testDrawing struct {
	Primary testShape   `brine:"primary"`
	Shapes  []testShape `brine:"shapes"`
	ByName  map[string]testShape
}

type testNode struct {
	Name string    `brine:"name"`
	Next *testNode `brine:"next"`
}

type testUnregistered struct {
	Value int
}

type testHolder struct {
	Name  string
	Other testUnregistered
	Ptr   *testUnregistered
}

// testVersioned projects and injects itself through the override interfaces.
type testVersioned struct {
	Major int
	Minor int
}

func (v *testVersioned) ProjectState(_ *Registry) (*Tree, error) {
	t := NewTree()
	t.Set(Key{Name: "version"}, Leaf(fmt.Sprintf("%d.%d", v.Major, v.Minor)))
	return t, nil
}

func (v *testVersioned) InjectState(_ *Registry, tree *Tree) error {
	e, ok := tree.Get("version")
	if !ok {
		return errors.New("missing version")
	}
	if _, err := fmt.Sscanf(e.Value.Text(), "%d.%d", &v.Major, &v.Minor); err != nil {
		return fmt.Errorf("malformed version: %w", err)
	}
	return nil
}

func newTestPerson() *testPerson {
	nick := "Al"
	return &testPerson{
		Name:     "Alice",
		Age:      34,
		Height:   1.5,
		Active:   true,
		Rank:     7,
		Nickname: &nick,
		Home:     testAddress{Street: "1 Main St", City: "Springfield"},
		Work:     &testAddress{Street: "9 Dock Rd", City: "Shelbyville"},
		Labels:   map[string]string{"team": "core", "role": "lead"},
		Scores:   []int{3, 1, 2},
		Avatar:   []byte{0xde, 0xad, 0xbe, 0xef},
		Born:     time.Date(1990, time.March, 4, 5, 6, 7, 0, time.UTC),
		Hidden:   "secret",
		private:  "private",
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry()
	regs := []error{
		Register[testAddress](r, "Address", nil, nil),
		Register[testPerson](r, "Person", nil, nil),
		Register[testCircle](r, "Circle", nil, nil),
		Register[testSquare](r, "Square", nil, nil),
		Register[testDrawing](r, "Drawing", nil, nil),
		Register[testNode](r, "Node", nil, nil),
		Register[testHolder](r, "Holder", nil, nil),
		Register[testVersioned](r, "Versioned", nil, nil),
	}
	for _, err := range regs {
		if err != nil {
			t.Fatalf("Register() error: %v", err)
		}
	}
	r.Freeze()
	return r
}
