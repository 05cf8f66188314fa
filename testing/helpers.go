// Package testing provides fixtures and helpers for brine tests.
package testing

import (
	"math"
	"testing"
	"time"

	"github.com/zoobzio/brine"
)

// Appt is a calendar entry whose start date is held untyped, so decoded
// scalars keep whatever Go type their codec produced.
type Appt struct {
	Title     string   `brine:"title"`
	StartDate any      `brine:"startDate"`
	Tags      []string `brine:"tags"`
}

// NewAppt returns the canonical Appt fixture.
func NewAppt() *Appt {
	return &Appt{Title: "Demo", StartDate: 1700000000, Tags: []string{"a", "b"}}
}

// Address is a nested value type.
type Address struct {
	Street string `brine:"street"`
	City   string `brine:"city"`
}

// Person exercises every primitive kind the projector supports.
type Person struct {
	Name     string            `brine:"name"`
	Age      int               `brine:"age"`
	Height   float64           `brine:"height"`
	Active   bool              `brine:"active"`
	Balance  uint64            `brine:"balance"`
	Nickname *string           `brine:"nickname"`
	Home     Address           `brine:"home"`
	Work     *Address          `brine:"work"`
	Labels   map[string]string `brine:"labels"`
	Scores   []int             `brine:"scores"`
	Avatar   []byte            `brine:"avatar"`
	Born     time.Time         `brine:"born"`
	Secret   string            `brine:"-"`
	internal int
}

// NewPerson returns a fully populated Person.
func NewPerson() *Person {
	nick := "Al"
	return &Person{
		Name:     "Alice",
		Age:      34,
		Height:   1.68,
		Active:   true,
		Balance:  math.MaxUint64,
		Nickname: &nick,
		Home:     Address{Street: "1 Main St", City: "Springfield"},
		Work:     &Address{Street: "9 Dock Rd", City: "Shelbyville"},
		Labels:   map[string]string{"team": "core", "role": "lead"},
		Scores:   []int{3, 1, 2},
		Avatar:   []byte{0x89, 'P', 'N', 'G', 0x00},
		Born:     time.Date(1990, time.March, 4, 5, 6, 7, 0, time.UTC),
	}
}

// Shape is implemented by Circle and Square.
type Shape interface {
	Area() float64
}

// Circle is a Shape.
type Circle struct {
	Radius float64 `brine:"radius"`
}

// Area implements Shape.
func (c *Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

// Square is a Shape.
type Square struct {
	Side float64 `brine:"side"`
}

// Area implements Shape.
func (s *Square) Area() float64 { return s.Side * s.Side }

// Drawing holds shapes through an interface, so their concrete types must
// travel with the tree.
type Drawing struct {
	Name    string  `brine:"name"`
	Primary Shape   `brine:"primary"`
	Shapes  []Shape `brine:"shapes"`
}

// NewDrawing returns a Drawing mixing both shapes.
func NewDrawing() *Drawing {
	return &Drawing{
		Name:    "sketch",
		Primary: &Square{Side: 2},
		Shapes:  []Shape{&Circle{Radius: 1.5}, &Square{Side: 4}, &Circle{Radius: 0.25}},
	}
}

// Matrix holds nested arrays three and four levels deep.
type Matrix struct {
	Cube   [][][]int    `brine:"cube"`
	Words  [][][]string `brine:"words"`
	Blocks [][][][]bool `brine:"blocks"`
	Fixed  [2][3]int    `brine:"fixed"`
}

// NewMatrix returns a ragged Matrix.
func NewMatrix() *Matrix {
	return &Matrix{
		Cube: [][][]int{
			{{1, 2, 3}, {4}},
			{{}, {5, 6}},
			{{7, 8, 9, 10}},
		},
		Words: [][][]string{
			{{"a", "b"}, {"c"}},
			{{"d"}},
		},
		Blocks: [][][][]bool{
			{{{true, false}}, {{false}}},
		},
		Fixed: [2][3]int{{1, 2, 3}, {4, 5, 6}},
	}
}

// Node can form reference cycles.
type Node struct {
	Name string `brine:"name"`
	Next *Node  `brine:"next"`
}

// Team nests registered objects inside a map and a slice.
type Team struct {
	Lead    *Person            `brine:"lead"`
	Members []Person           `brine:"members"`
	ByRole  map[string]*Person `brine:"byRole"`
}

// NewTeam returns a Team with two people.
func NewTeam() *Team {
	lead := NewPerson()
	bob := NewPerson()
	bob.Name = "Bob"
	bob.Work = nil
	return &Team{
		Lead:    lead,
		Members: []Person{*lead, *bob},
		ByRole:  map[string]*Person{"lead": lead, "dev": bob},
	}
}

// Sparse holds lists with nil elements in the middle.
type Sparse struct {
	Items []*Address   `brine:"items"`
	Any   []any        `brine:"any"`
	Slots [3]*Address  `brine:"slots"`
	Grid  [][]*Address `brine:"grid"`
}

// NewSparse returns a Sparse whose nil elements sit between set ones.
func NewSparse() *Sparse {
	a := &Address{Street: "1 Main St", City: "Springfield"}
	b := &Address{Street: "9 Dock Rd", City: "Shelbyville"}
	return &Sparse{
		Items: []*Address{a, nil, b},
		Any:   []any{"x", nil, "y"},
		Slots: [3]*Address{nil, a, nil},
		Grid:  [][]*Address{nil, {nil, b}},
	}
}

// NewRegistry returns a frozen registry holding every fixture type.
func NewRegistry(tb testing.TB) *brine.Registry {
	tb.Helper()

	r := brine.NewRegistry()
	for _, reg := range []func(*brine.Registry) error{
		func(r *brine.Registry) error { return brine.Register[Appt](r, "Appt", nil, nil) },
		func(r *brine.Registry) error { return brine.Register[Address](r, "Address", nil, nil) },
		func(r *brine.Registry) error { return brine.Register[Person](r, "Person", nil, nil) },
		func(r *brine.Registry) error { return brine.Register[Circle](r, "Circle", nil, nil) },
		func(r *brine.Registry) error { return brine.Register[Square](r, "Square", nil, nil) },
		func(r *brine.Registry) error { return brine.Register[Drawing](r, "Drawing", nil, nil) },
		func(r *brine.Registry) error { return brine.Register[Matrix](r, "Matrix", nil, nil) },
		func(r *brine.Registry) error { return brine.Register[Node](r, "Node", nil, nil) },
		func(r *brine.Registry) error { return brine.Register[Team](r, "Team", nil, nil) },
		func(r *brine.Registry) error { return brine.Register[Sparse](r, "Sparse", nil, nil) },
	} {
		if err := reg(r); err != nil {
			tb.Fatalf("register fixture: %v", err)
		}
	}
	r.Freeze()
	return r
}

// SampleDocument returns a document exercising every tag kind, nested
// arrays, empty containers, and keys that are awkward for markup formats.
func SampleDocument() brine.Document {
	inner := brine.NewTree()
	inner.Set(brine.Key{Name: "0", Tag: brine.TagInt}, brine.Leaf("1"))
	inner.Set(brine.Key{Name: "1", Tag: brine.TagInt}, brine.Leaf("2"))

	middle := brine.NewTree()
	middle.Set(brine.Key{Name: "0", Tag: brine.TagArray}, brine.Branch(inner))
	middle.Set(brine.Key{Name: "1", Tag: brine.TagArray}, brine.Branch(brine.NewTree()))

	outer := brine.NewTree()
	outer.Set(brine.Key{Name: "0", Tag: brine.TagArray}, brine.Branch(middle))

	home := brine.NewTree()
	home.Set(brine.Key{Name: "street"}, brine.Leaf("1 Main St"))
	home.Set(brine.Key{Name: "city"}, brine.Leaf("Springfield"))

	labels := brine.NewTree()
	labels.Set(brine.Key{Name: "role"}, brine.Leaf("lead"))
	labels.Set(brine.Key{Name: "team name"}, brine.Leaf("core & co"))

	state := brine.NewTree()
	state.Set(brine.Key{Name: "name"}, brine.Leaf("Alice <admin>"))
	state.Set(brine.Key{Name: "age", Tag: brine.TagInt}, brine.Leaf("34"))
	state.Set(brine.Key{Name: "height", Tag: brine.TagFloat}, brine.Leaf("1.68"))
	state.Set(brine.Key{Name: "active", Tag: brine.TagBool}, brine.Leaf("true"))
	state.Set(brine.Key{Name: "empty"}, brine.Leaf(""))
	state.Set(brine.Key{Name: "home", Tag: "Address"}, brine.Branch(home))
	state.Set(brine.Key{Name: "labels", Tag: brine.TagArray}, brine.Branch(labels))
	state.Set(brine.Key{Name: "cube", Tag: brine.TagArray}, brine.Branch(outer))
	state.Set(brine.Key{Name: "none", Tag: brine.TagArray}, brine.Branch(brine.NewTree()))

	return brine.Document{TypeName: "Person", State: state}
}

// StripScalarTags returns a copy of tree with bool, int, and float tags
// removed, which is what a codec without scalar tags reproduces.
func StripScalarTags(tree *brine.Tree) *brine.Tree {
	out := brine.NewTree()
	for _, e := range tree.Entries() {
		key := e.Key
		if key.Tag.IsScalar() {
			key.Tag = brine.TagNone
		}
		if e.Value.IsBranch() {
			out.Set(key, brine.Branch(StripScalarTags(e.Value.Tree())))
			continue
		}
		out.Set(key, e.Value)
	}
	return out
}
