package selene

import "testing"

func TestStateStack(t *testing.T) {
	s := NewState()
	if s.Depth() != 0 {
		t.Fatalf("fresh depth: got=%d want=0", s.Depth())
	}
	if _, ok := s.Pop().(Nil); !ok {
		t.Fatal("pop on empty stack should yield nil")
	}

	s.Push(Number(1))
	s.Push(String("a"))
	if s.Depth() != 2 {
		t.Fatalf("depth: got=%d want=2", s.Depth())
	}
	if s.Top() != Value(String("a")) {
		t.Fatalf("top: got=%v", s.Top())
	}
	if s.Pop() != Value(String("a")) || s.Pop() != Value(Number(1)) {
		t.Fatal("pop order is not LIFO")
	}
	if s.Depth() != 0 {
		t.Fatalf("drained depth: got=%d want=0", s.Depth())
	}
}

func TestValueStrings(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Nil{}, "nil"},
		{Bool(true), "true"},
		{Number(1.5), "1.5"},
		{Number(3), "3"},
		{String("hi"), "hi"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Fatalf("%v: got=%q want=%q", c.v.Type(), got, c.want)
		}
	}
}
