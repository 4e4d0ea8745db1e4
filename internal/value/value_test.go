package value

import "testing"

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero int", Int(0), true},
		{"zero float", Float(0), true},
		{"empty string", NewStrValue(""), true},
		{"empty list", NewList(nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEqualCrossNumericKind(t *testing.T) {
	if !Equal(Int(2), Float(2.0)) {
		t.Errorf("Int(2) should equal Float(2.0)")
	}
	if Equal(Int(2), Float(2.5)) {
		t.Errorf("Int(2) should not equal Float(2.5)")
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Int(42), "42"},
		{Int(-7), "-7"},
		{Float(1), "1.0"},
		{Float(1.5), "1.5"},
		{Float(-2), "-2.0"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.v); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestRangeDisplay(t *testing.T) {
	start, end := int64(1), int64(5)
	tests := []struct {
		r    *Range
		want string
	}{
		{&Range{Start: &start, End: &end}, "1..5"},
		{&Range{Start: &start, End: &end, Inclusive: true}, "1..=5"},
		{&Range{End: &end}, "..5"},
		{&Range{Start: &start}, "1.."},
		{&Range{}, ".."},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("Range.String() = %q, want %q", got, tt.want)
		}
	}
}

// TestStringGraphemeSlicing exercises spec's grapheme-aware string
// indexing: a multi-byte emoji cluster counts as a single position,
// so "👍c"[0] is the whole thumbs-up, not its first UTF-8 byte/rune.
func TestStringGraphemeSlicing(t *testing.T) {
	s := NewStr("👍c")
	if got := s.GraphemeLen(); got != 2 {
		t.Fatalf("GraphemeLen() = %d, want 2", got)
	}
	first, ok := s.GraphemeAt(0)
	if !ok || first.String() != "👍" {
		t.Fatalf("GraphemeAt(0) = %q, ok=%v, want \"👍\"", first.String(), ok)
	}
	second, ok := s.GraphemeAt(1)
	if !ok || second.String() != "c" {
		t.Fatalf("GraphemeAt(1) = %q, ok=%v, want \"c\"", second.String(), ok)
	}
}

func TestStringGraphemeSliceWithCombiningMark(t *testing.T) {
	// "e" + COMBINING ACUTE ACCENT (U+0301) is one grapheme cluster.
	s := NewStr("éx")
	if got := s.GraphemeLen(); got != 2 {
		t.Fatalf("GraphemeLen() = %d, want 2", got)
	}
	first, _ := s.GraphemeAt(0)
	if first.String() != "é" {
		t.Fatalf("GraphemeAt(0) = %q, want combining sequence", first.String())
	}
}

func TestMapInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set(NewStrValue("z"), Int(1))
	m.Set(NewStrValue("a"), Int(2))
	m.Set(NewStrValue("m"), Int(3))

	var order []string
	m.Each(func(k, v Value) bool {
		order = append(order, k.AsStr().String())
		return true
	})
	want := []string{"z", "a", "m"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestMapOverwritePreservesPosition(t *testing.T) {
	m := NewMap()
	m.Set(NewStrValue("a"), Int(1))
	m.Set(NewStrValue("b"), Int(2))
	m.Set(NewStrValue("a"), Int(99))

	var order []string
	m.Each(func(k, v Value) bool {
		order = append(order, k.AsStr().String())
		return true
	})
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v, want [a b]", order)
	}
	v, ok := m.Get(NewStrValue("a"))
	if !ok || v.AsInt() != 99 {
		t.Fatalf("Get(a) = %v, %v, want 99, true", v, ok)
	}
}

func TestMapDeleteThenReinsert(t *testing.T) {
	m := NewMap()
	m.Set(NewStrValue("a"), Int(1))
	m.Set(NewStrValue("b"), Int(2))
	if !m.Delete(NewStrValue("a")) {
		t.Fatalf("Delete(a) = false, want true")
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if _, ok := m.Get(NewStrValue("a")); ok {
		t.Fatalf("Get(a) found after delete")
	}
	m.Set(NewStrValue("a"), Int(3))
	v, ok := m.Get(NewStrValue("a"))
	if !ok || v.AsInt() != 3 {
		t.Fatalf("Get(a) after reinsert = %v, %v, want 3, true", v, ok)
	}
}

func TestMapNumericKeyCollision(t *testing.T) {
	m := NewMap()
	m.Set(Int(1), NewStrValue("int-one"))
	v, ok := m.Get(Float(1.0))
	if !ok || v.AsStr().String() != "int-one" {
		t.Fatalf("Get(Float(1.0)) = %v, %v, want int-one, true", v, ok)
	}
}

func TestListIteratorNextBack(t *testing.T) {
	l := &List{Elems: []Value{Int(1), Int(2), Int(3)}}
	it := NewListIterator(l)

	out := it.Next()
	if out.Tag != OutputValue || out.Value.AsInt() != 1 {
		t.Fatalf("Next() = %+v, want 1", out)
	}
	back, ok := it.NextBack()
	if !ok || back.Value.AsInt() != 3 {
		t.Fatalf("NextBack() = %+v, want 3", back)
	}
	out = it.Next()
	if out.Tag != OutputValue || out.Value.AsInt() != 2 {
		t.Fatalf("Next() = %+v, want 2", out)
	}
	out = it.Next()
	if out.Tag != OutputDone {
		t.Fatalf("Next() = %+v, want Done", out)
	}
}

func TestRangeIteratorInclusive(t *testing.T) {
	start, end := int64(1), int64(3)
	it := NewRangeIterator(&Range{Start: &start, End: &end, Inclusive: true})
	var got []int64
	for {
		out := it.Next()
		if out.Tag == OutputDone {
			break
		}
		got = append(got, out.Value.AsInt())
	}
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDisplayTopLevelVsNested(t *testing.T) {
	ctx := NewDisplayContext()
	s := NewStrValue("hi")
	if got := Display(ctx, s, true); got != "hi" {
		t.Errorf("top-level Display() = %q, want %q", got, "hi")
	}
	if got := Display(ctx, s, false); got != "'hi'" {
		t.Errorf("nested Display() = %q, want %q", got, "'hi'")
	}

	l := NewList([]Value{s})
	if got := Display(ctx, l, true); got != "['hi']" {
		t.Errorf("Display(list) = %q, want %q", got, "['hi']")
	}
}

func TestDisplayCycleDetection(t *testing.T) {
	l := &List{}
	lv := fromPtr(KindList, l)
	l.Elems = []Value{lv}

	ctx := NewDisplayContext()
	got := Display(ctx, lv, true)
	if got != "[[...]]" {
		t.Errorf("Display(cyclic list) = %q, want %q", got, "[[...]]")
	}
}

func TestCompareBuiltinKinds(t *testing.T) {
	if cmp, ok := Compare(Int(1), Int(2)); !ok || cmp >= 0 {
		t.Errorf("Compare(1, 2) = %d, %v, want <0, true", cmp, ok)
	}
	if cmp, ok := Compare(NewStrValue("a"), NewStrValue("b")); !ok || cmp >= 0 {
		t.Errorf("Compare(a, b) = %d, %v, want <0, true", cmp, ok)
	}
	if _, ok := Compare(NewStrValue("a"), Int(1)); ok {
		t.Errorf("Compare(str, int) should report ok=false")
	}
}
