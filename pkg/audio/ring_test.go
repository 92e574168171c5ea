package audio

import "testing"

func TestRingPushPop(t *testing.T) {
	r := NewRing[int](4)

	for i := 0; i < 3; i++ {
		if !r.Push(i) {
			t.Errorf("Push(%d) reported overwrite on a non-full ring", i)
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}

	for i := 0; i < 3; i++ {
		v, ok := r.Pop()
		if !ok {
			t.Fatalf("Pop() ok = false, want true")
		}
		if v != i {
			t.Errorf("Pop() = %d, want %d", v, i)
		}
	}

	if _, ok := r.Pop(); ok {
		t.Error("Pop() on empty ring returned ok = true")
	}
}

func TestRingOverwriteOnFull(t *testing.T) {
	r := NewRing[int](2) // rounds up internally, capacity is a power of two

	r.Push(1)
	r.Push(2)
	overwritten := !r.Push(3)
	if !overwritten {
		t.Error("Push() into a full ring should report an overwrite")
	}

	v, ok := r.Pop()
	if !ok || v != 2 {
		t.Errorf("Pop() = %d, %v; want 2, true (oldest element was overwritten)", v, ok)
	}
}
