package ghostcell

import "testing"

func TestRefCountedCloneDrop(t *testing.T) {
	Scope(func(tok *Token) any {
		rc := NewRefCounted(tok, 1)
		if rc.StrongCount() != 1 {
			t.Fatal("fresh count must be 1")
		}
		c := rc.Clone()
		if rc.StrongCount() != 2 || c.StrongCount() != 2 {
			t.Fatal("clone must bump the shared count")
		}
		c.Drop()
		if rc.StrongCount() != 1 {
			t.Fatal("drop must decrement")
		}
		rc.Drop()
		mustPanic(t, "ghostcell: use of dropped RefCounted", func() {
			rc.StrongCount()
		})
		return nil
	})
}

func TestRefCountedMakeMut(t *testing.T) {
	Scope(func(tok *Token) any {
		rc := NewRefCounted(tok, 10)

		// Unique: mutate in place, no clone.
		cloned := false
		*rc.MakeMut(tok, func(v *int) int { cloned = true; return *v }) = 11
		if cloned {
			t.Fatal("unique handle must not clone")
		}

		// Shared: the cloner runs and the handles diverge.
		other := rc.Clone()
		*rc.MakeMut(tok, func(v *int) int { cloned = true; return *v }) = 12
		if !cloned {
			t.Fatal("shared handle must clone")
		}
		if *rc.Get(tok) != 12 || *other.Get(tok) != 11 {
			t.Fatalf("expected divergence, got %d and %d", *rc.Get(tok), *other.Get(tok))
		}
		if rc.StrongCount() != 1 || other.StrongCount() != 1 {
			t.Fatal("both handles must be unique after the copy-on-write")
		}
		other.Drop()
		rc.Drop()
		return nil
	})
}
