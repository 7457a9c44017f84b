package target

import "testing"

func TestBuiltinTargetsRegistered(t *testing.T) {
	for _, name := range []string{"divide-by-marker", "cobra-literal", "noop"} {
		if _, ok := Get(name); !ok {
			t.Errorf("expected built-in target %q to be registered", name)
		}
	}
}

func TestDivideByMarkerCrashesOnlyOnMarker(t *testing.T) {
	fn, _ := Get("divide-by-marker")

	if err := fn([]byte{0x42}); err != nil {
		t.Fatalf("non-marker byte should not raise: %v", err)
	}

	crashed := func() (crashed bool) {
		defer func() {
			if recover() != nil {
				crashed = true
			}
		}()
		fn([]byte{0x41})
		return false
	}()
	if !crashed {
		t.Fatal("marker byte 0x41 should crash divide-by-marker")
	}
}

func TestCobraLiteral(t *testing.T) {
	fn, _ := Get("cobra-literal")
	if err := fn([]byte("COBRA!!!")); err == nil {
		t.Fatal("exact literal should raise")
	}
	if err := fn([]byte("COBRA")); err != nil {
		t.Fatalf("partial literal should not raise: %v", err)
	}
}

func TestDefaultFailsWithMultipleRegistered(t *testing.T) {
	if _, _, err := Default(); err == nil {
		t.Fatal("Default should fail fast when more than one target is registered")
	}
}
