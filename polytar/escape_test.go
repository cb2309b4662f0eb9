package polytar

import "testing"

func TestEscapePrimitivesOpenWithNUL(t *testing.T) {
	for _, c := range []string{StartName, ContName, EndStart, EndClose} {
		if len(c) == 0 || c[0] != 0 {
			t.Errorf("escape primitive %q does not open with a NUL byte", c)
		}
	}
}

func TestEscapePrimitivesFitNameField(t *testing.T) {
	for _, c := range []string{StartName, ContName} {
		if len(c) > lenName {
			t.Errorf("escape primitive length %d exceeds name field width %d: %q", len(c), lenName, c)
		}
	}
}

