package etag

import (
	"strings"
	"testing"
)

func TestStrong_shapeAndDeterminism(t *testing.T) {
	first := Strong([]byte("payload"))
	if !strings.HasPrefix(first, `"`) || !strings.HasSuffix(first, `"`) {
		t.Errorf("Strong() = %s, want quoted validator", first)
	}
	// quoted 64-char hex digest
	if len(first) != 66 {
		t.Errorf("Strong() length = %d, want 66", len(first))
	}
	if second := Strong([]byte("payload")); second != first {
		t.Errorf("Strong() not deterministic: %s vs %s", first, second)
	}
	if other := Strong([]byte("different")); other == first {
		t.Error("Strong() collided for different bytes")
	}
}

func TestCombine_orderIndependent(t *testing.T) {
	ab, ok := Combine([]string{`"A"`, `"B"`})
	if !ok {
		t.Fatal("Combine([A,B]) signalled absent")
	}
	ba, _ := Combine([]string{`"B"`, `"A"`})
	if ab != ba {
		t.Errorf("Combine([A,B]) = %s, Combine([B,A]) = %s", ab, ba)
	}
}

func TestCombine_stripsQuotesBeforeCanonicalizing(t *testing.T) {
	quoted, _ := Combine([]string{`"v1"`, `"v2"`})
	bare, _ := Combine([]string{"v1", "v2"})
	if quoted != bare {
		t.Errorf("quoted and bare validators diverge: %s vs %s", quoted, bare)
	}
}

func TestCombine_discardsEmpties(t *testing.T) {
	with, _ := Combine([]string{`"only"`, "", `""`})
	without, _ := Combine([]string{`"only"`})
	if with != without {
		t.Errorf("empties affected result: %s vs %s", with, without)
	}
}

func TestCombine_absent(t *testing.T) {
	if _, ok := Combine(nil); ok {
		t.Error("Combine(nil) = present, want absent")
	}
	if _, ok := Combine([]string{"", `""`}); ok {
		t.Error("Combine(all empty) = present, want absent")
	}
}
