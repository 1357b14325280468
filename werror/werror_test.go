package werror

import (
	"errors"
	"testing"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"type", TypeErrorf("bad %s", "input"), ErrType},
		{"invalidstate", InvalidStatef("wrong state"), ErrInvalidState},
		{"range", RangeErrorf("out of range"), ErrRange},
		{"notsupported", NotSupportedf("no codec"), ErrNotSupported},
		{"encoding", EncodingErrorf("backend failed"), ErrEncoding},
		{"abort", Abortf("reset"), ErrAbort},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if !errors.Is(c.err, c.want) {
				t.Fatalf("%v does not wrap %v", c.err, c.want)
			}
		})
	}
}

func TestIsAbort(t *testing.T) {
	if !IsAbort(Abortf("reset")) {
		t.Fatal("IsAbort false for an Abort-class error")
	}
	if IsAbort(TypeErrorf("bad")) {
		t.Fatal("IsAbort true for a TypeError")
	}
}
