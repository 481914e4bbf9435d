package errcode

import (
	"errors"
	"testing"
)

func TestOf(t *testing.T) {
	cause := errors.New("nack")
	cases := []struct {
		err  error
		want Code
	}{
		{nil, OK},
		{Timeout, Timeout},
		{Wrap(NoDevice, "mpr121.Configure", cause), NoDevice},
		{cause, Error},
	}
	for _, c := range cases {
		if got := Of(c.err); got != c.want {
			t.Errorf("Of(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestE_IsAndUnwrap(t *testing.T) {
	cause := errors.New("nack")
	err := Wrap(JoinFailed, "wifi.join", cause)
	if !errors.Is(err, JoinFailed) {
		t.Fatal("errors.Is should match the carried code")
	}
	if errors.Is(err, Timeout) {
		t.Fatal("errors.Is matched the wrong code")
	}
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should reach the cause")
	}
	if got := err.Error(); got != "wifi.join: join_failed (nack)" {
		t.Fatalf("Error() = %q", got)
	}
}
