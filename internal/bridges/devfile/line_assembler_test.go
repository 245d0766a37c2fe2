package devfile

import (
	"reflect"
	"testing"
)

func TestLineAssemblerFeed(t *testing.T) {
	tests := []struct {
		name        string
		chunks      []string
		want        []string
		wantPending string
	}{
		{name: "split across chunks", chunks: []string{"01\r\n1", "0\r\n"}, want: []string{"01", "10"}},
		{name: "lf", chunks: []string{"a\nb\n"}, want: []string{"a", "b"}},
		{name: "cr", chunks: []string{"a\rb\r"}, want: []string{"a", "b"}},
		{name: "crlf split on the boundary", chunks: []string{"01\r", "\n10\n"}, want: []string{"01", "10"}},
		{name: "partial kept", chunks: []string{"01", "1"}, wantPending: "011"},
		{name: "partial after lines", chunks: []string{"1\n0"}, want: []string{"1"}, wantPending: "0"},
		{name: "blank lines preserved", chunks: []string{"\n\n"}, want: []string{"", ""}},
		{name: "cr then cr", chunks: []string{"a\r\rb\n"}, want: []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a LineAssembler
			var got []string
			for _, c := range tt.chunks {
				got = append(got, a.Feed([]byte(c))...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
			if a.Pending() != tt.wantPending {
				t.Errorf("Pending() = %q, want %q", a.Pending(), tt.wantPending)
			}
		})
	}
}

func TestStateVector(t *testing.T) {
	var v StateVector
	if got := v.Block(2, 4); string(got) != "00" {
		t.Errorf("Block(2,4) = %q, want 00", got)
	}
	if v.String() != "0000" {
		t.Errorf("String() = %q, want 0000", v.String())
	}

	v.SetBlock(2, []byte("01"))
	v.Ensure(2)
	if v.String() != "0001" {
		t.Errorf("after SetBlock String() = %q, want 0001", v.String())
	}

	v.SetBlock(5, []byte("1"))
	if v.String() != "000101" {
		t.Errorf("String() = %q, want 000101", v.String())
	}
	if v.Len() != 6 {
		t.Errorf("Len() = %d, want 6", v.Len())
	}
}
