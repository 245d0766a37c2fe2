package devfile

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

func readyColor(t *testing.T, d Declaration, assoc mockAssociations) (*OutputColorBinding, *mockChannel) {
	t.Helper()
	opener := newMockOpener()
	b := NewOutputColorBinding(d, Options{Opener: opener})
	if err := b.Ready(context.Background(), assoc); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	return b, opener.channel
}

func colorDecl(kv ...string) Declaration {
	d := decl("id", "leds", "location", "/dev/leds")
	for i := 0; i+1 < len(kv); i += 2 {
		d[kv[i]] = kv[i+1]
	}
	return d
}

func TestOutputColorWritesFullVector(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  string
	}{
		// Positions 2-3 are channel 1's block; blue is offset 1. The older
		// worked example quoting "000001" for channel 1 is wrong: that line
		// sets channel 2's block (next case). Keep the block arithmetic.
		{name: "channel 1 blue", index: 1, want: "000100\n"},
		// Positions 4-5 are channel 2's block.
		{name: "channel 2 blue", index: 2, want: "000001\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assoc := mockAssociations{0: newMockElement("a"), 1: newMockElement("b"), 2: newMockElement("c")}
			b, ch := readyColor(t, colorDecl(AttrChannelsPerElement, "2", AttrColorsChannel, "white:0;blue:1"), assoc)

			// Grow the vector to "000000" without a write.
			b.StylePropertyChanged(Change{Index: 2, Name: "color", Value: "off"})
			b.Wait()
			if w := ch.Writes(); len(w) != 0 {
				t.Fatalf("writes after no-op change = %q", w)
			}
			if b.Status().Vector != "000000" {
				t.Fatalf("vector = %q, want 000000", b.Status().Vector)
			}

			b.StylePropertyChanged(Change{Index: tt.index, Name: "color", Value: "blue"})
			b.Wait()
			if got := ch.Writes(); !reflect.DeepEqual(got, []string{tt.want}) {
				t.Errorf("writes = %q, want [%q]", got, tt.want)
			}
		})
	}
}

func TestOutputColorIdenticalValueDoesNotWrite(t *testing.T) {
	b, ch := readyColor(t, colorDecl(AttrColorsChannel, "red;green"), mockAssociations{0: newMockElement("a")})

	for k := 0; k < 3; k++ {
		b.StylePropertyChanged(Change{Index: 0, Name: "color", Value: "Green"})
	}
	b.Wait()

	if got := ch.Writes(); !reflect.DeepEqual(got, []string{"01\n"}) {
		t.Errorf("writes = %q, want one write of 01", got)
	}
}

func TestOutputColorBlockResolution(t *testing.T) {
	tests := []struct {
		name   string
		decl   Declaration
		values []string
		want   []string
	}{
		{
			name:   "unknown colour turns the block off",
			decl:   colorDecl(AttrChannelsPerElement, "3", AttrColorsChannel, "red;green;blue"),
			values: []string{"blue", "purple"},
			want:   []string{"001\n", "000\n"},
		},
		{
			name:   "offset outside the block turns it off",
			decl:   colorDecl(AttrChannelsPerElement, "2", AttrColorsChannel, "red:0;amber:5"),
			values: []string{"red", "amber"},
			want:   []string{"10\n", "00\n"},
		},
		{
			name:   "removal turns the block off",
			decl:   colorDecl(),
			values: []string{"white", ""},
			want:   []string{"1\n", "0\n"},
		},
		{
			name:   "malformed channels-per-element keeps one channel",
			decl:   colorDecl(AttrChannelsPerElement, "many", AttrColorsChannel, "white"),
			values: []string{"white"},
			want:   []string{"1\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ch := readyColor(t, tt.decl, mockAssociations{0: newMockElement("a")})
			for _, v := range tt.values {
				b.StylePropertyChanged(Change{Index: 0, Name: "color", Value: v, Removed: v == ""})
			}
			b.Wait()
			if got := ch.Writes(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("writes = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutputColorIgnoresUnmonitoredAndUnassociated(t *testing.T) {
	b, ch := readyColor(t, colorDecl(AttrColorPropertyNames, "fill"), mockAssociations{0: newMockElement("a")})

	b.StylePropertyChanged(Change{Index: 0, Name: "color", Value: "white"})
	b.StylePropertyChanged(Change{Index: 7, Name: "fill", Value: "white"})
	b.StylePropertyChanged(Change{Index: -1, Name: "fill", Value: "white"})
	b.AttributeChanged(Change{Index: 0, Name: "fill", Value: "white"})
	b.Wait()
	if w := ch.Writes(); len(w) != 0 {
		t.Errorf("writes = %q, want none", w)
	}

	b.StylePropertyChanged(Change{Index: 0, Name: "FILL", Value: "white"})
	b.Wait()
	if got := ch.Writes(); !reflect.DeepEqual(got, []string{"1\n"}) {
		t.Errorf("writes = %q, want [1]", got)
	}
}

func TestOutputColorWriteErrorKeepsVector(t *testing.T) {
	assoc := mockAssociations{0: newMockElement("a"), 1: newMockElement("b")}
	b, ch := readyColor(t, colorDecl(), assoc)

	ch.setWriteErr(errors.New("device unplugged"))
	b.StylePropertyChanged(Change{Index: 0, Name: "color", Value: "white"})
	b.Wait()

	st := b.Status()
	if st.Vector != "1" {
		t.Errorf("vector after failed write = %q, want 1", st.Vector)
	}
	if st.Errors != 1 {
		t.Errorf("Errors = %d, want 1", st.Errors)
	}

	// Same value again: memory already says "1", so nothing is resent.
	ch.setWriteErr(nil)
	b.StylePropertyChanged(Change{Index: 0, Name: "color", Value: "white"})
	b.StylePropertyChanged(Change{Index: 1, Name: "color", Value: "white"})
	b.Wait()

	got := ch.Writes()
	want := []string{"1\n", "11\n"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("writes = %q, want %q", got, want)
	}
}

func TestOutputColorConcurrentChangesStayCoherent(t *testing.T) {
	const n = 16
	assoc := mockAssociations{}
	for i := 0; i < n; i++ {
		assoc[i] = newMockElement("e")
	}
	b, ch := readyColor(t, colorDecl(), assoc)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.StylePropertyChanged(Change{Index: i, Name: "color", Value: "white"})
		}()
	}
	wg.Wait()
	b.Wait()

	writes := ch.Writes()
	if len(writes) != n {
		t.Fatalf("got %d writes, want %d", len(writes), n)
	}
	// Each write is a full snapshot with one more channel lit than the last.
	for i, w := range writes {
		ones := 0
		for _, c := range w {
			if c == '1' {
				ones++
			}
		}
		if ones != i+1 {
			t.Errorf("write %d = %q has %d lit channels, want %d", i, w, ones, i+1)
		}
	}
	if last := writes[n-1]; last != "1111111111111111\n" {
		t.Errorf("final write = %q", last)
	}
}
