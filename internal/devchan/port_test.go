package devchan

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.bug.st/serial"
)

// blockingHandle is a handle whose writes block until Close is called.
type blockingHandle struct {
	started chan struct{}
	closed  chan struct{}
	once    sync.Once
}

func newBlockingHandle() *blockingHandle {
	return &blockingHandle{started: make(chan struct{}, 16), closed: make(chan struct{})}
}

func (h *blockingHandle) Read([]byte) (int, error) {
	<-h.closed
	return 0, os.ErrClosed
}

func (h *blockingHandle) Write([]byte) (int, error) {
	h.started <- struct{}{}
	<-h.closed
	return 0, os.ErrClosed
}

func (h *blockingHandle) Close() error {
	h.once.Do(func() { close(h.closed) })
	return nil
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Location
		wantErr error
	}{
		{name: "plain path", raw: "/dev/devbind0", want: Location{Scheme: SchemeFile, Path: "/dev/devbind0"}},
		{name: "trimmed", raw: "  /dev/x  ", want: Location{Scheme: SchemeFile, Path: "/dev/x"}},
		{name: "file url", raw: "file:///dev/x", want: Location{Scheme: SchemeFile, Path: "/dev/x"}},
		{name: "serial with baud", raw: "serial:///dev/ttyUSB0?baud=115200", want: Location{Scheme: SchemeSerial, Path: "/dev/ttyUSB0", Baud: 115200}},
		{name: "serial host form", raw: "serial://COM3", want: Location{Scheme: SchemeSerial, Path: "COM3"}},
		{name: "empty", raw: "", wantErr: ErrInvalidLocation},
		{name: "bad baud", raw: "serial:///dev/ttyS0?baud=fast", wantErr: ErrInvalidLocation},
		{name: "zero baud", raw: "serial:///dev/ttyS0?baud=0", wantErr: ErrInvalidLocation},
		{name: "unsupported scheme", raw: "tcp://localhost:1234", wantErr: ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocation(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseLocation(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocation(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseLocation(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPortStreamDeliversChunksInOrder(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	defer w.Close()

	p := newPort("pipe", ModeRead, r, 4)
	defer p.Close()

	chunks := make(chan string, 8)
	errs := make(chan error, 1)
	p.Stream(func(b []byte) { chunks <- string(b) }, func(err error) { errs <- err })

	for _, s := range []string{"01\r\n1", "0\r\n"} {
		if _, err := w.Write([]byte(s)); err != nil {
			t.Fatalf("pipe write error = %v", err)
		}
		select {
		case got := <-chunks:
			if got != s {
				t.Errorf("chunk = %q, want %q", got, s)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for chunk %q", s)
		}
	}

	w.Close()
	select {
	case err := <-errs:
		t.Errorf("EOF should end the stream quietly, got %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	stats := p.Stats()
	if stats.BytesRx != 8 {
		t.Errorf("BytesRx = %d, want 8", stats.BytesRx)
	}
	if stats.LinesRx != 2 {
		t.Errorf("LinesRx = %d, want 2", stats.LinesRx)
	}
}

func TestPortStreamTwiceReportsError(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	defer w.Close()

	p := newPort("pipe", ModeRead, r, 4)
	defer p.Close()

	p.Stream(func([]byte) {}, func(error) {})

	var got error
	p.Stream(func([]byte) {}, func(err error) { got = err })
	if !errors.Is(got, ErrAlreadyStreaming) {
		t.Errorf("second Stream error = %v, want ErrAlreadyStreaming", got)
	}
}

func TestPortWritesCompleteInCallOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	o := &Opener{}
	p, err := o.Open(context.Background(), path, ModeWrite)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i, line := range []string{"a\n", "b\n", "c\n"} {
		i := i
		wg.Add(1)
		p.Write([]byte(line), func(err error) {
			defer wg.Done()
			if err != nil {
				t.Errorf("write %d error = %v", i, err)
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "a\nb\nc\n" {
		t.Errorf("device content = %q, want %q", data, "a\nb\nc\n")
	}
	for i, got := range order {
		if got != i {
			t.Errorf("completion order = %v, want [0 1 2]", order)
			break
		}
	}
	if stats := p.Stats(); stats.LinesTx != 3 || stats.BytesTx != 6 {
		t.Errorf("Stats() = %+v, want 3 lines / 6 bytes", stats)
	}
}

func TestPortCloseFailsPendingWrites(t *testing.T) {
	h := newBlockingHandle()
	p := newPort("blocking", ModeWrite, h, 4)

	results := make(chan error, 3)
	for k := 0; k < 3; k++ {
		p.Write([]byte("x\n"), func(err error) { results <- err })
	}

	select {
	case <-h.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first write never started")
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var closed int
	for k := 0; k < 3; k++ {
		select {
		case err := <-results:
			if errors.Is(err, ErrClosed) {
				closed++
			} else if err == nil {
				t.Error("write succeeded after Close")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("write callback not called after Close")
		}
	}
	if closed != 2 {
		t.Errorf("writes failed with ErrClosed = %d, want 2", closed)
	}

	var after error
	p.Write([]byte("y\n"), func(err error) { after = err })
	if !errors.Is(after, ErrClosed) {
		t.Errorf("Write after Close error = %v, want ErrClosed", after)
	}

	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if p.Stats().Open {
		t.Error("Stats().Open = true after Close")
	}
}

func TestPortModeChecks(t *testing.T) {
	h := newBlockingHandle()
	defer h.Close()

	ro := newPort("ro", ModeRead, h, 1)
	var werr error
	ro.Write([]byte("1\n"), func(err error) { werr = err })
	if !errors.Is(werr, ErrNotWritable) {
		t.Errorf("Write on read-only port error = %v, want ErrNotWritable", werr)
	}

	wo := newPort("wo", ModeWrite, h, 1)
	var serr error
	wo.Stream(func([]byte) {}, func(err error) { serr = err })
	if !errors.Is(serr, ErrNotReadable) {
		t.Errorf("Stream on write-only port error = %v, want ErrNotReadable", serr)
	}

	ro.Close()
	wo.Close()
}

func TestOpenerSerialUsesConfiguredBaud(t *testing.T) {
	orig := openSerial
	t.Cleanup(func() { openSerial = orig })

	var gotPath string
	var gotMode serial.Mode
	openSerial = func(path string, mode *serial.Mode) (handle, error) {
		gotPath = path
		gotMode = *mode
		return newBlockingHandle(), nil
	}

	tests := []struct {
		name     string
		location string
		defBaud  int
		wantBaud int
	}{
		{name: "explicit baud", location: "serial:///dev/ttyUSB0?baud=115200", defBaud: 19200, wantBaud: 115200},
		{name: "opener default", location: "serial:///dev/ttyUSB0", defBaud: 19200, wantBaud: 19200},
		{name: "package default", location: "serial:///dev/ttyUSB0", wantBaud: DefaultBaud},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Opener{DefaultBaud: tt.defBaud}
			p, err := o.Open(context.Background(), tt.location, ModeReadWrite)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer p.Close()

			if gotPath != "/dev/ttyUSB0" {
				t.Errorf("path = %q, want /dev/ttyUSB0", gotPath)
			}
			if gotMode.BaudRate != tt.wantBaud {
				t.Errorf("BaudRate = %d, want %d", gotMode.BaudRate, tt.wantBaud)
			}
			if gotMode.DataBits != 8 || gotMode.Parity != serial.NoParity || gotMode.StopBits != serial.OneStopBit {
				t.Errorf("mode = %+v, want 8N1", gotMode)
			}
		})
	}
}

func TestOpenerErrors(t *testing.T) {
	o := &Opener{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Open(ctx, "/dev/null", ModeRead); !errors.Is(err, ErrOpenFailed) {
		t.Errorf("Open(cancelled) error = %v, want ErrOpenFailed", err)
	}

	missing := filepath.Join(t.TempDir(), "missing")
	if _, err := o.Open(context.Background(), missing, ModeRead); !errors.Is(err, ErrOpenFailed) {
		t.Errorf("Open(missing) error = %v, want ErrOpenFailed", err)
	}

	if _, err := o.Open(context.Background(), "tcp://host:1", ModeRead); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Open(tcp) error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestModeString(t *testing.T) {
	tests := map[Mode]string{
		ModeRead:      "read",
		ModeWrite:     "write",
		ModeReadWrite: "read_write",
		Mode(9):       "Mode(9)",
	}
	for m, want := range tests {
		if got := m.String(); got != want {
			t.Errorf("Mode(%d).String() = %q, want %q", int(m), got, want)
		}
	}
}

var _ io.ReadWriteCloser = (*blockingHandle)(nil)
