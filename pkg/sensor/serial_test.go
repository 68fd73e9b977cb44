package sensor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    RawSample
		wantErr bool
	}{
		{
			name: "valid line - resting",
			line: "1234567,101325.00,12,-3,2048",
			want: RawSample{Timestamp: 1234567, Pressure: 101325, AccelX: 12, AccelY: -3, AccelZ: 2048},
		},
		{
			name: "valid line - counter about to wrap",
			line: "4294967295,99000.5,0,0,0",
			want: RawSample{Timestamp: 4294967295, Pressure: 99000.5},
		},
		{
			name: "valid line - full scale",
			line: "0,101325,32767,-32768,32767",
			want: RawSample{Pressure: 101325, AccelX: 32767, AccelY: -32768, AccelZ: 32767},
		},
		{
			name:    "invalid - wrong number of fields",
			line:    "1234567,101325,0,0",
			wantErr: true,
		},
		{
			name:    "invalid - too many fields",
			line:    "1234567,101325,0,0,0,0",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric timestamp",
			line:    "abc,101325,0,0,0",
			wantErr: true,
		},
		{
			name:    "invalid - timestamp beyond 32 bits",
			line:    "4294967296,101325,0,0,0",
			wantErr: true,
		},
		{
			name:    "invalid - negative pressure",
			line:    "1,-5,0,0,0",
			wantErr: true,
		},
		{
			name:    "invalid - pressure out of range",
			line:    "1,250000,0,0,0",
			wantErr: true,
		},
		{
			name:    "invalid - axis overflow",
			line:    "1,101325,0,40000,0",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric axis",
			line:    "1,101325,0,0,z",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSerial_Defaults(t *testing.T) {
	dev := NewSerial("/dev/ttyACM0", 0, 0, 3)
	assert.Equal(t, "/dev/ttyACM0", dev.port)
	assert.Equal(t, DefaultBaudRate, dev.baudRate)
	assert.Equal(t, DefaultBufferSize, dev.bufSize)
	assert.Equal(t, uint64(3), dev.retries)
	assert.False(t, dev.IsConnected())
}

// fakePort reads from a pipe and records writes.
type fakePort struct {
	r *io.PipeReader

	mu      sync.Mutex
	written bytes.Buffer
}

func (p *fakePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error { return p.r.Close() }

func (p *fakePort) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func newTestSerial(t *testing.T, failures int, retries uint64) (*Serial, *io.PipeWriter, *fakePort, *int) {
	t.Helper()
	pr, pw := io.Pipe()
	port := &fakePort{r: pr}
	attempts := 0

	dev := NewSerial("test", 0, 10, retries)
	dev.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	dev.open = func(name string, mode *serial.Mode) (io.ReadWriteCloser, error) {
		attempts++
		assert.Equal(t, DefaultBaudRate, mode.BaudRate)
		if attempts <= failures {
			return nil, errors.New("port busy")
		}
		return port, nil
	}
	return dev, pw, port, &attempts
}

func receive(t *testing.T, ch <-chan RawSample) RawSample {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "samples channel closed")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no sample received")
	}
	return RawSample{}
}

func TestSerial_ReadsSamples(t *testing.T) {
	dev, pw, _, _ := newTestSerial(t, 0, 0)
	require.NoError(t, dev.Connect())
	assert.True(t, dev.IsConnected())

	go func() {
		_, _ = io.WriteString(pw, "# board ready\n\n")
		_, _ = io.WriteString(pw, "garbage line\n")
		_, _ = io.WriteString(pw, "100,101325,0,0,2048\r\n")
		_, _ = io.WriteString(pw, "200,101300,1,2,3\n")
	}()

	assert.Equal(t, RawSample{Timestamp: 100, Pressure: 101325, AccelZ: 2048}, receive(t, dev.Samples()))
	assert.Equal(t, RawSample{Timestamp: 200, Pressure: 101300, AccelX: 1, AccelY: 2, AccelZ: 3}, receive(t, dev.Samples()))

	require.NoError(t, dev.Close())
	assert.False(t, dev.IsConnected())
	_, ok := <-dev.Samples()
	assert.False(t, ok, "Channel should be closed")

	// Closing twice is harmless.
	assert.NoError(t, dev.Close())
}

func TestSerial_ClosesChannelWhenBoardStops(t *testing.T) {
	dev, pw, _, _ := newTestSerial(t, 0, 0)
	require.NoError(t, dev.Connect())

	go func() {
		_, _ = io.WriteString(pw, "1,101325,0,0,2048\n")
		_ = pw.Close()
	}()

	receive(t, dev.Samples())
	select {
	case _, ok := <-dev.Samples():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("samples channel not closed after EOF")
	}
	require.NoError(t, dev.Close())
}

func TestSerial_Reconnect(t *testing.T) {
	var writers []*io.PipeWriter
	dev := NewSerial("test", 0, 10, 0)
	dev.open = func(string, *serial.Mode) (io.ReadWriteCloser, error) {
		pr, pw := io.Pipe()
		writers = append(writers, pw)
		return &fakePort{r: pr}, nil
	}

	for i := range 3 {
		require.NoError(t, dev.Connect(), "connection %d", i)
		pw := writers[len(writers)-1]
		go func() { _, _ = io.WriteString(pw, fmt.Sprintf("%d,101325,0,0,2048\n", i+1)) }()

		assert.Equal(t, uint32(i+1), receive(t, dev.Samples()).Timestamp)
		require.NoError(t, dev.Close())
		_, ok := <-dev.Samples()
		assert.False(t, ok, "connection %d channel should be closed", i)
	}
}

func TestSerial_ReconnectAfterBoardStopped(t *testing.T) {
	dev, pw, _, _ := newTestSerial(t, 0, 0)
	require.NoError(t, dev.Connect())
	require.NoError(t, pw.Close())
	for range dev.Samples() {
	}

	assert.ErrorIs(t, dev.Connect(), ErrAlreadyConnected)
	require.NoError(t, dev.Close())
	require.NotPanics(t, func() { require.NoError(t, dev.Connect()) })
	require.NoError(t, dev.Close())
}

func TestSerial_ConnectRetries(t *testing.T) {
	dev, _, _, attempts := newTestSerial(t, 2, 3)
	require.NoError(t, dev.Connect())
	assert.Equal(t, 3, *attempts)
	assert.ErrorIs(t, dev.Connect(), ErrAlreadyConnected)
	require.NoError(t, dev.Close())
}

func TestSerial_ConnectGivesUp(t *testing.T) {
	dev, _, _, attempts := newTestSerial(t, 10, 2)
	err := dev.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port busy")
	assert.Equal(t, 3, *attempts)
	assert.False(t, dev.IsConnected())
}

func TestSerial_NoRetries(t *testing.T) {
	dev, _, _, attempts := newTestSerial(t, 1, 0)
	assert.Error(t, dev.Connect())
	assert.Equal(t, 1, *attempts)
}

func TestSerial_Send(t *testing.T) {
	dev, _, port, _ := newTestSerial(t, 0, 0)
	assert.ErrorIs(t, dev.Send("PYRO 0 1"), ErrNotConnected)

	require.NoError(t, dev.Connect())
	require.NoError(t, dev.Send("PYRO 0 1"))
	require.NoError(t, dev.Send("RADIO 3"))
	assert.Equal(t, "PYRO 0 1\nRADIO 3\n", port.String())
	require.NoError(t, dev.Close())
}
