package serialmux

import "io"

// PipePort is an in-process SerialPorter. Lines written to the writer side
// returned by NewPipeSerialMux are read by Monitor; commands sent to the mux
// are discarded.
type PipePort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *PipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *PipePort) Write(b []byte) (int, error) { return len(b), nil }

func (p *PipePort) Close() error {
	p.w.Close()
	return p.r.Close()
}

// NewPipeSerialMux returns a SerialMux fed by the returned writer. Closing
// the writer ends Monitor with a nil error.
func NewPipeSerialMux() (*SerialMux[*PipePort], io.WriteCloser) {
	r, w := io.Pipe()
	return NewSerialMux(&PipePort{r: r, w: w}), w
}
