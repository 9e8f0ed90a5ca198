package frameExtract

import (
	"bufio"
	"io"
)

// SliceSource serves pre-built frames from memory, used by tests and by
// callers that already demuxed a recording themselves.
type SliceSource struct {
	Frames []Frame
	pos    int
	closed bool
}

func (s *SliceSource) Next() (Frame, error) {
	if s.closed || s.pos >= len(s.Frames) {
		return Frame{}, io.EOF
	}
	f := s.Frames[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// RawLumaSource reads tightly packed 8-bit grayscale frames from a stream,
// width*height bytes per frame. Container demuxing is the collaborator's
// problem; this is the raw hand-off format. Timestamps are synthesized from
// the nominal rate since a raw stream carries none.
type RawLumaSource struct {
	Width  int
	Height int
	Rate   float64

	r     *bufio.Reader
	src   io.Reader
	index int
}

func NewRawLumaSource(r io.Reader, width, height int, rate float64) *RawLumaSource {
	return &RawLumaSource{
		Width:  width,
		Height: height,
		Rate:   rate,
		r:      bufio.NewReaderSize(r, width*height),
		src:    r,
	}
}

func (s *RawLumaSource) Next() (Frame, error) {
	buf := make([]uint8, s.Width*s.Height)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			// trailing partial frame, drop it
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}
	f := Frame{
		Pixels:    buf,
		Width:     s.Width,
		Height:    s.Height,
		Timestamp: float64(s.index) / s.Rate,
	}
	s.index++
	return f, nil
}

func (s *RawLumaSource) Close() error {
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
