package httpx

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type recordSink struct {
	status       int
	statusText   string
	header       http.Header
	headerWrites int
	buf          bytes.Buffer
	ended        bool
	destroyed    bool
	destroyedErr error
	closeCh      chan struct{}
	failWrites   bool
}

func newRecordSink() *recordSink { return &recordSink{} }

func (s *recordSink) WriteHeader(status int, statusText string, header http.Header) {
	s.headerWrites++
	s.status = status
	s.statusText = statusText
	s.header = header.Clone()
}

func (s *recordSink) Write(p []byte) (int, error) {
	if s.failWrites {
		return 0, errors.New("peer reset")
	}
	return s.buf.Write(p)
}

func (s *recordSink) CloseNotify() <-chan struct{} {
	if s.closeCh == nil {
		return nil
	}
	return s.closeCh
}

func (s *recordSink) End() { s.ended = true }

func (s *recordSink) Destroy(err error) {
	s.destroyed = true
	s.destroyedErr = err
}

// errAfterReader yields its payload, then a non-EOF error.
type errAfterReader struct {
	payload io.Reader
	closed  bool
}

func (r *errAfterReader) Read(p []byte) (int, error) {
	n, err := r.payload.Read(p)
	if err == io.EOF {
		return n, errors.New("backing store failed")
	}
	return n, err
}

func (r *errAfterReader) Close() error {
	r.closed = true
	return nil
}

func TestWriteEnvelopeNoBody(t *testing.T) {
	sink := newRecordSink()
	released := 0
	err := WriteEnvelope(&Envelope{Status: 204}, sink, func() { released++ })
	if err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}
	if sink.status != 204 || !sink.ended || sink.destroyed {
		t.Fatalf("unexpected sink state: %+v", sink)
	}
	if released != 1 {
		t.Fatalf("release ran %d times", released)
	}
}

func TestWriteEnvelopeStreamsBody(t *testing.T) {
	sink := newRecordSink()
	hdr := make(http.Header)
	hdr.Set("Content-Type", "text/html")
	env := &Envelope{Status: 200, Header: hdr, Body: strings.NewReader("<h1>hi</h1>")}
	if err := WriteEnvelope(env, sink, nil); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}
	if sink.buf.String() != "<h1>hi</h1>" {
		t.Fatalf("body: %q", sink.buf.String())
	}
	if sink.header.Get("Content-Type") != "text/html" {
		t.Fatalf("headers not forwarded")
	}
	if !sink.ended {
		t.Fatalf("sink not ended")
	}
}

func TestWriteEnvelopeDefaultsStatus(t *testing.T) {
	sink := newRecordSink()
	_ = WriteEnvelope(&Envelope{}, sink, nil)
	if sink.status != 200 || sink.statusText != "OK" {
		t.Fatalf("got %d %q", sink.status, sink.statusText)
	}
}

func TestWriteEnvelopeMidStreamError(t *testing.T) {
	sink := newRecordSink()
	body := &errAfterReader{payload: strings.NewReader("first chunk")}
	released := 0
	err := WriteEnvelope(&Envelope{Status: 200, Body: body}, sink, func() { released++ })
	if err == nil {
		t.Fatalf("expected the body error back")
	}
	if !sink.destroyed || sink.destroyedErr == nil {
		t.Fatalf("sink must be destroyed with the causing error")
	}
	if sink.headerWrites != 1 {
		t.Fatalf("headers written %d times", sink.headerWrites)
	}
	if !strings.Contains(sink.buf.String(), "first chunk") {
		t.Fatalf("flushed chunk lost: %q", sink.buf.String())
	}
	if !strings.Contains(sink.buf.String(), "Internal server error") {
		t.Fatalf("generic failure payload missing")
	}
	if sink.ended {
		t.Fatalf("sink must not end normally after destroy")
	}
	if released != 1 {
		t.Fatalf("release ran %d times", released)
	}
}

func TestWriteEnvelopeEarlyClose(t *testing.T) {
	sink := newRecordSink()
	sink.closeCh = make(chan struct{})
	close(sink.closeCh)
	body := &errAfterReader{payload: strings.NewReader("never sent")}
	released := 0
	err := WriteEnvelope(&Envelope{Status: 200, Body: body}, sink, func() { released++ })
	if err != nil {
		t.Fatalf("early close is reported, not returned: %v", err)
	}
	if !body.closed {
		t.Fatalf("body reader must be canceled on early close")
	}
	if sink.destroyed || sink.ended {
		t.Fatalf("early close neither ends nor destroys: %+v", sink)
	}
	if released != 1 {
		t.Fatalf("release ran %d times", released)
	}
}

func TestWriteEnvelopeSinkWriteFailure(t *testing.T) {
	sink := newRecordSink()
	sink.failWrites = true
	err := WriteEnvelope(&Envelope{Status: 200, Body: strings.NewReader("data")}, sink, nil)
	if err == nil {
		t.Fatalf("expected write error back")
	}
	if !sink.destroyed {
		t.Fatalf("sink must be destroyed on write failure")
	}
}
