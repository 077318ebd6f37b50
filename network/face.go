// Package network provides Face implementations: TLV packet streams over
// net.Conn for real links and paired in-process faces for demos and
// tests.
package network

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	aggnet "github.com/zzhang154/Decentralized-Aggregation"
	"github.com/zzhang154/Decentralized-Aggregation/names"
	"github.com/zzhang154/Decentralized-Aggregation/protocol"
	"github.com/zzhang154/Decentralized-Aggregation/utils"
)

var ErrFaceClosed = errors.New("face is closed")

// Handler is the engine side of a face: inbound packets dispatch here.
// aggnet.Engine implements it.
type Handler interface {
	OnRequestReceived(name names.Name, in aggnet.Face, lifetime time.Duration)
	OnResponseReceived(name names.Name, value uint64, in aggnet.Face)
}

// StreamFace frames aggregation packets as TLV records over one
// net.Conn.
type StreamFace struct {
	id   uint64
	conn net.Conn
	log  utils.Logger

	wmu    sync.Mutex
	closed atomic.Bool
}

func NewStreamFace(id uint64, conn net.Conn, log utils.Logger) *StreamFace {
	return &StreamFace{id: id, conn: conn, log: log}
}

func (f *StreamFace) ID() uint64 { return f.id }

func (f *StreamFace) SendRequest(name names.Name, lifetime time.Duration) error {
	return f.write(protocol.Request{Name: name, Lifetime: lifetime}.Encode())
}

func (f *StreamFace) SendResponse(name names.Name, value uint64) error {
	return f.write(protocol.Response{Name: name, Value: value}.Encode())
}

func (f *StreamFace) write(rec []byte) error {
	if f.closed.Load() {
		return ErrFaceClosed
	}
	f.wmu.Lock()
	defer f.wmu.Unlock()
	_, err := f.conn.Write(rec)
	return err
}

func (f *StreamFace) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.conn.Close()
}

// Run reads the conn until error or close, dispatching every complete
// packet into the handler. Callers run it on its own goroutine.
func (f *StreamFace) Run(h Handler) error {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	for {
		n, err := f.conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			recs, serr := protocol.Split(&buf)
			if serr != nil && !errors.Is(serr, protocol.ErrIncomplete) {
				f.log.Warn("garbage on face, closing", "face", f.id, "err", serr)
				_ = f.Close()
				return serr
			}
			for _, rec := range recs {
				f.dispatch(h, rec)
			}
		}
		if err != nil {
			if f.closed.Load() {
				return nil
			}
			return err
		}
	}
}

func (f *StreamFace) dispatch(h Handler, rec []byte) {
	lit, body, _ := protocol.TakeAny(rec)
	switch lit {
	case protocol.LitRequest:
		rq, err := protocol.ParseRequest(body)
		if err != nil {
			f.log.Warn("malformed request dropped", "face", f.id, "err", err)
			return
		}
		h.OnRequestReceived(rq.Name, f, rq.Lifetime)
	case protocol.LitResponse:
		rp, err := protocol.ParseResponse(body)
		if errors.Is(err, protocol.ErrMalformedPayload) {
			// Degrade, never crash the entry: a broken scalar counts as 0.
			f.log.Warn("malformed response payload treated as 0",
				"face", f.id, "name", rp.Name.String())
			err = nil
		}
		if err != nil {
			f.log.Warn("malformed response dropped", "face", f.id, "err", err)
			return
		}
		h.OnResponseReceived(rp.Name, rp.Value, f)
	default:
		f.log.Debug("unknown record type dropped", "face", f.id, "type", string(rune(lit)))
	}
}
