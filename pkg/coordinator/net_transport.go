package coordinator

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/supervm/txcore/pkg/log"
)

// frame is the envelope every NetTransport request/response travels in:
// a kind tag plus a gob-encoded payload, length-prefixed on the wire.
type frame struct {
	Kind    string
	Payload []byte
}

func encodeFrame(kind string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("coordinator transport: encode %s: %w", kind, err)
	}
	f := frame{Kind: kind, Payload: buf.Bytes()}

	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode(f); err != nil {
		return nil, fmt.Errorf("coordinator transport: encode frame: %w", err)
	}
	return out.Bytes(), nil
}

func writeFramed(w io.Writer, data []byte) error {
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(data)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readFramed(r io.Reader) ([]byte, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(lenPrefix[:])
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// NetTransport is a ShardTransport that dials a plain TCP connection per
// call and frames requests with a 4-byte big-endian length prefix around
// a gob-encoded frame, per spec.md §6: "each prepare/commit message is a
// length-delimited frame containing the serialized request/response."
type NetTransport struct {
	endpoints map[uint16]string
	dialer    net.Dialer
	logger    zerolog.Logger
}

// NewNetTransport wires a NetTransport against a shard-id -> "host:port"
// endpoint map, per config.CoordinatorConfig.ShardEndpoints.
func NewNetTransport(endpoints map[uint16]string) *NetTransport {
	return &NetTransport{endpoints: endpoints, logger: log.WithComponent("coordinator-transport")}
}

func (t *NetTransport) call(ctx context.Context, shardID uint16, kind string, payload any, response any) error {
	endpoint, ok := t.endpoints[shardID]
	if !ok {
		return errUnknownShard(shardID)
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return &connError{shardID: shardID, err: err}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	}

	data, err := encodeFrame(kind, payload)
	if err != nil {
		return err
	}
	if err := writeFramed(conn, data); err != nil {
		return &connError{shardID: shardID, err: err}
	}

	respData, err := readFramed(conn)
	if err != nil {
		return &connError{shardID: shardID, err: err}
	}

	var f frame
	if err := gob.NewDecoder(bytes.NewReader(respData)).Decode(&f); err != nil {
		return fmt.Errorf("coordinator transport: decode frame: %w", err)
	}
	return gob.NewDecoder(bytes.NewReader(f.Payload)).Decode(response)
}

func (t *NetTransport) Prepare(ctx context.Context, shardID uint16, req PrepareRequest) (PrepareResponse, error) {
	var resp PrepareResponse
	err := t.call(ctx, shardID, "prepare", req, &resp)
	return resp, err
}

func (t *NetTransport) Commit(ctx context.Context, shardID uint16, req CommitRequest) (Ack, error) {
	var ack Ack
	err := t.call(ctx, shardID, "commit", req, &ack)
	return ack, err
}

func (t *NetTransport) Abort(ctx context.Context, shardID uint16, req CommitRequest) (Ack, error) {
	var ack Ack
	err := t.call(ctx, shardID, "abort", req, &ack)
	return ack, err
}

var _ ShardTransport = (*NetTransport)(nil)

type connError struct {
	shardID uint16
	err     error
}

func (e *connError) Error() string {
	return fmt.Sprintf("coordinator transport: shard %d: %s", e.shardID, e.err)
}
func (e *connError) Unwrap() error { return e.err }

// Server listens for NetTransport frames and dispatches them to a local
// Participant, the server side of the pluggable wire protocol.
type Server struct {
	participant *Participant
	listener    net.Listener
	logger      zerolog.Logger

	wg sync.WaitGroup
}

// NewServer wraps participant behind a TCP listener bound to addr.
func NewServer(participant *Participant, addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("coordinator server: listen %s: %w", addr, err)
	}
	return &Server{participant: participant, listener: ln, logger: log.WithComponent("coordinator-server")}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Serve accepts connections until Close is called.
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

// Close stops accepting new connections and waits for in-flight handlers.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	data, err := readFramed(conn)
	if err != nil {
		return
	}
	var f frame
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return
	}

	var respPayload any
	switch f.Kind {
	case "prepare":
		var req PrepareRequest
		if err := gob.NewDecoder(bytes.NewReader(f.Payload)).Decode(&req); err != nil {
			return
		}
		respPayload = s.participant.Prepare(req)
	case "commit":
		var req CommitRequest
		if err := gob.NewDecoder(bytes.NewReader(f.Payload)).Decode(&req); err != nil {
			return
		}
		respPayload = s.participant.Commit(req)
	case "abort":
		var req CommitRequest
		if err := gob.NewDecoder(bytes.NewReader(f.Payload)).Decode(&req); err != nil {
			return
		}
		respPayload = s.participant.Abort(req)
	default:
		return
	}

	respData, err := encodeFrame(f.Kind, respPayload)
	if err != nil {
		return
	}
	_ = writeFramed(conn, respData)
}
