package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"time"

	"wispr/internal/control"
)

func (s *Session) controlLoop(ctx context.Context) {
	path := s.cfg.Paths.SocketPath
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Debugf("remove stale socket: %v", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		s.logger.Errorf("control listen: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Debugf("remove socket: %v", err)
		}
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("control accept: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Session) handleConn(ctx context.Context, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil && ctx.Err() == nil {
			s.logger.Warnf("control connection close: %v", err)
		}
	}()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		return
	}
	var req control.Request
	if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
		return
	}
	enc := json.NewEncoder(conn)
	switch req.Op {
	case control.OpStatus:
		_ = enc.Encode(s.Status())
	case control.OpHealth:
		_ = enc.Encode(s.backendHealth(ctx))
	case control.OpToggle:
		if err := s.rec.Toggle(ctx); err != nil {
			_ = enc.Encode(control.SimpleResponse{OK: false, Message: err.Error()})
			return
		}
		_ = enc.Encode(control.SimpleResponse{OK: true, Message: s.rec.State().String()})
	case control.OpClear:
		if err := s.Clear(ctx); err != nil {
			_ = enc.Encode(control.SimpleResponse{OK: false, Message: err.Error()})
			return
		}
		_ = enc.Encode(control.SimpleResponse{OK: true, Message: "cleared"})
	default:
		_ = enc.Encode(control.SimpleResponse{OK: false, Message: "unknown op " + req.Op})
	}
}

// Status snapshots the session for the control socket.
func (s *Session) Status() control.Status {
	state, msg := s.rec.Status()
	return control.Status{
		Running:     true,
		UptimeSec:   time.Since(s.startedAt).Seconds(),
		State:       state.String(),
		Error:       msg,
		Transcripts: s.history.Entries(),
	}
}

func (s *Session) backendHealth(ctx context.Context) control.SimpleResponse {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	h, err := s.client.Health(ctx)
	if err != nil {
		return control.SimpleResponse{OK: false, Message: err.Error()}
	}
	return control.SimpleResponse{OK: true, Message: h.Summary()}
}
