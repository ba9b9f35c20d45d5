package control

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"wispr/internal/transcript"
)

// Ops understood by the session control socket.
const (
	OpStatus = "status"
	OpHealth = "health"
	OpToggle = "toggle"
	OpClear  = "clear"
)

type Request struct {
	Op string `json:"op"`
}

type Status struct {
	Running     bool               `json:"running"`
	UptimeSec   float64            `json:"uptime_sec"`
	State       string             `json:"state"`
	Error       string             `json:"error,omitempty"`
	Transcripts []transcript.Entry `json:"transcripts"`
}

type SimpleResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Call sends one request to the session socket and decodes the reply into resp.
func Call(socketPath, op string, resp any) error {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("cannot connect to session: %w", err)
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(Request{Op: op}); err != nil {
		return err
	}
	return json.NewDecoder(conn).Decode(resp)
}
