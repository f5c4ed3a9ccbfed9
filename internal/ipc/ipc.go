// Package ipc is the unix-socket control channel between the voice
// daemon and the control CLI. One JSON request, one JSON reply per
// connection.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

const (
	CmdStart  = "start"
	CmdStop   = "stop"
	CmdStatus = "status"
)

type ControlMessage struct {
	Cmd string `json:"cmd"`
}

type ControlReply struct {
	OK    bool    `json:"ok"`
	State string  `json:"state,omitempty"`
	Level float64 `json:"level,omitempty"`
	Error string  `json:"error,omitempty"`
}

// Handler answers one control command.
type Handler func(ControlMessage) ControlReply

type Server struct {
	ln      net.Listener
	path    string
	handler Handler
}

// StartServer listens on path, replacing any stale socket file.
func StartServer(path string, handler Handler) (*Server, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}

	s := &Server{ln: ln, path: path, handler: handler}
	go s.acceptLoop()
	return s, nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		return
	}
	json.NewEncoder(conn).Encode(s.handler(msg))
}

func (s *Server) Close() error {
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

// Send connects to the daemon socket, sends one command and waits for
// the reply.
func Send(path, cmd string) (ControlReply, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return ControlReply{}, fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd}); err != nil {
		return ControlReply{}, fmt.Errorf("send command: %w", err)
	}

	var reply ControlReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return ControlReply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
