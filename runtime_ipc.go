// runtime_ipc.go - Unix domain socket control channel for a running machine

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const ipcMaxRequestSize = 4096

// Files a running instance accepts through "open". ROMs are excluded: a new
// ROM needs a fresh machine.
var allowedExtensions = map[string]bool{
	".sna": true, ".tzx": true, ".tap": true, ".wav": true, ".mp3": true,
}

type ipcRequest struct {
	Cmd  string `json:"cmd"`
	Path string `json:"path,omitempty"`
	Text string `json:"text,omitempty"`
}

type ipcResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ipcHandler func(req ipcRequest) (string, error)

// IPCServer listens on a Unix socket and hands each request to a handler.
type IPCServer struct {
	listener net.Listener
	handler  ipcHandler
	done     chan struct{}
	sockPath string
}

func resolveSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "spectrum-engine.sock")
	}
	return filepath.Join(os.TempDir(), "spectrum-engine.sock")
}

// NewIPCServer creates and binds the control socket at the default path.
func NewIPCServer(handler ipcHandler) (*IPCServer, error) {
	return newIPCServerAt(resolveSocketPath(), handler)
}

// newIPCServerAt creates and binds the control socket at the given path.
func newIPCServerAt(sockPath string, handler ipcHandler) (*IPCServer, error) {
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		// Stale socket cleanup: try connecting. If peer is dead, remove and retry.
		conn, dialErr := net.DialTimeout("unix", sockPath, 2*time.Second)
		if dialErr != nil {
			os.Remove(sockPath)
			ln, err = net.Listen("unix", sockPath)
			if err != nil {
				return nil, fmt.Errorf("ipc bind failed: %w", err)
			}
		} else {
			conn.Close()
			return nil, errors.New("another instance is already running")
		}
	}
	return &IPCServer{listener: ln, handler: handler, done: make(chan struct{}), sockPath: sockPath}, nil
}

// Start begins accepting IPC connections in a goroutine.
func (s *IPCServer) Start() {
	go s.acceptLoop()
}

// Stop closes the listener and waits for the accept loop to exit.
func (s *IPCServer) Stop() {
	s.listener.Close()
	<-s.done
	os.Remove(s.sockPath)
}

// Run is a machine worker serving requests until ctx ends.
func (s *IPCServer) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *IPCServer) acceptLoop() {
	defer close(s.done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *IPCServer) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	buf := make([]byte, ipcMaxRequestSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return
	}

	var req ipcRequest
	if err := json.Unmarshal(buf[:n], &req); err != nil {
		s.writeResponse(conn, ipcResponse{Status: "err", Message: "invalid json"})
		return
	}

	if req.Cmd == "open" {
		if err := validateIPCPath(req.Path); err != nil {
			s.writeResponse(conn, ipcResponse{Status: "err", Message: err.Error()})
			return
		}
	}

	msg, err := s.handler(req)
	if err != nil {
		s.writeResponse(conn, ipcResponse{Status: "err", Message: err.Error()})
		return
	}
	s.writeResponse(conn, ipcResponse{Status: "ok", Message: msg})
}

func (s *IPCServer) writeResponse(conn net.Conn, resp ipcResponse) {
	data, _ := json.Marshal(resp)
	conn.Write(data)
}

func validateIPCPath(path string) error {
	if !filepath.IsAbs(path) {
		return errors.New("absolute path required")
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		return fmt.Errorf("unsupported extension: %s", ext)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}

// SendIPCOpen asks a running instance at the default socket to open path.
func SendIPCOpen(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	_, err = sendIPCAt(resolveSocketPath(), ipcRequest{Cmd: "open", Path: abs})
	return err
}

// sendIPCAt sends one request to the instance at sockPath and returns its
// message.
func sendIPCAt(sockPath string, req ipcRequest) (string, error) {
	conn, err := net.DialTimeout("unix", sockPath, 10*time.Second)
	if err != nil {
		return "", fmt.Errorf("cannot connect to running instance: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	data, _ := json.Marshal(req)
	if _, err := conn.Write(data); err != nil {
		return "", fmt.Errorf("send failed: %w", err)
	}

	buf := make([]byte, ipcMaxRequestSize)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("read response failed: %w", err)
	}

	var resp ipcResponse
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		return "", fmt.Errorf("invalid response: %w", err)
	}
	if resp.Status != "ok" {
		return "", fmt.Errorf("remote error: %s", resp.Message)
	}
	return resp.Message, nil
}

// spectrumControl answers control requests against m:
//
//	open PATH      load a snapshot or replace the tape
//	type TEXT      queue key strokes
//	reset, nmi     as the front panel keys
//	play, stop     tape deck
//	pause, resume  hold or release the CPU
//	status         one-line machine summary
func spectrumControl(m *Spectrum) ipcHandler {
	return func(req ipcRequest) (string, error) {
		switch req.Cmd {
		case "open":
			kind, err := classifyInput(req.Path)
			if err != nil {
				return "", err
			}
			if kind == inputSnapshot {
				return "", m.LoadSnapshot(req.Path)
			}
			blocks, err := LoadTapeFile(req.Path, m.cfg.ClockHz)
			if err != nil {
				return "", err
			}
			m.InsertBlocks(blocks)
			if m.cfg.TapeAutoplay {
				m.PlayTape()
			}
			return fmt.Sprintf("%d blocks", len(blocks)), nil
		case "type":
			m.TypeText(req.Text)
			return "", nil
		case "reset":
			return "", m.Reset()
		case "nmi":
			return "", m.NMI()
		case "play":
			m.PlayTape()
			return "", nil
		case "stop":
			m.StopTape()
			return "", nil
		case "pause":
			m.SetPaused(true)
			return "", nil
		case "resume":
			m.SetPaused(false)
			return "", nil
		case "status":
			s := m.Status()
			return fmt.Sprintf("cycles=%d frames=%d paused=%v tape=%q", s.Cycles, s.Frames, s.Paused, s.TapeState()), nil
		}
		return "", fmt.Errorf("unknown command %q", req.Cmd)
	}
}
