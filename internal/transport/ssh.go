package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/rhuanssauro/cisco-mcp-server/pkg/models"
)

// SSHConfig contains SSH transport configuration.
type SSHConfig struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	PingTimeout    time.Duration
	MaxOutputSize  int
	KnownHostsFile string
	KexAlgorithms  []string
	Ciphers        []string
	MACs           []string
}

// DefaultSSHConfig returns default SSH transport configuration.
func DefaultSSHConfig() *SSHConfig {
	return &SSHConfig{
		ConnectTimeout: 30 * time.Second,
		CommandTimeout: 60 * time.Second,
		PingTimeout:    120 * time.Second,
		MaxOutputSize:  10 * 1024 * 1024, // 10MB
		KexAlgorithms: []string{
			"curve25519-sha256",
			"curve25519-sha256@libssh.org",
			"ecdh-sha2-nistp256",
			"ecdh-sha2-nistp384",
			"ecdh-sha2-nistp521",
			"diffie-hellman-group14-sha256",
			"diffie-hellman-group14-sha1", // older IOS images
		},
		Ciphers: []string{
			"chacha20-poly1305@openssh.com",
			"aes256-gcm@openssh.com",
			"aes128-gcm@openssh.com",
			"aes256-ctr",
			"aes192-ctr",
			"aes128-ctr",
		},
		MACs: []string{
			"hmac-sha2-256-etm@openssh.com",
			"hmac-sha2-512-etm@openssh.com",
			"hmac-sha2-256",
			"hmac-sha2-512",
			"hmac-sha1",
		},
	}
}

// SSHTransport implements Transport over an interactive SSH shell.
type SSHTransport struct {
	config *SSHConfig
	logger *zap.Logger
}

// NewSSHTransport creates a new SSH transport.
func NewSSHTransport(config *SSHConfig, logger *zap.Logger) *SSHTransport {
	if config == nil {
		config = DefaultSSHConfig()
	}
	return &SSHTransport{config: config, logger: logger}
}

// Open establishes one connection to the target and prepares an
// interactive shell with paging disabled.
func (t *SSHTransport) Open(ctx context.Context, target models.DeviceTarget) (Session, error) {
	hostKeyCB, err := t.hostKeyCallback(target)
	if err != nil {
		return nil, models.NewConnectionError(fmt.Sprintf("host key verification setup failed for %s", target.Name), err)
	}

	sshConfig := &ssh.ClientConfig{
		User:            target.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(target.Secret)},
		HostKeyCallback: hostKeyCB,
		Timeout:         t.config.ConnectTimeout,
		Config: ssh.Config{
			KeyExchanges: t.config.KexAlgorithms,
			Ciphers:      t.config.Ciphers,
			MACs:         t.config.MACs,
		},
	}

	dialer := &net.Dialer{Timeout: t.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target.Addr())
	if err != nil {
		return nil, models.NewConnectionError(fmt.Sprintf("failed to connect to %s", target.Name), err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, target.Addr(), sshConfig)
	if err != nil {
		conn.Close()
		return nil, models.NewConnectionError(fmt.Sprintf("SSH handshake with %s failed", target.Name), err)
	}
	client := ssh.NewClient(c, chans, reqs)

	sess, err := t.openShell(ctx, client, target)
	if err != nil {
		client.Close()
		return nil, models.NewConnectionError(fmt.Sprintf("failed to open shell on %s", target.Name), err)
	}

	t.logger.Info("Opened device session",
		zap.String("session_id", sess.id.String()),
		zap.String("device", target.Name),
		zap.String("platform", string(target.Platform)),
	)
	return sess, nil
}

func (t *SSHTransport) hostKeyCallback(target models.DeviceTarget) (ssh.HostKeyCallback, error) {
	if !target.AuthStrictKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path := t.config.KnownHostsFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	return knownhosts.New(path)
}

// openShell starts an interactive PTY shell, waits for the first prompt
// and disables paging.
func (t *SSHTransport) openShell(ctx context.Context, client *ssh.Client, target models.DeviceTarget) (*sshSession, error) {
	remote, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := remote.RequestPty("xterm", 80, 512, modes); err != nil {
		remote.Close()
		return nil, fmt.Errorf("failed to request PTY: %w", err)
	}

	stdin, err := remote.StdinPipe()
	if err != nil {
		remote.Close()
		return nil, fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := remote.StdoutPipe()
	if err != nil {
		remote.Close()
		return nil, fmt.Errorf("failed to get stdout: %w", err)
	}

	if err := remote.Shell(); err != nil {
		remote.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	out := make(chan []byte, 16)
	done := make(chan struct{})
	go readOutput(stdout, out, done)

	s := &sshSession{
		id:     uuid.New(),
		target: target,
		client: client,
		remote: remote,
		stdin:  stdin,
		out:    out,
		done:   done,
		config: t.config,
		logger: t.logger,
	}

	// Consume the login banner up to the first prompt, then turn paging off.
	if _, err := s.awaitPrompt(ctx, t.config.ConnectTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("no device prompt: %w", err)
	}
	if _, err := s.run(ctx, DisablePagingCommand(target.Platform), t.config.CommandTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to disable paging: %w", err)
	}
	return s, nil
}

// readOutput pumps shell output into the session channel. The device may
// keep streaming after the consumer gave up (timeout, cancellation, output
// cap), so every send also watches done; otherwise the goroutine would
// park on the send forever once the buffer fills.
func readOutput(r io.Reader, out chan<- []byte, done <-chan struct{}) {
	defer close(out)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// promptRE matches a device CLI prompt at the end of the output stream,
// e.g. "Router1#", "RP/0/RP0/CPU0:xr1#" or "switch(config)#".
var promptRE = regexp.MustCompile(`(?m)^[\w.\-/:@()]+[#>]\s*$`)

type sshSession struct {
	id     uuid.UUID
	target models.DeviceTarget
	client *ssh.Client
	remote *ssh.Session
	stdin  io.WriteCloser
	out    <-chan []byte
	done   chan struct{}
	config *SSHConfig
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Send executes one command on the interactive shell.
func (s *sshSession) Send(ctx context.Context, command string) (string, error) {
	return s.run(ctx, command, s.config.CommandTimeout)
}

// SendConfig applies configuration lines inside the platform's config
// mode. Per-line outputs for the caller's lines are collected; mode
// entry/exit output is discarded.
func (s *sshSession) SendConfig(ctx context.Context, lines []string) ([]string, error) {
	for _, cmd := range ConfigModeEnter(s.target.Platform) {
		if _, err := s.run(ctx, cmd, s.config.CommandTimeout); err != nil {
			return nil, fmt.Errorf("failed to enter configuration mode: %w", err)
		}
	}

	outputs := make([]string, 0, len(lines))
	for i, line := range lines {
		out, err := s.run(ctx, line, s.config.CommandTimeout)
		if err != nil {
			return outputs, fmt.Errorf("config line %d (%q) failed: %w", i, line, err)
		}
		if marker := cliErrorMarker(out); marker != "" {
			outputs = append(outputs, out)
			return outputs, fmt.Errorf("config line %d (%q) rejected by device: %s", i, line, marker)
		}
		outputs = append(outputs, out)
	}

	for _, cmd := range ConfigModeExit(s.target.Platform) {
		if _, err := s.run(ctx, cmd, s.config.CommandTimeout); err != nil {
			return outputs, fmt.Errorf("failed to leave configuration mode: %w", err)
		}
	}
	return outputs, nil
}

// Ping runs the platform's ping command with a longer timeout, since large
// repeat counts legitimately take a while.
func (s *sshSession) Ping(ctx context.Context, target string, count int) (string, error) {
	return s.run(ctx, PingCommand(s.target.Platform, target, count), s.config.PingTimeout)
}

// Close terminates the shell and the connection. Safe to call more than
// once; only the first call does work.
func (s *sshSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)

	io.WriteString(s.stdin, "exit\n")
	s.stdin.Close()
	s.remote.Close()
	err := s.client.Close()

	s.logger.Info("Closed device session",
		zap.String("session_id", s.id.String()),
		zap.String("device", s.target.Name),
	)
	return err
}

// run writes one command line and reads until the next prompt.
func (s *sshSession) run(ctx context.Context, command string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", models.ErrSessionClosed
	}
	s.mu.Unlock()

	if _, err := io.WriteString(s.stdin, command+"\n"); err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}

	raw, err := s.awaitPrompt(ctx, timeout)
	if err != nil {
		return string(raw), err
	}
	return s.cleanOutput(raw, command), nil
}

// awaitPrompt accumulates shell output until a prompt terminates it, the
// timeout elapses or the context is cancelled.
func (s *sshSession) awaitPrompt(ctx context.Context, timeout time.Duration) ([]byte, error) {
	var buf bytes.Buffer
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case chunk, ok := <-s.out:
			if !ok {
				return buf.Bytes(), fmt.Errorf("connection closed by device")
			}
			buf.Write(chunk)
			if buf.Len() > s.config.MaxOutputSize {
				return buf.Bytes()[:s.config.MaxOutputSize], fmt.Errorf("output exceeds %d bytes", s.config.MaxOutputSize)
			}
			if tail := lastLine(buf.Bytes()); promptRE.Match(tail) {
				return buf.Bytes(), nil
			}
		case <-ctx.Done():
			return buf.Bytes(), ctx.Err()
		case <-deadline.C:
			return buf.Bytes(), models.ErrOperationTimeout
		}
	}
}

// cleanOutput strips the echoed command line and the trailing prompt from
// raw shell output.
func (s *sshSession) cleanOutput(raw []byte, command string) string {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	if len(lines) > 0 && strings.TrimSpace(lines[0]) == strings.TrimSpace(command) {
		lines = lines[1:]
	}
	for len(lines) > 0 && promptRE.MatchString(strings.TrimRight(lines[len(lines)-1], " ")) {
		lines = lines[:len(lines)-1]
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// lastLine returns the final line of a buffer, excluding the trailing
// newline if present.
func lastLine(b []byte) []byte {
	b = bytes.TrimRight(b, "\r\n ")
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return b[i+1:]
	}
	return b
}

// cliErrorMarker detects the inline error markers Cisco CLIs print instead
// of failing the channel, e.g. "% Invalid input detected".
func cliErrorMarker(output string) string {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		for _, marker := range []string{"% invalid", "% incomplete", "% ambiguous", "% error"} {
			if strings.HasPrefix(lower, marker) {
				return trimmed
			}
		}
	}
	return ""
}
