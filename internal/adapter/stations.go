package adapter

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// StationSource reads the wireless station table directly from an
// access point over SSH (`iw dev <iface> station dump`). This covers
// installations without a controller API: the AP itself is the network
// collaborator.
//
// iw reports cumulative byte counters, so per-device send/receive rates
// are derived from the delta between consecutive polls.
type StationSource struct {
	host       string
	port       int
	user       string
	password   string
	keyFile    string
	interfaces []string
	timeout    time.Duration

	mu   sync.Mutex
	prev map[string]stationCounters
}

type stationCounters struct {
	txBytes int64
	rxBytes int64
	at      time.Time
}

// StationSourceConfig configures an SSH station source
type StationSourceConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	KeyFile    string
	Interfaces []string
	Timeout    time.Duration
}

// NewStationSource creates an SSH-backed network source
func NewStationSource(cfg StationSourceConfig) *StationSource {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if len(cfg.Interfaces) == 0 {
		cfg.Interfaces = []string{"wlan0"}
	}
	return &StationSource{
		host:       cfg.Host,
		port:       cfg.Port,
		user:       cfg.User,
		password:   cfg.Password,
		keyFile:    cfg.KeyFile,
		interfaces: cfg.Interfaces,
		timeout:    cfg.Timeout,
		prev:       make(map[string]stationCounters),
	}
}

// Name returns the source identifier
func (s *StationSource) Name() string {
	return "stations"
}

// Fetch connects to the access point and dumps each interface's station
// table. SSH handshake failures with a rejected credential map to
// ErrAuth; dial timeouts and command failures are transient.
func (s *StationSource) Fetch(ctx context.Context) ([]AssociationRecord, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	now := time.Now()
	var records []AssociationRecord
	for _, iface := range s.interfaces {
		out, err := runCommand(client, fmt.Sprintf("iw dev %s station dump", iface))
		if err != nil {
			return nil, fmt.Errorf("station dump %s: %w", iface, err)
		}
		records = append(records, s.parseStationDump(out, iface, now)...)
	}
	return records, nil
}

func (s *StationSource) connect(ctx context.Context) (*ssh.Client, error) {
	config, err := s.buildSSHConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAuth, err)
	}
	config.Timeout = s.timeout

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("ssh handshake: %s: %w", err, ErrAuth)
		}
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

func (s *StationSource) buildSSHConfig() (*ssh.ClientConfig, error) {
	if s.user == "" {
		return nil, fmt.Errorf("ssh user not configured")
	}

	var auth []ssh.AuthMethod
	if s.keyFile != "" {
		keyData, err := os.ReadFile(s.keyFile)
		if err != nil {
			return nil, fmt.Errorf("read private key: %v", err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %v", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if s.password != "" {
		auth = append(auth, ssh.Password(s.password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("no ssh credentials configured")
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func runCommand(client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("new session: %w", err)
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout
	if err := session.Run(cmd); err != nil {
		return "", fmt.Errorf("run %q: %w", cmd, err)
	}
	return stdout.String(), nil
}

// parseStationDump extracts per-station MAC, RSSI and byte counters from
// iw output and converts counters to rates using the previous poll.
func (s *StationSource) parseStationDump(out, iface string, now time.Time) []AssociationRecord {
	point := s.host + ":" + iface

	var records []AssociationRecord
	var cur *AssociationRecord
	var tx, rx int64

	flush := func() {
		if cur == nil {
			return
		}
		cur.SendRate, cur.ReceiveRate = s.rates(cur.DeviceID, tx, rx, now)
		records = append(records, *cur)
		cur, tx, rx = nil, 0, 0
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Station "):
			flush()
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			cur = &AssociationRecord{
				DeviceID:         strings.ToLower(fields[1]),
				AssociationPoint: point,
				LastSeen:         now,
			}
		case cur == nil:
			continue
		case strings.HasPrefix(line, "signal:"):
			if v, err := strconv.Atoi(firstField(strings.TrimPrefix(line, "signal:"))); err == nil {
				cur.SignalStrength = v
			}
		case strings.HasPrefix(line, "tx bytes:"):
			if v, err := strconv.ParseInt(firstField(strings.TrimPrefix(line, "tx bytes:")), 10, 64); err == nil {
				tx = v
			}
		case strings.HasPrefix(line, "rx bytes:"):
			if v, err := strconv.ParseInt(firstField(strings.TrimPrefix(line, "rx bytes:")), 10, 64); err == nil {
				rx = v
			}
		}
	}
	flush()
	return records
}

// rates turns cumulative counters into bytes/sec. The first sighting of
// a device (or a counter reset) yields zero rather than a bogus spike.
func (s *StationSource) rates(deviceID string, tx, rx int64, now time.Time) (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.prev[deviceID]
	s.prev[deviceID] = stationCounters{txBytes: tx, rxBytes: rx, at: now}

	if !ok || tx < prev.txBytes || rx < prev.rxBytes {
		return 0, 0
	}
	elapsed := now.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return 0, 0
	}
	return float64(tx-prev.txBytes) / elapsed, float64(rx-prev.rxBytes) / elapsed
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
