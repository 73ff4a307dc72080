package terminal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/tdonkor/payterm/internal/domain"
)

// Frame operations understood by the driver.
const (
	opConnect    = "connect"
	opPay        = "pay"
	opReverse    = "reverse"
	opDisconnect = "disconnect"
)

// Timeouts bounds the channel. The peripheral can sit idle for long spans
// between sales, but an unbounded call is a liveness risk, so both values are
// finite by default and configurable upward.
type Timeouts struct {
	Dial time.Duration
	Call time.Duration
}

const (
	DefaultDialTimeout = 5 * time.Second
	DefaultCallTimeout = 10 * time.Minute
)

func (t Timeouts) withDefaults() Timeouts {
	if t.Dial <= 0 {
		t.Dial = DefaultDialTimeout
	}
	if t.Call <= 0 {
		t.Call = DefaultCallTimeout
	}
	return t
}

// Channel is the reusable session factory over the driver's local endpoint.
// Each session holds its own TCP connection; nothing is shared across calls.
type Channel struct {
	endpoint string
	timeouts Timeouts
}

// NewChannel builds a channel to the driver's endpoint. No connection is made
// until a session is dialed.
func NewChannel(endpoint string, timeouts Timeouts) *Channel {
	return &Channel{endpoint: endpoint, timeouts: timeouts.withDefaults()}
}

// Dial opens a fresh session to the driver.
func (c *Channel) Dial(ctx context.Context) (Session, error) {
	d := net.Dialer{Timeout: c.timeouts.Dial}
	conn, err := d.DialContext(ctx, "tcp", c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial driver %s: %w", c.endpoint, err)
	}
	return &session{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: c.timeouts.Call,
	}, nil
}

// frameRequest is one newline-delimited JSON request to the driver.
type frameRequest struct {
	Op          string `json:"op"`
	Address     string `json:"address,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	POSNumber   int    `json:"pos_number,omitempty"`
	ForceOnline bool   `json:"force_online,omitempty"`
}

// frameResponse is the driver's answer to a single frame.
type frameResponse struct {
	Code     int                         `json:"code"`
	Response *domain.TransactionResponse `json:"response,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

type session struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

func (s *session) Connect(address string) Code {
	resp, err := s.roundTrip(frameRequest{Op: opConnect, Address: address})
	if err != nil {
		return CodeChannelError
	}
	return Code(resp.Code)
}

func (s *session) Pay(req domain.TransactionRequest) (Code, *domain.TransactionResponse) {
	resp, err := s.roundTrip(frameRequest{
		Op:          opPay,
		Amount:      req.Amount,
		POSNumber:   req.POSNumber,
		ForceOnline: req.ForceOnline,
	})
	if err != nil {
		return CodeChannelError, nil
	}
	return Code(resp.Code), resp.Response
}

func (s *session) Reverse(amount int64) (Code, *domain.TransactionResponse) {
	resp, err := s.roundTrip(frameRequest{Op: opReverse, Amount: amount})
	if err != nil {
		return CodeChannelError, nil
	}
	return Code(resp.Code), resp.Response
}

func (s *session) Disconnect() Code {
	resp, err := s.roundTrip(frameRequest{Op: opDisconnect})
	if err != nil {
		return CodeChannelError
	}
	return Code(resp.Code)
}

func (s *session) Close() error {
	return s.conn.Close()
}

// roundTrip sends one frame and blocks for its answer. Every call is a
// synchronous request/response pair; the deadline covers both directions.
func (s *session) roundTrip(req frameRequest) (*frameResponse, error) {
	if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}
	payload = append(payload, '\n')

	if _, err := s.conn.Write(payload); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	var resp frameResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	return &resp, nil
}
