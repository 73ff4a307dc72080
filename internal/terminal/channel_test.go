package terminal

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdonkor/payterm/internal/domain"
)

// startDriver runs a stub driver speaking the newline-delimited JSON frame
// protocol and returns its endpoint.
func startDriver(t *testing.T, handler func(frameRequest) frameResponse) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				scanner := bufio.NewScanner(c)
				enc := json.NewEncoder(c)
				for scanner.Scan() {
					var req frameRequest
					if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
						return
					}
					if err := enc.Encode(handler(req)); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func TestSessionRoundTrip(t *testing.T) {
	var gotAddress string
	var gotPay frameRequest

	endpoint := startDriver(t, func(req frameRequest) frameResponse {
		switch req.Op {
		case opConnect:
			gotAddress = req.Address
			return frameResponse{Code: 0}
		case opPay:
			gotPay = req
			return frameResponse{Code: 0, Response: &domain.TransactionResponse{
				TransactionStatus: domain.StatusSuccessful,
				EntryMethod:       domain.EntryChip,
				HostMessage:       "APPROVED",
				DiagnosticCode:    domain.DiagnosticApproved,
			}}
		case opReverse:
			return frameResponse{Code: 0, Response: &domain.TransactionResponse{
				TransactionStatus: domain.StatusSuccessful,
				HostMessage:       "REVERSAL ACCEPTED",
			}}
		case opDisconnect:
			return frameResponse{Code: 0}
		}
		return frameResponse{Code: int(CodeChannelError), Error: "unknown op"}
	})

	ch := NewChannel(endpoint, Timeouts{})
	sess, err := ch.Dial(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, CodeOK, sess.Connect("192.168.0.10:5000"))
	assert.Equal(t, "192.168.0.10:5000", gotAddress)

	code, resp := sess.Pay(domain.TransactionRequest{Amount: 2500, POSNumber: 3, ForceOnline: true})
	assert.Equal(t, CodeOK, code)
	require.NotNil(t, resp)
	assert.Equal(t, domain.StatusSuccessful, resp.TransactionStatus)
	assert.Equal(t, "APPROVED", resp.HostMessage)
	assert.Equal(t, int64(2500), gotPay.Amount)
	assert.Equal(t, 3, gotPay.POSNumber)
	assert.True(t, gotPay.ForceOnline)

	code, resp = sess.Reverse(2500)
	assert.Equal(t, CodeOK, code)
	require.NotNil(t, resp)
	assert.Equal(t, "REVERSAL ACCEPTED", resp.HostMessage)

	assert.Equal(t, CodeOK, sess.Disconnect())
	assert.NoError(t, sess.Close())
}

func TestSessionPassesDriverCodeThrough(t *testing.T) {
	endpoint := startDriver(t, func(req frameRequest) frameResponse {
		return frameResponse{Code: int(CodeConnectFail), Error: "terminal unreachable"}
	})

	ch := NewChannel(endpoint, Timeouts{})
	sess, err := ch.Dial(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, CodeConnectFail, sess.Connect("10.0.0.1:5000"))
}

func TestDialFailure(t *testing.T) {
	// Grab a free port and close it again so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := ln.Addr().String()
	require.NoError(t, ln.Close())

	ch := NewChannel(endpoint, Timeouts{Dial: 250 * time.Millisecond})
	_, err = ch.Dial(context.Background())
	assert.Error(t, err)
}

func TestCallTimeoutIsChannelError(t *testing.T) {
	endpoint := startDriver(t, func(req frameRequest) frameResponse {
		time.Sleep(500 * time.Millisecond)
		return frameResponse{Code: 0}
	})

	ch := NewChannel(endpoint, Timeouts{Call: 50 * time.Millisecond})
	sess, err := ch.Dial(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, CodeChannelError, sess.Connect("10.0.0.1:5000"))
}

func TestCallAfterCloseIsChannelError(t *testing.T) {
	endpoint := startDriver(t, func(req frameRequest) frameResponse {
		return frameResponse{Code: 0}
	})

	ch := NewChannel(endpoint, Timeouts{})
	sess, err := ch.Dial(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	assert.Equal(t, CodeChannelError, sess.Disconnect())
}

func TestTimeoutsDefaults(t *testing.T) {
	got := Timeouts{}.withDefaults()
	assert.Equal(t, DefaultDialTimeout, got.Dial)
	assert.Equal(t, DefaultCallTimeout, got.Call)

	custom := Timeouts{Dial: time.Second, Call: time.Minute}.withDefaults()
	assert.Equal(t, time.Second, custom.Dial)
	assert.Equal(t, time.Minute, custom.Call)
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "OK", CodeOK.String())
	assert.Equal(t, "CONNECT_FAILED", CodeConnectFail.String())
	assert.Equal(t, "CHANNEL_ERROR", CodeChannelError.String())
	assert.Equal(t, "UNKNOWN", Code(99).String())
	assert.True(t, CodeOK.OK())
	assert.False(t, CodeSubmitFail.OK())
}
