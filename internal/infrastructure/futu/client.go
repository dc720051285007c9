package futu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	protoInitConnect       uint32 = 1001
	protoKeepAlive         uint32 = 1004
	protoQotSub            uint32 = 3001
	protoQotGetBasicQot    uint32 = 3004
	protoQotGetOptionChain uint32 = 3209

	clientVersion    = 300
	packetEncNone    = -1
	pushProtoFmtJSON = 1
)

// ErrClosed is returned by calls on a closed client.
var ErrClosed = errors.New("futu: client closed")

// APIError is a non-zero retType answer from OpenD.
type APIError struct {
	ProtoID uint32
	RetType int32
	ErrCode int32
	RetMsg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("futu proto %d: retType=%d errCode=%d: %s", e.ProtoID, e.RetType, e.ErrCode, e.RetMsg)
}

type response struct {
	RetType int32           `json:"retType"`
	RetMsg  string          `json:"retMsg"`
	ErrCode int32           `json:"errCode"`
	S2C     json.RawMessage `json:"s2c"`
}

// ClientOption customises Dial.
type ClientOption func(*Client)

// WithTimeout bounds every request that has no earlier context deadline.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.timeout = timeout }
}

// WithClientID sets the id reported in InitConnect.
func WithClientID(id string) ClientOption {
	return func(c *Client) { c.clientID = id }
}

// WithLogger attaches a logger.
func WithLogger(logger *logrus.Logger) ClientOption {
	return func(c *Client) { c.logger = logger.WithField("component", "futu_client") }
}

// Client speaks the OpenD frame protocol with JSON bodies over one TCP
// connection. Calls are serialised.
type Client struct {
	conn     net.Conn
	timeout  time.Duration
	clientID string
	logger   *logrus.Entry

	mu     sync.Mutex
	serial uint32
	closed bool

	connID            uint64
	keepAliveInterval time.Duration
}

// Dial connects to OpenD at addr and performs InitConnect.
func Dial(ctx context.Context, addr string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		timeout:  10 * time.Second,
		clientID: "futu-options",
		logger:   logrus.StandardLogger().WithField("component", "futu_client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial opend %s: %w", addr, err)
	}
	c.conn = conn

	if err := c.initConnect(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// ConnID is the connection id assigned by OpenD.
func (c *Client) ConnID() uint64 {
	return c.connID
}

// KeepAliveInterval is the heartbeat period requested by OpenD.
func (c *Client) KeepAliveInterval() time.Duration {
	return c.keepAliveInterval
}

// Close releases the TCP connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

type initConnectC2S struct {
	ClientVer           int32  `json:"clientVer"`
	ClientID            string `json:"clientID"`
	RecvNotify          bool   `json:"recvNotify"`
	PacketEncAlgo       int32  `json:"packetEncAlgo"`
	PushProtoFmt        int32  `json:"pushProtoFmt"`
	ProgrammingLanguage string `json:"programmingLanguage"`
}

type initConnectS2C struct {
	ServerVer         int32     `json:"serverVer"`
	LoginUserID       jsonInt64 `json:"loginUserID"`
	ConnID            jsonInt64 `json:"connID"`
	KeepAliveInterval int32     `json:"keepAliveInterval"`
}

func (c *Client) initConnect(ctx context.Context) error {
	var s2c initConnectS2C
	err := c.call(ctx, protoInitConnect, initConnectC2S{
		ClientVer:           clientVersion,
		ClientID:            c.clientID,
		RecvNotify:          false,
		PacketEncAlgo:       packetEncNone,
		PushProtoFmt:        pushProtoFmtJSON,
		ProgrammingLanguage: "Go",
	}, &s2c)
	if err != nil {
		return fmt.Errorf("init connect: %w", err)
	}
	c.connID = uint64(s2c.ConnID)
	c.keepAliveInterval = time.Duration(s2c.KeepAliveInterval) * time.Second
	c.logger.WithFields(logrus.Fields{
		"server_ver": s2c.ServerVer,
		"conn_id":    c.connID,
	}).Debug("opend connected")
	return nil
}

type keepAliveC2S struct {
	Time int64 `json:"time"`
}

// KeepAlive sends one heartbeat.
func (c *Client) KeepAlive(ctx context.Context) error {
	return c.call(ctx, protoKeepAlive, keepAliveC2S{Time: time.Now().Unix()}, nil)
}

// call sends {"c2s": c2s} and decodes the s2c part of the answer into s2c,
// which may be nil.
func (c *Client) call(ctx context.Context, protoID uint32, c2s any, s2c any) error {
	body, err := json.Marshal(struct {
		C2S any `json:"c2s"`
	}{C2S: c2s})
	if err != nil {
		return fmt.Errorf("encode proto %d request: %w", protoID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok && c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	c.serial++
	serial := c.serial
	if err := writeFrame(c.conn, frame{ProtoID: protoID, SerialNo: serial, Body: body}); err != nil {
		return c.wrapIOErr(ctx, protoID, err)
	}

	for {
		f, err := readFrame(c.conn)
		if err != nil {
			return c.wrapIOErr(ctx, protoID, err)
		}
		if f.ProtoID != protoID || f.SerialNo != serial {
			c.logger.WithFields(logrus.Fields{
				"proto_id": f.ProtoID,
				"serial":   f.SerialNo,
			}).Debug("skipping unsolicited frame")
			continue
		}

		var resp response
		if err := json.Unmarshal(f.Body, &resp); err != nil {
			return fmt.Errorf("decode proto %d response: %w", protoID, err)
		}
		if resp.RetType != 0 {
			return &APIError{ProtoID: protoID, RetType: resp.RetType, ErrCode: resp.ErrCode, RetMsg: resp.RetMsg}
		}
		if s2c == nil || len(resp.S2C) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.S2C, s2c); err != nil {
			return fmt.Errorf("decode proto %d s2c: %w", protoID, err)
		}
		return nil
	}
}

func (c *Client) wrapIOErr(ctx context.Context, protoID uint32, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("proto %d: %w", protoID, ctxErr)
	}
	// the socket deadline mirrors the context deadline and may fire first
	if deadline, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) && !time.Now().Before(deadline) {
		return fmt.Errorf("proto %d: %w", protoID, context.DeadlineExceeded)
	}
	return fmt.Errorf("proto %d: %w", protoID, err)
}

// jsonInt64 accepts both 123 and "123"; protobuf JSON renders 64-bit
// integers as strings.
type jsonInt64 int64

func (v *jsonInt64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 1 && data[0] == '"' {
		data = data[1 : len(data)-1]
	}
	parsed, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(data), 64)
		if ferr != nil {
			return fmt.Errorf("futu: invalid integer %s", data)
		}
		parsed = int64(f)
	}
	*v = jsonInt64(parsed)
	return nil
}
