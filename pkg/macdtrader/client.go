// Package macdtrader is the Go client for the macdtrader backtest server.
package macdtrader

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the Backtest service over gRPC.
type Client struct {
	conn grpc.ClientConnInterface
	// closer is set when the client owns the connection.
	closer func() error
}

// Dial connects to addr without transport security.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &Client{conn: conn, closer: conn.Close}, nil
}

// NewClient wraps an existing connection. Close does not close it.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Close releases the connection if the client opened it.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// Run executes one backtest on the server.
func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	in, err := Encode(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, RunMethod, in, out); err != nil {
		return nil, err
	}
	resp := &RunResponse{}
	if err := Decode(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
