package grpcclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/juju/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"gtrc-svr/internal/store"
)

const sendTimeout = 5 * time.Second

type GRPCClient struct {
	conn   *grpc.ClientConn
	desc   descriptors
	logger *slog.Logger
}

func NewGRPCClient(addr string, lg *slog.Logger, opts ...grpc.DialOption) (*GRPCClient, error) {
	desc, err := forwarderDescriptors()
	if err != nil {
		return nil, errors.Annotate(err, "forwarder descriptors")
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, errors.Annotatef(err, "grpc client %s", addr)
	}
	return &GRPCClient{conn: conn, desc: desc, logger: lg.With("component", "grpc")}, nil
}

func (g *GRPCClient) Close() error {
	return g.conn.Close()
}

func (g *GRPCClient) Name() string { return "grpc" }

// SendData devuelve el campo success de la respuesta.
func (g *GRPCClient) SendData(ctx context.Context, deviceID, payload string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req := dynamicpb.NewMessage(g.desc.Request)
	fields := g.desc.Request.Fields()
	req.Set(fields.ByName("device_id"), protoreflect.ValueOfString(deviceID))
	req.Set(fields.ByName("payload"), protoreflect.ValueOfString(payload))

	res := dynamicpb.NewMessage(g.desc.Response)
	if err := g.conn.Invoke(ctx, SendDataMethod, req, res); err != nil {
		return false, errors.Annotatef(err, "forwarder SendData %s", deviceID)
	}
	return res.Get(g.desc.Response.Fields().ByName("success")).Bool(), nil
}

// Upsert reenvía la lectura como documento JSON en payload.
func (g *GRPCClient) Upsert(ctx context.Context, deviceID string, f store.Fields, at time.Time) error {
	payload, err := json.Marshal(store.NewDocument(deviceID, f, at))
	if err != nil {
		return errors.Trace(err)
	}
	ok, err := g.SendData(ctx, deviceID, string(payload))
	if err != nil {
		return err
	}
	if !ok {
		g.logger.Warn("Forwarder: failed to send data", "device_id", deviceID)
		return errors.Errorf("forwarder rejected data for device %s", deviceID)
	}
	return nil
}
