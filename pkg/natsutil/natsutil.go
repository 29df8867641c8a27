// Package natsutil provides typed JSON publish, subscribe and request/reply
// helpers over NATS with OpenTelemetry trace propagation in message headers.
package natsutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// headerCarrier adapts nats.Msg headers to propagation.TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

func newMsg(ctx context.Context, subject string, v any) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return msg, nil
}

func extract(msg *nats.Msg) context.Context {
	return otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
}

// Publish encodes v as JSON and publishes it on subject.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	msg, err := newMsg(ctx, subject, v)
	if err != nil {
		return err
	}
	return nc.PublishMsg(msg)
}

// Subscribe decodes each message on subject as T and calls handler with the
// propagated trace context. Messages that do not decode are dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		handler(extract(msg), v)
	})
}

// ErrorReply is the reply body sent when a responder fails.
type ErrorReply struct {
	Error string `json:"error"`
}

// ErrRemote wraps an error reported by a responder.
var ErrRemote = errors.New("remote error")

// Request sends req on subject and decodes the reply as Resp. The wait is
// bounded by ctx, which must carry a deadline. An ErrorReply from the
// responder is returned as an error wrapping ErrRemote.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	msg, err := newMsg(ctx, subject, req)
	if err != nil {
		return zero, err
	}
	reply, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, fmt.Errorf("request %s: %w", subject, err)
	}
	var e ErrorReply
	if json.Unmarshal(reply.Data, &e) == nil && e.Error != "" {
		return zero, fmt.Errorf("%w: %s", ErrRemote, e.Error)
	}
	var out Resp
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return zero, fmt.Errorf("decode reply: %w", err)
	}
	return out, nil
}

// Respond answers requests on subject with handler's result. A request that
// does not decode, or a handler error, is answered with an ErrorReply.
// Handlers run on the subscription goroutine, one request at a time.
func Respond[Req, Resp any](nc *nats.Conn, subject string, handler func(context.Context, Req) (Resp, error)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx := extract(msg)
		var req Req
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			reply(ctx, msg, ErrorReply{Error: "invalid request: " + err.Error()})
			return
		}
		resp, err := handler(ctx, req)
		if err != nil {
			reply(ctx, msg, ErrorReply{Error: err.Error()})
			return
		}
		reply(ctx, msg, resp)
	})
}

func reply(ctx context.Context, req *nats.Msg, v any) {
	if req.Reply == "" {
		return
	}
	msg, err := newMsg(ctx, req.Reply, v)
	if err != nil {
		msg, _ = newMsg(ctx, req.Reply, ErrorReply{Error: err.Error()})
	}
	req.RespondMsg(msg)
}
