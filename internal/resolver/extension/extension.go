// Package extension invokes hosted extension capabilities — the
// FieldResolverExtension/SelectionSetResolverExtension resolver variants —
// over gRPC using descriptors built at request time rather than generated
// from a .proto file, since an extension's wire shape isn't known until its
// directive arguments are. It is NOT wired into internal/executor's DAG:
// hosting/dispatching extension capabilities live is out of scope, so this
// package is a capability-invocation library a future executor integration
// can call, the way internal/resolver/introspection is called from
// runIntrospectionPartition today.
//
// Grounded on the teacher's internal/grpcrt/runtime.go, which drives dynamic
// protobuf RPCs against descriptors resolved at runtime
// (protoreflect.MethodDescriptor, dynamicpb.Message) rather than
// generated Go stubs.
package extension

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Client invokes Capabilities against a single extension's gRPC endpoint.
type Client struct {
	conn *grpc.ClientConn
}

func NewClient(conn *grpc.ClientConn) *Client { return &Client{conn: conn} }

// Invoke marshals args into capability's request message (one JSON-encoded string
// field per argument), calls the capability over conn, and unmarshals the
// single "value" response field back into a Go value.
func (c *Client) Invoke(ctx context.Context, capability *Capability, args map[string]any) (any, error) {
	reqDesc := capability.Method.Input()
	req := dynamicpb.NewMessage(reqDesc)

	fields := reqDesc.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		v, ok := args[string(fd.Name())]
		if !ok {
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("extension: encoding argument %q for %s: %w", fd.Name(), capability.FullMethod, err)
		}
		req.Set(fd, protoreflect.ValueOfString(string(encoded)))
	}

	resp := dynamicpb.NewMessage(capability.Method.Output())
	if err := c.conn.Invoke(ctx, capability.FullMethod, req, resp); err != nil {
		return nil, fmt.Errorf("extension: invoking %s: %w", capability.FullMethod, err)
	}

	valueField := resp.Descriptor().Fields().ByName("value")
	raw := resp.Get(valueField).String()
	if raw == "" {
		return nil, nil
	}

	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("extension: decoding response from %s: %w", capability.FullMethod, err)
	}
	return out, nil
}
