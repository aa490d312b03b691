package packserve

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/rrp/pack"
	"github.com/tailored-agentic-units/rrp/resource"
)

// Client reads a pack served by Server.
type Client struct {
	read       *connect.Client[wrapperspb.StringValue, wrapperspb.BytesValue]
	exists     *connect.Client[wrapperspb.StringValue, wrapperspb.BoolValue]
	namespaces *connect.Client[wrapperspb.StringValue, structpb.ListValue]
	find       *connect.Client[structpb.Struct, structpb.ListValue]
	metadata   *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewClient creates a client for the server at baseURL, e.g.
// http://127.0.0.1:8089.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		read:       connect.NewClient[wrapperspb.StringValue, wrapperspb.BytesValue](httpClient, baseURL+ReadProcedure, opts...),
		exists:     connect.NewClient[wrapperspb.StringValue, wrapperspb.BoolValue](httpClient, baseURL+ExistsProcedure, opts...),
		namespaces: connect.NewClient[wrapperspb.StringValue, structpb.ListValue](httpClient, baseURL+NamespacesProcedure, opts...),
		find:       connect.NewClient[structpb.Struct, structpb.ListValue](httpClient, baseURL+FindProcedure, opts...),
		metadata:   connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+MetadataProcedure, opts...),
	}
}

// Read returns the bytes of an entry.
func (c *Client) Read(ctx context.Context, section resource.Section, id resource.ID) ([]byte, error) {
	return c.ReadLocation(ctx, pack.Location(section, id))
}

// ReadRoot returns the bytes of a root entry.
func (c *Client) ReadRoot(ctx context.Context, name string) ([]byte, error) {
	return c.ReadLocation(ctx, name)
}

// ReadLocation returns the bytes stored at an archive path.
func (c *Client) ReadLocation(ctx context.Context, location string) ([]byte, error) {
	resp, err := c.read.CallUnary(ctx, connect.NewRequest(wrapperspb.String(location)))
	if err != nil {
		return nil, fromConnect(err)
	}
	return resp.Msg.GetValue(), nil
}

// Exists reports whether an entry is stored at the archive path.
func (c *Client) Exists(ctx context.Context, location string) (bool, error) {
	resp, err := c.exists.CallUnary(ctx, connect.NewRequest(wrapperspb.String(location)))
	if err != nil {
		return false, fromConnect(err)
	}
	return resp.Msg.GetValue(), nil
}

// Namespaces returns the sorted namespaces of section.
func (c *Client) Namespaces(ctx context.Context, section resource.Section) ([]string, error) {
	resp, err := c.namespaces.CallUnary(ctx, connect.NewRequest(wrapperspb.String(section.String())))
	if err != nil {
		return nil, fromConnect(err)
	}

	values := resp.Msg.GetValues()
	namespaces := make([]string, len(values))
	for i, v := range values {
		namespaces[i] = v.GetStringValue()
	}
	return namespaces, nil
}

// Find returns the IDs in namespace whose path starts with prefix.
func (c *Client) Find(ctx context.Context, section resource.Section, namespace, prefix string) ([]resource.ID, error) {
	req, err := structpb.NewStruct(map[string]any{
		"section":   section.String(),
		"namespace": namespace,
		"prefix":    prefix,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.find.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, fromConnect(err)
	}

	values := resp.Msg.GetValues()
	ids := make([]resource.ID, 0, len(values))
	for _, v := range values {
		_, id, err := pack.ParseLocation(v.GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("find: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Metadata returns the served pack's id and manifest.
func (c *Client) Metadata(ctx context.Context) (resource.ID, pack.Metadata, error) {
	resp, err := c.metadata.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return resource.ID{}, pack.Metadata{}, fromConnect(err)
	}

	fields := resp.Msg.GetFields()
	id, err := resource.ParseID(fields["id"].GetStringValue())
	if err != nil {
		return resource.ID{}, pack.Metadata{}, fmt.Errorf("metadata: %w", err)
	}
	return id, pack.Metadata{
		Format:      int(fields["pack_format"].GetNumberValue()),
		Description: fields["description"].GetStringValue(),
	}, nil
}
