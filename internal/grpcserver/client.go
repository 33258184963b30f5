package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a thin typed wrapper over a connection to this server.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.cc.Invoke(ctx, "/"+catalogService+"/Search", req, out, CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Tracks(ctx context.Context) (*TracksResponse, error) {
	out := new(TracksResponse)
	if err := c.cc.Invoke(ctx, "/"+catalogService+"/Tracks", &TracksRequest{}, out, CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PlanList(ctx context.Context) (*PlanListResponse, error) {
	out := new(PlanListResponse)
	if err := c.cc.Invoke(ctx, "/"+planService+"/List", &PlanListRequest{}, out, CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Progress(ctx context.Context) (*ProgressResponse, error) {
	out := new(ProgressResponse)
	if err := c.cc.Invoke(ctx, "/"+planService+"/Progress", &ProgressRequest{}, out, CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}
