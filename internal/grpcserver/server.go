// Package grpcserver exposes catalog search and plan reads over gRPC. Messages
// are plain Go structs carried by a JSON codec, so there is no generated code.
package grpcserver

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stolpe22/plano-jornada/internal/search"
	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/models"
)

type CatalogServer interface {
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	Tracks(context.Context, *TracksRequest) (*TracksResponse, error)
}

type PlanServer interface {
	List(context.Context, *PlanListRequest) (*PlanListResponse, error)
	Progress(context.Context, *ProgressRequest) (*ProgressResponse, error)
}

type TrackLister interface {
	Tracks(ctx context.Context) ([]string, error)
}

type PlanReader interface {
	List(ctx context.Context) ([]models.PlanEntry, error)
	Progress(ctx context.Context) (models.PlanProgress, error)
}

type Server struct {
	Searcher *search.Searcher
	Catalog  TrackLister
	Plan     PlanReader
}

func NewServer(s *search.Searcher, cat TrackLister, plan PlanReader) *Server {
	return &Server{Searcher: s, Catalog: cat, Plan: plan}
}

// Register attaches both services to gs.
func Register(gs *grpc.Server, s *Server) {
	gs.RegisterService(&catalogServiceDesc, s)
	gs.RegisterService(&planServiceDesc, s)
}

func (s *Server) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, status.Error(codes.InvalidArgument, "query required")
	}
	res, err := s.Searcher.Search(ctx, search.Query{
		Text:        req.Query,
		Tracks:      req.Tracks,
		Sensitivity: req.Sensitivity,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "search failed")
	}
	return &SearchResponse{Method: res.Method, Hits: res.Hits}, nil
}

func (s *Server) Tracks(ctx context.Context, _ *TracksRequest) (*TracksResponse, error) {
	tracks, err := s.Catalog.Tracks(ctx)
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		return nil, status.Error(codes.Internal, "tracks failed")
	}
	if tracks == nil {
		tracks = []string{}
	}
	return &TracksResponse{Tracks: tracks}, nil
}

func (s *Server) List(ctx context.Context, _ *PlanListRequest) (*PlanListResponse, error) {
	items, err := s.Plan.List(ctx)
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		return nil, status.Error(codes.Internal, "list failed")
	}
	if items == nil {
		items = []models.PlanEntry{}
	}
	return &PlanListResponse{Items: items}, nil
}

func (s *Server) Progress(ctx context.Context, _ *ProgressRequest) (*ProgressResponse, error) {
	p, err := s.Plan.Progress(ctx)
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		return nil, status.Error(codes.Internal, "progress failed")
	}
	return &ProgressResponse{Progress: p}, nil
}
