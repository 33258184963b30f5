package grpcserver

import (
	"github.com/stolpe22/plano-jornada/internal/search"
	"github.com/stolpe22/plano-jornada/pkg/models"
)

type SearchRequest struct {
	Query       string   `json:"query"`
	Tracks      []string `json:"tracks,omitempty"`
	Sensitivity int      `json:"sensitivity,omitempty"`
}

type SearchResponse struct {
	Method string       `json:"method,omitempty"`
	Hits   []search.Hit `json:"hits"`
}

type TracksRequest struct{}

type TracksResponse struct {
	Tracks []string `json:"tracks"`
}

type PlanListRequest struct{}

type PlanListResponse struct {
	Items []models.PlanEntry `json:"items"`
}

type ProgressRequest struct{}

type ProgressResponse struct {
	Progress models.PlanProgress `json:"progress"`
}
