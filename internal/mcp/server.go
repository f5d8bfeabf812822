package mcp

import (
	"context"
	"time"

	"lumator/internal/demand"
	"lumator/internal/results"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// ResultSource provides raw simulator output.
type ResultSource interface {
	RawResults(ctx context.Context, title string, start time.Time, numDays int) ([]results.RawRow, error)
}

// Config holds the defaults applied to tool calls.
type Config struct {
	Version         string
	Warehouse       string
	UnitsPerPackage float64
	Rebalance       bool
}

// Server exposes read-only planning tools over MCP. Nothing it serves writes
// files or starts the simulator.
type Server struct {
	cfg     Config
	ratios  demand.RatioSource
	results ResultSource
	now     func() time.Time
}

// NewServer creates a new MCP server. results may be nil, in which case the
// simulation_results tool is not registered.
func NewServer(cfg Config, ratios demand.RatioSource, results ResultSource) *Server {
	return &Server{cfg: cfg, ratios: ratios, results: results, now: time.Now}
}

// Build registers the tools on a fresh SDK server.
func (s *Server) Build() *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: "lumator", Version: s.cfg.Version}, nil)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "sample_date",
		Description: "Return the historical sample date used to disaggregate the forecast of a target date: the same weekday in the week before the current week. Guidance: use 'sog_ratios' next to see the group split of that sample.",
	}, s.handleSampleDate)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "sog_ratios",
		Description: "Get the shipping option group proportions observed on the sample date of a target date for a warehouse. Proportions sum to 1.",
	}, s.handleRatios)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "preview_disaggregation",
		Description: "Split an aggregate package forecast for one target date into per-group demand records, exactly as a run would write them. Writes nothing.",
	}, s.handlePreview)

	if s.results != nil {
		sdk.AddTool(server, &sdk.Tool{
			Name:        "simulation_results",
			Description: "Reconstruct the carrier/sort code/CPT calendar of a finished simulation. Columns are the days after start_date; empty cells mean no row for that day.",
		}, s.handleResults)
	}

	return server
}

// Run serves the tools over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	log.Info().Str("warehouse", s.cfg.Warehouse).Msg("MCP server starting stdio loop")
	return s.Build().Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) warehouse(w string) string {
	if w != "" {
		return w
	}
	return s.cfg.Warehouse
}
