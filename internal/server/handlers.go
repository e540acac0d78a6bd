package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/ironsheep/color-detect/internal/palette"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "color_detect_image").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	case "image_info":
		return s.handleImageInfo(args)

	// Pipeline runs
	case "color_detect_image":
		return s.handleDetectImage(ctx, args)
	case "color_detect_video":
		return s.handleDetectVideo(ctx, args)

	// Color operations
	case "color_nearest_name":
		return s.handleNearestName(args)
	case "color_dominant":
		return s.handleDominant(args)
	case "color_palette":
		return s.handlePalette(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type pathArgs struct {
	Path string `json:"path"`
}

func (a pathArgs) validate() error {
	if a.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Pipeline Handlers ===

func (s *Server) handleDetectImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	res, err := s.pipeline.RunImage(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{"result": res}
	if s.store != nil {
		id, err := s.store.SaveImage(ctx, res)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", a.Path).Msg("failed to store run")
		} else {
			out["run_id"] = id
		}
	}
	return out, nil
}

type detectVideoArgs struct {
	Path    string `json:"path"`
	Summary bool   `json:"summary"`
}

func (s *Server) handleDetectVideo(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectVideoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := (pathArgs{Path: a.Path}).validate(); err != nil {
		return nil, err
	}
	res, err := s.pipeline.RunVideo(ctx, a.Path)
	if err != nil {
		return nil, err
	}

	out := map[string]interface{}{}
	if s.store != nil {
		id, err := s.store.SaveVideo(ctx, res)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", a.Path).Msg("failed to store run")
		} else {
			out["run_id"] = id
		}
	}
	if a.Summary {
		summary := *res
		summary.Frames = nil
		out["result"] = summary
	} else {
		out["result"] = res
	}
	return out, nil
}

// === Color Handlers ===

type nearestNameArgs struct {
	R   *int   `json:"r"`
	G   *int   `json:"g"`
	B   *int   `json:"b"`
	Hex string `json:"hex"`
}

// colorResult names a color against the palette.
type colorResult struct {
	Color    imaging.RGB   `json:"color"`
	Hex      string        `json:"hex"`
	Name     string        `json:"name"`
	Distance int           `json:"distance"`
	Entry    palette.Entry `json:"entry"`
}

func (s *Server) nameColor(c imaging.RGB) colorResult {
	entry, dist := s.pipeline.Palette().NearestEntry(c.R, c.G, c.B)
	return colorResult{Color: c, Hex: c.Hex(), Name: entry.Name, Distance: dist, Entry: entry}
}

func (s *Server) handleNearestName(args json.RawMessage) (interface{}, error) {
	var a nearestNameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	if a.Hex != "" {
		hex := a.Hex
		if !strings.HasPrefix(hex, "#") {
			hex = "#" + hex
		}
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("invalid hex color %q: %w", a.Hex, err)
		}
		r, g, b := c.RGB255()
		return s.nameColor(imaging.RGB{R: r, G: g, B: b}), nil
	}

	if a.R == nil || a.G == nil || a.B == nil {
		return nil, errors.New("either hex or all of r, g and b are required")
	}
	channels := []int{*a.R, *a.G, *a.B}
	for _, v := range channels {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("channel value %d out of range 0-255", v)
		}
	}
	return s.nameColor(imaging.RGB{R: uint8(channels[0]), G: uint8(channels[1]), B: uint8(channels[2])}), nil
}

type dominantArgs struct {
	Path   string `json:"path"`
	Region *struct {
		X1 int `json:"x1"`
		Y1 int `json:"y1"`
		X2 int `json:"x2"`
		Y2 int `json:"y2"`
	} `json:"region,omitempty"`
}

func (s *Server) handleDominant(args json.RawMessage) (interface{}, error) {
	var a dominantArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := (pathArgs{Path: a.Path}).validate(); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	var region image.Image = img
	if a.Region != nil {
		region, err = imaging.Crop(img, image.Rect(a.Region.X1, a.Region.Y1, a.Region.X2, a.Region.Y2))
		if err != nil {
			return nil, err
		}
	}
	c, err := s.pipeline.Extractor().Extract(region)
	if err != nil {
		return nil, err
	}
	return s.nameColor(c), nil
}

type paletteArgs struct {
	Name     string `json:"name"`
	Contains string `json:"contains"`
}

func (s *Server) handlePalette(args json.RawMessage) (interface{}, error) {
	var a paletteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Name != "" {
		e, ok := s.pipeline.Palette().Lookup(a.Name)
		if !ok {
			return nil, fmt.Errorf("no palette entry named %q", a.Name)
		}
		return map[string]interface{}{
			"count":   1,
			"entries": []palette.Entry{e},
		}, nil
	}
	filter := strings.ToLower(a.Contains)
	entries := make([]palette.Entry, 0)
	for _, e := range s.pipeline.Palette().Entries() {
		if filter == "" || strings.Contains(strings.ToLower(e.Name), filter) {
			entries = append(entries, e)
		}
	}
	return map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	}, nil
}
