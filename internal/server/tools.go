package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(what string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the " + what,
	}
}

func channelProperty(name string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     0,
		"maximum":     255,
		"description": name + " channel (0-255)",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_info",
			Description: "Load an image file and return its dimensions, format and file size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("image file"),
				},
				"required": []string{"path"},
			},
		},

		// Pipeline runs
		{
			Name:        "color_detect_image",
			Description: "Detect objects in an image, name the dominant color of each object and of the whole image, and write an annotated PNG into the configured output directory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "color_detect_video",
			Description: "Detect objects in every frame of a video, name their dominant colors, and assemble an annotated clip. Returns per-frame detections.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("video file"),
					"summary": map[string]interface{}{
						"type":        "boolean",
						"description": "Omit per-frame detections from the result. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},

		// Color operations
		{
			Name:        "color_nearest_name",
			Description: "Return the reference palette name closest to a color, given either r/g/b channels or a hex string.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"r": channelProperty("Red"),
					"g": channelProperty("Green"),
					"b": channelProperty("Blue"),
					"hex": map[string]interface{}{
						"type":        "string",
						"description": "Color as #RRGGBB. Overrides r, g and b when set",
					},
				},
			},
		},
		{
			Name:        "color_dominant",
			Description: "Compute the dominant color of an image or of a rectangular region of it, and name it from the reference palette.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("image file"),
					"region": map[string]interface{}{
						"type":        "object",
						"description": "Optional region to analyze. Whole image if omitted",
						"properties": map[string]interface{}{
							"x1": map[string]interface{}{"type": "integer"},
							"y1": map[string]interface{}{"type": "integer"},
							"x2": map[string]interface{}{"type": "integer"},
							"y2": map[string]interface{}{"type": "integer"},
						},
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "color_palette",
			Description: "List the reference palette entries in stored order, optionally filtered by a name substring, or fetch one entry by exact name.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Exact entry name; takes precedence over contains",
					},
					"contains": map[string]interface{}{
						"type":        "string",
						"description": "Case-insensitive name filter",
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
