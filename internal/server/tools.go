package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pointSchema describes a grid coordinate argument.
func pointSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "number"},
			"y": map[string]interface{}{"type": "number"},
		},
		"required": []string{"x", "y"},
	}
}

var renderSchema = map[string]interface{}{
	"type":        "boolean",
	"description": "Include a base64 PNG with the path drawn over the frame. Default false",
	"default":     false,
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Detection and solving
		{
			Name:        "maze_detect",
			Description: "Binarize a maze image with Otsu's threshold and report the grid size, threshold and navigable cell count. Bright pixels are paths, dark pixels are walls. Large images are downsampled; coordinates for the other tools are in the reported grid space.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"render": map[string]interface{}{
						"type":        "boolean",
						"description": "Include a base64 PNG of the frame with detected walls shaded. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "maze_solve",
			Description: "Find the shortest 4-connected path between two grid cells of a maze image. Returns found=false when the endpoints are walls, out of bounds or disconnected.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"start":  pointSchema("Start cell in grid coordinates"),
					"end":    pointSchema("End cell in grid coordinates"),
					"render": renderSchema,
				},
				"required": []string{"path", "start", "end"},
			},
		},

		// Tracking
		{
			Name:        "maze_track",
			Description: "Solve the maze in a reference image, then follow it through a sequence of frames and return the solution path re-projected into each one. Frames that cannot be tracked reuse the previous transform.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"reference": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the frame the maze is solved in",
					},
					"frames": map[string]interface{}{
						"type":        "array",
						"description": "Absolute paths to later frames, in capture order. Each must match the reference size",
						"items":       map[string]interface{}{"type": "string"},
						"minItems":    1,
					},
					"start":  pointSchema("Start cell in grid coordinates"),
					"end":    pointSchema("End cell in grid coordinates"),
					"render": renderSchema,
				},
				"required": []string{"reference", "frames", "start", "end"},
			},
		},

		// Held projection session
		{
			Name:        "maze_projection_start",
			Description: "Detect and solve a maze, store it as the server's projection session and start projecting. Replaces any previous session.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the reference frame",
					},
					"start":  pointSchema("Start cell in grid coordinates"),
					"end":    pointSchema("End cell in grid coordinates"),
					"render": renderSchema,
				},
				"required": []string{"path", "start", "end"},
			},
		},
		{
			Name:        "maze_projection_update",
			Description: "Deliver the next frame to the projection session and return the re-projected path. Does nothing after maze_projection_stop.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the new frame",
					},
					"session_id": map[string]interface{}{
						"type":        "string",
						"description": "Optional id returned by maze_projection_start; rejected if it is not the current session",
					},
					"render": renderSchema,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "maze_projection_stop",
			Description: "Stop the projection session. Later updates are ignored until a new session is started.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
