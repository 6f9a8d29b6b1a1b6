package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func imageProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the scan (PNG, JPEG, GIF or TIFF; 16-bit grayscale keeps its depth)",
	}
}

func maskProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the lesion mask with the dimensions of the scan; every nonzero pixel is lesion",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Sample Information
		{
			Name:        "sample_info",
			Description: "Load a scan or mask file and return its dimensions, format and bit depth.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Feature Extraction
		{
			Name:        "features_extract",
			Description: "Compute the full feature record of a (scan, mask) sample: spiculation A-D and RA-RD, circularity, iou, hough, snake and gabor.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": imageProperty(),
					"mask":  maskProperty(),
					"gabor_responses": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the mean and variance of every Gabor kernel response (default false)",
						"default":     false,
					},
				},
				"required": []string{"image", "mask"},
			},
		},
		{
			Name:        "features_spiculation",
			Description: "Gradient orientation dispersion of the sample under the four mask strategies (A lesion, B border band, C whole image, D opened inverse), on the raw and on the percentile-rescaled scan.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": imageProperty(),
					"mask":  maskProperty(),
				},
				"required": []string{"image", "mask"},
			},
		},
		{
			Name:        "features_shape",
			Description: "Circularity of the lesion against its equal-area circle and IoU between the scan's nonzero extent and the mask's bounding box.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": imageProperty(),
					"mask":  maskProperty(),
				},
				"required": []string{"image", "mask"},
			},
		},
		{
			Name:        "features_boundary",
			Description: "Boundary tracing descriptors of a scan: Hough line segments found on Canny edges and the active contour evolved from the configured initial circle.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": imageProperty(),
				},
				"required": []string{"image"},
			},
		},
		{
			Name:        "features_texture",
			Description: "Mean and variance of the scan's response to every kernel of the Gabor bank.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": imageProperty(),
				},
				"required": []string{"image"},
			},
		},

		// Inspection
		{
			Name:        "masks_export",
			Description: "Render the derived masks of a sample (lesion, border band, opened inverse and optionally edges, Hough segments and snake) over the scan. Returns a base64 PNG overlay, or writes one PNG per mask when output_dir is given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": imageProperty(),
					"mask":  maskProperty(),
					"boundary": map[string]interface{}{
						"type":        "boolean",
						"description": "Also draw Canny edges, Hough segments and the snake (default false)",
						"default":     false,
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory to write <id>_<mask>.png files into",
					},
					"id": map[string]interface{}{
						"type":        "string",
						"description": "File name prefix when writing to output_dir (default: scan file name)",
					},
				},
				"required": []string{"image", "mask"},
			},
		},
		{
			Name:        "lesion_crop",
			Description: "Crop the scan to the lesion's bounding box grown by a margin and return it as base64-encoded PNG. Use this to zoom into the lesion before reading its descriptors.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": imageProperty(),
					"mask":  maskProperty(),
					"margin": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels added on every side of the lesion box (default 16)",
						"default":     16,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"image", "mask"},
			},
		},
		{
			Name:        "labels_detect",
			Description: "Find burned-in scanner annotations (text on the black film border) that would widen the scan's bounding box.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": imageProperty(),
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Minimum confidence threshold 0-1 (default from server settings)",
					},
				},
				"required": []string{"image"},
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
