package server

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ironsheep/lesion-features/internal/detection"
	"github.com/ironsheep/lesion-features/internal/features"
	"github.com/ironsheep/lesion-features/internal/imaging"
	"github.com/ironsheep/lesion-features/internal/labels"
	"github.com/ironsheep/lesion-features/internal/render"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "features_extract", "masks_export").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	ctx, cancel := s.callContext()
	defer cancel()

	result, err := s.runTool(ctx, params.Name, params.Arguments)
	if err != nil {
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

// callContext bounds a tool call by the configured sample timeout.
func (s *Server) callContext() (context.Context, context.CancelFunc) {
	if s.opts.SampleTimeout > 0 {
		return context.WithTimeout(context.Background(), s.opts.SampleTimeout)
	}
	return context.WithCancel(context.Background())
}

type toolOutcome struct {
	result interface{}
	err    error
}

// runTool executes a tool in its own goroutine so the call deadline holds
// even for descriptors that never look at the context.
func (s *Server) runTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	done := make(chan toolOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- toolOutcome{err: fmt.Errorf("tool %s: panic: %v", name, p)}
			}
		}()
		result, err := s.executeTool(ctx, name, args)
		done <- toolOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("tool %s: %w", name, ctx.Err())
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Loads the scan (and mask) through the cache
//  3. Calls the extractor, renderer or label detector
//  4. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Sample Information
	case "sample_info":
		return s.handleSampleInfo(args)

	// Feature Extraction
	case "features_extract":
		return s.handleFeaturesExtract(ctx, args)
	case "features_spiculation":
		return s.handleFeaturesSpiculation(args)
	case "features_shape":
		return s.handleFeaturesShape(ctx, args)
	case "features_boundary":
		return s.handleFeaturesBoundary(args)
	case "features_texture":
		return s.handleFeaturesTexture(args)

	// Inspection
	case "masks_export":
		return s.handleMasksExport(args)
	case "lesion_crop":
		return s.handleLesionCrop(args)
	case "labels_detect":
		return s.handleLabelsDetect(ctx, args)

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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// loadImage loads a scan without a mask.
func (s *Server) loadImage(path string) (*imaging.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("image path is required")
	}
	src, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	return imaging.FromImage(src), nil
}

type sampleArgs struct {
	Image string `json:"image"`
	Mask  string `json:"mask"`
}

// loadSample loads a (scan, mask) pair.
func (s *Server) loadSample(a sampleArgs) (*imaging.Sample, error) {
	if a.Image == "" || a.Mask == "" {
		return nil, fmt.Errorf("image and mask paths are required")
	}
	return s.cache.LoadSample(a.Image, a.Mask)
}

// === Sample Information Handlers ===

type sampleInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleSampleInfo(args json.RawMessage) (interface{}, error) {
	var a sampleInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadSampleInfo(s.cache, a.Path)
}

// === Feature Extraction Handlers ===

type featuresExtractArgs struct {
	sampleArgs
	GaborResponses bool `json:"gabor_responses"`
}

// ExtractResult is the features_extract response.
type ExtractResult struct {
	// Keys lists the feature names in record order.
	Keys     []string                  `json:"keys"`
	Features map[string]float64        `json:"features"`
	Gabor    []detection.GaborResponse `json:"gabor_responses,omitempty"`
	Width    int                       `json:"width"`
	Height   int                       `json:"height"`

	// ElapsedMs is the extraction time in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`
}

func (s *Server) handleFeaturesExtract(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a featuresExtractArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sample, err := s.loadSample(a.sampleArgs)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	record, err := s.extractor.Extract(ctx, sample.Image, sample.Mask)
	if err != nil {
		return nil, err
	}

	result := &ExtractResult{
		Keys:      features.Keys(),
		Features:  record.Map(),
		Width:     sample.Image.Width,
		Height:    sample.Image.Height,
		ElapsedMs: time.Since(start).Milliseconds(),
	}
	if a.GaborResponses {
		result.Gabor = record.Gabor
	}
	return result, nil
}

// SpiculationResult is the features_spiculation response.
type SpiculationResult struct {
	Raw      features.SpiculationSet `json:"raw"`
	Rescaled features.SpiculationSet `json:"rescaled"`
}

func (s *Server) handleFeaturesSpiculation(args json.RawMessage) (interface{}, error) {
	var a sampleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sample, err := s.loadSample(a)
	if err != nil {
		return nil, err
	}
	raw, rescaled, err := features.SpiculationPair(sample.Image, sample.Mask, s.extractor.Options().Spiculation)
	if err != nil {
		return nil, err
	}
	return &SpiculationResult{Raw: raw, Rescaled: rescaled}, nil
}

func (s *Server) handleFeaturesShape(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sampleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sample, err := s.loadSample(a)
	if err != nil {
		return nil, err
	}
	return s.extractor.Shape(ctx, sample.Image, sample.Mask)
}

type imageArgs struct {
	Image string `json:"image"`
}

// BoundaryResult is the features_boundary response.
type BoundaryResult struct {
	*features.BoundaryResult
	EdgePixels int `json:"edge_pixels"`
}

func (s *Server) handleFeaturesBoundary(args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Image)
	if err != nil {
		return nil, err
	}
	boundary, err := s.extractor.Boundary(img)
	if err != nil {
		return nil, err
	}
	return &BoundaryResult{BoundaryResult: boundary, EdgePixels: boundary.Edges.Area()}, nil
}

// TextureResult is the features_texture response.
type TextureResult struct {
	Count     int                       `json:"count"`
	Responses []detection.GaborResponse `json:"responses"`
}

func (s *Server) handleFeaturesTexture(args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Image)
	if err != nil {
		return nil, err
	}
	responses := s.extractor.Texture(img)
	return &TextureResult{Count: len(responses), Responses: responses}, nil
}

// === Inspection Handlers ===

type masksExportArgs struct {
	sampleArgs
	Boundary  bool   `json:"boundary"`
	OutputDir string `json:"output_dir"`
	ID        string `json:"id"`
}

// ExportResult is the masks_export response when files are written.
type ExportResult struct {
	Paths []string `json:"paths"`
}

func (s *Server) handleMasksExport(args json.RawMessage) (interface{}, error) {
	var a masksExportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sample, err := s.loadSample(a.sampleArgs)
	if err != nil {
		return nil, err
	}

	var boundary *features.BoundaryResult
	if a.Boundary {
		if boundary, err = s.extractor.Boundary(sample.Image); err != nil {
			return nil, err
		}
	}
	layers := render.Layers(sample.Mask, s.extractor.Options().Spiculation, boundary)

	if a.OutputDir == "" {
		return render.Encode(sample.Image, layers, s.opts.Render)
	}
	if a.ID == "" {
		a.ID = strings.TrimSuffix(filepath.Base(a.Image), filepath.Ext(a.Image))
	}
	paths, err := render.Export(a.OutputDir, a.ID, sample.Image, layers, s.opts.Render)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Paths: paths}, nil
}

type lesionCropArgs struct {
	sampleArgs
	Margin *int    `json:"margin"`
	Scale  float64 `json:"scale"`
}

func (s *Server) handleLesionCrop(args json.RawMessage) (interface{}, error) {
	var a lesionCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	margin := 16
	if a.Margin != nil {
		margin = *a.Margin
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	sample, err := s.loadSample(a.sampleArgs)
	if err != nil {
		return nil, err
	}
	return imaging.CropToMask(sample.Image.ToGray(), sample.Mask, margin, a.Scale)
}

type labelsDetectArgs struct {
	Image         string  `json:"image"`
	MinConfidence float64 `json:"min_confidence"`
}

// LabelsResult is the labels_detect response.
type LabelsResult struct {
	Regions []labels.Region `json:"regions"`
	Count   int             `json:"count"`
	OCR     labels.Info     `json:"ocr"`
}

func (s *Server) handleLabelsDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a labelsDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Image)
	if err != nil {
		return nil, err
	}

	scrubber := *s.opts.Labels
	if a.MinConfidence > 0 {
		scrubber.Options.MinConfidence = a.MinConfidence
	}
	regions, err := scrubber.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	return &LabelsResult{Regions: regions, Count: len(regions), OCR: labels.OCRInfo()}, nil
}
