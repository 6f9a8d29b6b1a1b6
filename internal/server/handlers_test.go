package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/lesion-features/internal/features"
	"github.com/ironsheep/lesion-features/internal/imaging"
)

// writeSample writes a 40x40 16-bit scan holding a bright disk of radius 8
// and the matching mask. It returns the two paths.
func writeSample(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	scan := image.NewGray16(image.Rect(0, 0, 40, 40))
	mask := image.NewGray(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			dx, dy := x-20, y-20
			if dx*dx+dy*dy <= 64 {
				scan.SetGray16(x, y, color.Gray16{Y: 40000})
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	scanPath := filepath.Join(dir, "case_001.png")
	maskPath := filepath.Join(dir, "case_001_mask.png")
	for path, img := range map[string]image.Image{scanPath: scan, maskPath: mask} {
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("failed to create %s: %v", path, err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			t.Fatalf("failed to encode %s: %v", path, err)
		}
		f.Close()
	}
	return scanPath, maskPath
}

// callTool runs a tools/call request and decodes the text content into out.
// It returns the JSON-RPC error, if any.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPError {
	t.Helper()
	paramsJSON, _ := json.Marshal(map[string]interface{}{"name": name, "arguments": args})

	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
			t.Fatalf("failed to decode %s result: %v", name, err)
		}
	}
	return nil
}

func TestHandleToolsCall_SampleInfo(t *testing.T) {
	s := newTestServer(t)
	scanPath, _ := writeSample(t)

	var info struct {
		Width     int  `json:"width"`
		Height    int  `json:"height"`
		BitDepth  int  `json:"bit_depth"`
		Grayscale bool `json:"grayscale"`
	}
	if err := callTool(t, s, "sample_info", map[string]interface{}{"path": scanPath}, &info); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info.Width != 40 || info.Height != 40 {
		t.Errorf("dimensions: got %dx%d, want 40x40", info.Width, info.Height)
	}
	if info.BitDepth != 16 || !info.Grayscale {
		t.Errorf("depth: got %d bit (gray %v), want 16-bit gray", info.BitDepth, info.Grayscale)
	}
}

func TestHandleToolsCall_FeaturesExtract(t *testing.T) {
	s := newTestServer(t)
	scanPath, maskPath := writeSample(t)

	var result ExtractResult
	err := callTool(t, s, "features_extract", map[string]interface{}{
		"image":           scanPath,
		"mask":            maskPath,
		"gabor_responses": true,
	}, &result)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Features) != len(features.Keys()) {
		t.Errorf("features: got %d values, want %d", len(result.Features), len(features.Keys()))
	}
	if result.Features["iou"] != 1 {
		t.Errorf("iou: got %v, want 1", result.Features["iou"])
	}
	if result.Features["gabor"] != 16 {
		t.Errorf("gabor: got %v, want 16", result.Features["gabor"])
	}
	if len(result.Gabor) != 16 {
		t.Errorf("gabor responses: got %d, want 16", len(result.Gabor))
	}
	if result.Keys[0] != "spiculationA" {
		t.Errorf("keys[0]: got %s", result.Keys[0])
	}
}

func TestHandleToolsCall_Descriptors(t *testing.T) {
	s := newTestServer(t)
	scanPath, maskPath := writeSample(t)

	t.Run("spiculation", func(t *testing.T) {
		var result SpiculationResult
		if err := callTool(t, s, "features_spiculation", map[string]interface{}{"image": scanPath, "mask": maskPath}, &result); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Raw.A < 0 || result.Rescaled.A < 0 {
			t.Errorf("dispersion must not be negative: %+v", result)
		}
	})

	t.Run("shape", func(t *testing.T) {
		var result features.ShapeResult
		if err := callTool(t, s, "features_shape", map[string]interface{}{"image": scanPath, "mask": maskPath}, &result); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.IoU != 1 || result.Circularity != 1 {
			t.Errorf("shape: got %+v, want iou 1 and circularity 1", result)
		}
		if result.MaskBox.MinRow != 12 || result.MaskBox.MaxRow != 28 {
			t.Errorf("mask box: got %+v", result.MaskBox)
		}
	})

	t.Run("boundary", func(t *testing.T) {
		var result struct {
			Snake struct {
				Final []struct{} `json:"final"`
			} `json:"snake"`
			EdgePixels int `json:"edge_pixels"`
		}
		if err := callTool(t, s, "features_boundary", map[string]interface{}{"image": scanPath}, &result); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(result.Snake.Final) != 30 {
			t.Errorf("snake vertices: got %d, want 30", len(result.Snake.Final))
		}
		if result.EdgePixels == 0 {
			t.Error("expected Canny edges around the disk")
		}
	})

	t.Run("texture", func(t *testing.T) {
		var result TextureResult
		if err := callTool(t, s, "features_texture", map[string]interface{}{"image": scanPath}, &result); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Count != 16 || len(result.Responses) != 16 {
			t.Errorf("texture: got count %d with %d responses", result.Count, len(result.Responses))
		}
	})
}

func TestHandleToolsCall_MasksExport(t *testing.T) {
	s := newTestServer(t)
	scanPath, maskPath := writeSample(t)

	t.Run("inline overlay", func(t *testing.T) {
		var result struct {
			MimeType    string   `json:"mime_type"`
			ImageBase64 string   `json:"image_base64"`
			Layers      []string `json:"layers"`
		}
		err := callTool(t, s, "masks_export", map[string]interface{}{
			"image": scanPath, "mask": maskPath, "boundary": true,
		}, &result)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.MimeType != "image/png" || result.ImageBase64 == "" {
			t.Errorf("overlay: got mime %q with %d bytes", result.MimeType, len(result.ImageBase64))
		}
		if len(result.Layers) != 7 {
			t.Errorf("layers: got %v", result.Layers)
		}
	})

	t.Run("files", func(t *testing.T) {
		outDir := filepath.Join(t.TempDir(), "out")
		var result ExportResult
		err := callTool(t, s, "masks_export", map[string]interface{}{
			"image": scanPath, "mask": maskPath, "output_dir": outDir,
		}, &result)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(result.Paths) != 4 {
			t.Fatalf("paths: got %v", result.Paths)
		}
		for _, p := range result.Paths {
			if !strings.HasPrefix(filepath.Base(p), "case_001_") {
				t.Errorf("unexpected file name %s", p)
			}
			if _, err := os.Stat(p); err != nil {
				t.Errorf("missing export %s: %v", p, err)
			}
		}
	})
}

func TestHandleToolsCall_LesionCrop(t *testing.T) {
	s := newTestServer(t)
	scanPath, maskPath := writeSample(t)

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantOrigin int
		wantSize   int
	}{
		// The disk spans 12..28, so the default margin reaches the frame.
		{"default margin", map[string]interface{}{}, 0, 40},
		{"tight", map[string]interface{}{"margin": 0}, 12, 17},
		{"scaled", map[string]interface{}{"margin": 2, "scale": 2.0}, 10, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["image"] = scanPath
			tt.args["mask"] = maskPath
			var result struct {
				X           int    `json:"x"`
				Y           int    `json:"y"`
				Width       int    `json:"width"`
				Height      int    `json:"height"`
				ImageBase64 string `json:"image_base64"`
			}
			if err := callTool(t, s, "lesion_crop", tt.args, &result); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.X != tt.wantOrigin || result.Y != tt.wantOrigin {
				t.Errorf("origin: got (%d,%d), want (%d,%d)", result.X, result.Y, tt.wantOrigin, tt.wantOrigin)
			}
			if result.Width != tt.wantSize || result.Height != tt.wantSize {
				t.Errorf("size: got %dx%d, want %dx%d", result.Width, result.Height, tt.wantSize, tt.wantSize)
			}
			if result.ImageBase64 == "" {
				t.Error("empty image data")
			}
		})
	}
}

func TestHandleToolsCall_LabelsDetect(t *testing.T) {
	s := newTestServer(t)
	scanPath, _ := writeSample(t)

	var result LabelsResult
	if err := callTool(t, s, "labels_detect", map[string]interface{}{"image": scanPath}, &result); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Count != 0 || len(result.Regions) != 0 {
		t.Errorf("a 40x40 scan is smaller than every text window, got %+v", result.Regions)
	}
	if result.OCR.Backend == "" {
		t.Error("OCR info should name a backend")
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t)
	scanPath, _ := writeSample(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{"unknown tool", "image_crop", map[string]interface{}{}, "unknown tool"},
		{"missing mask", "features_extract", map[string]interface{}{"image": scanPath}, "image and mask paths are required"},
		{"missing image", "features_texture", map[string]interface{}{}, "image path is required"},
		{"absent file", "features_shape", map[string]interface{}{"image": scanPath, "mask": "/nonexistent/mask.png"}, "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := callTool(t, s, tt.tool, tt.args, nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			if err.Code != -32000 {
				t.Errorf("code: got %d, want -32000", err.Code)
			}
			if data, _ := err.Data.(string); !strings.Contains(data, tt.want) {
				t.Errorf("data: got %q, want it to contain %q", data, tt.want)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`[1,2]`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected invalid params error, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_Timeout(t *testing.T) {
	opts := features.DefaultOptions()
	opts.Snake.CenterRow, opts.Snake.CenterCol, opts.Snake.Radius = 20, 20, 12
	opts.Snake.Points = 30
	s := New(imaging.NewImageCache(0), features.NewExtractor(opts), Options{SampleTimeout: time.Nanosecond})
	scanPath, maskPath := writeSample(t)

	for _, tool := range []string{"features_texture", "features_boundary", "features_spiculation", "masks_export", "lesion_crop"} {
		t.Run(tool, func(t *testing.T) {
			err := callTool(t, s, tool, map[string]interface{}{"image": scanPath, "mask": maskPath}, nil)
			if err == nil {
				t.Fatal("expected a deadline error")
			}
			if data, _ := err.Data.(string); !strings.Contains(data, "deadline exceeded") {
				t.Errorf("data: got %q, want a deadline error", data)
			}
		})
	}
}
