// Package server implements the MCP (Model Context Protocol) server for lesion
// feature extraction.
//
// This package provides a JSON-RPC 2.0 server that exposes the feature
// extractor through the MCP protocol, so an MCP client can measure a sample
// descriptor by descriptor and inspect the masks each descriptor works on.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Sample Information:
//   - sample_info: Dimensions, format and bit depth of a file
//
// Feature Extraction:
//   - features_extract: The full thirteen-value feature record
//   - features_spiculation: Raw and rescaled dispersion for strategies A-D
//   - features_shape: Circularity, bounding-box IoU and both boxes
//   - features_boundary: Hough segments, Canny edge count and snake contour
//   - features_texture: Gabor bank responses
//
// Inspection:
//   - masks_export: Derived-mask overlay as base64 PNG or files on disk
//   - lesion_crop: The lesion neighborhood as base64 PNG
//   - labels_detect: Burned-in scanner annotations
//
// # Image Caching
//
// Scans and masks are decoded once and cached by path for the lifetime of the
// server process, so several tools called on the same sample share one decode.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string, e.g. "features: image and mask dimensions
//     differ: ..."
//
// Each tools/call runs under the configured sample timeout.
//
// # Usage
//
//	srv := server.New(cache, extractor, server.Options{Version: version})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
