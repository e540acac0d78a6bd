// Package server exposes the color detection pipeline as an MCP (Model
// Context Protocol) tool server.
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
// Logs go to stderr; stdout carries protocol messages only.
//
// # Available Tools
//
//   - image_info: dimensions, format and size of an image file
//   - color_detect_image: full pipeline run on an image
//   - color_detect_video: full pipeline run on a video
//   - color_nearest_name: palette name for an RGB or hex color
//   - color_dominant: dominant color of an image or region
//   - color_palette: list palette entries
//
// Pipeline runs are stored when the server was given a store.
//
// # Image Caching
//
// Images loaded by image_info and color_dominant are cached by path for the
// lifetime of the server process. Pipeline runs always read from disk.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: the Go error string
package server
