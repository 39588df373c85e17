// Package mcpserver exposes the transcription and session operations as MCP
// tools over stdio or streamable HTTP using the official MCP Go SDK. Tool
// failures carry the stable error codes so clients can branch on cause
// without parsing prose.
package mcpserver
