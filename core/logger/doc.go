// Package logger records shell events as structured JSON lines.
package logger
