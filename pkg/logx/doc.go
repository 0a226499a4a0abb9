// Package logx configures the relay's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - Journal output structured (one journald field per log field)
//   - File output JSON-structured
//
// A Logger is built once per invocation and injected into every component.
package logx
