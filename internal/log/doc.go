// Package log provides secure logging built on top of the standard slog
// package.
//
// The SecureHandler redacts deploy credentials before they reach the output:
//   - attributes whose key names a secret (token, auth, password, ...)
//   - values shaped like GitHub or Netlify tokens, JWTs and bearer headers
//   - secrets inside command lines and KEY=value environment lists, as
//     logged by the command fetcher, renderer and publisher
//
// # Usage
//
//	logger := log.New(os.Stderr, verbose, jsonOutput)
//	logger.Info("deploying", "command", []string{"netlify", "deploy", "--auth", token})
//	// command=[netlify deploy --auth ***REDACTED***]
package log
