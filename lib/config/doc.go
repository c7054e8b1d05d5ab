// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration of the simplon tool.
//
// Configuration comes from one file named by the --config flag (via
// [LoadFile]) or the SIMPLON_CONFIG environment variable (via [Load]).
// There is no search path and no per-user discovery. Values missing
// from the file keep the values of [Default]. Loading does not validate:
// the caller layers its command-line overrides on top and then calls
// [Config.Validate].
//
// The host field accepts ${VAR} and ${VAR:-default} references so that
// one file can serve several beamlines:
//
//	detector:
//	  host: ${SIMPLON_HOST:-10.42.0.10}
//	  api_version: 1.8.0
//	  request_timeout: 30s
//	logging:
//	  level: info
//
// Durations are Go duration strings ("250ms", "20s").
package config
