// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package logging provides the process-wide structured logger.
package logging

import "log/slog"

func Default() *slog.Logger {
	// This may include more logic in the future when we want to
	// customize the logging behavior per environment.
	return slog.Default()
}

var Log = Default()
