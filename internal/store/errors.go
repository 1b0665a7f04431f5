// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package store

import (
	"errors"
	"io"

	"github.com/tomtom215/plantingsites/internal/logging"
)

// ErrTxDone is returned by any Tx method called after Commit or Rollback.
var ErrTxDone = errors.New("store: transaction has already been committed or rolled back")

// rollback rolls tx back after cause and logs a rollback failure with both errors.
func rollback(tx Tx, cause error) {
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, ErrTxDone) {
		logging.Error().Err(rbErr).AnErr("original_error", cause).Msg("Transaction rollback failed")
	}
}

// closeQuietly closes a resource in an error path where the close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
