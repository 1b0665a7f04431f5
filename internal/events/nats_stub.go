// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

//go:build !nats

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

func newNATSPublisher(_ NATSConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
	return nil, ErrNATSNotEnabled
}
