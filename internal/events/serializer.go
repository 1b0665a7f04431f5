// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
)

// validator is implemented by every event type.
type validator interface {
	Validate() error
}

// marshal validates and encodes an event.
func marshal(event validator) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// DecodeSiteEdited decodes a message published on the site.edited topic.
func DecodeSiteEdited(msg *message.Message) (*SiteEdited, error) {
	var ev SiteEdited
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal site edited event: %w", err)
	}
	return &ev, nil
}

// DecodeSiteDeleted decodes a message published on the site.deleted topic.
func DecodeSiteDeleted(msg *message.Message) (*SiteDeleted, error) {
	var ev SiteDeleted
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal site deleted event: %w", err)
	}
	return &ev, nil
}
