// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// Backup posts the snapshot as a JSON object to a remote endpoint. The
// endpoint answers 302 on success, so redirects are not followed — the
// redirect itself is the acknowledgement.
type Backup struct {
	url    string
	apiKey string
	client *http.Client
}

// successStatuses are the response codes counted as a delivered backup.
var successStatuses = map[int]bool{
	http.StatusOK:    true,
	http.StatusFound: true,
}

func NewBackup(url, apiKey string, timeout time.Duration) *Backup {
	return &Backup{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (s *Backup) Name() string { return "backup" }

func (s *Backup) Store(ctx context.Context, snap record.Snapshot) error {
	body, err := json.Marshal(snap.Object())
	if err != nil {
		return &telemetry.SinkError{
			Kind: telemetry.SinkTransportFailure, Sink: s.Name(), Cause: err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &telemetry.SinkError{
			Kind: telemetry.SinkTransportFailure, Sink: s.Name(), Cause: err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		kind := telemetry.SinkTransportFailure
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = telemetry.SinkTransportTimeout
		}
		return &telemetry.SinkError{Kind: kind, Sink: s.Name(), Cause: err}
	}
	defer resp.Body.Close()

	if !successStatuses[resp.StatusCode] {
		return &telemetry.SinkError{
			Kind: telemetry.SinkUnexpectedStatus, Sink: s.Name(),
			Cause: fmt.Errorf("status %d for cidx %d", resp.StatusCode, snap.Cycle),
		}
	}
	return nil
}
