// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package natsbridge forwards fund events from the in-process bus to NATS
package natsbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blinklabs-io/treasury/event"
	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "treasury"

var ErrClosed = errors.New("bridge closed")

// Publisher is the subset of *nats.Conn used by the bridge
type Publisher interface {
	Publish(subject string, data []byte) error
}

// message is the JSON envelope published for each event
type message struct {
	Type      event.EventType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      any             `json:"data"`
}

// Bridge is an event.Subscriber that publishes each delivered event as JSON
// to "<prefix>.<event type>"
type Bridge struct {
	conn   Publisher
	prefix string
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

func New(conn Publisher, prefix string, logger *slog.Logger) *Bridge {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Bridge{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger.With("component", "natsbridge"),
	}
}

// Subject returns the subject an event type is published on
func (b *Bridge) Subject(eventType event.EventType) string {
	return b.prefix + "." + string(eventType)
}

func (b *Bridge) Deliver(evt event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	data, err := json.Marshal(message{
		Type:      evt.Type,
		Timestamp: evt.Timestamp.UTC(),
		Data:      evt.Data,
	})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}
	if err := b.conn.Publish(b.Subject(evt.Type), data); err != nil {
		return fmt.Errorf("publish %s event: %w", evt.Type, err)
	}
	return nil
}

// Close stops delivery. The NATS connection is owned by the caller
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Attach registers the bridge for every fund event type
func (b *Bridge) Attach(bus *event.EventBus) []event.EventSubscriberId {
	ret := make([]event.EventSubscriberId, 0, len(event.FundEventTypes))
	for _, eventType := range event.FundEventTypes {
		ret = append(ret, bus.RegisterSubscriber(eventType, b))
	}
	b.logger.Info(
		"forwarding fund events to NATS",
		"subject_prefix", b.prefix,
	)
	return ret
}

// Connect dials NATS with reconnects enabled and logs connection changes
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("component", "natsbridge")
	return nats.Connect(
		url,
		nats.Name("treasury"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", "url", nc.ConnectedUrl())
		}),
	)
}
