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

package natsbridge_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/blinklabs-io/treasury/event"
	"github.com/blinklabs-io/treasury/event/natsbridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return nil
}

func TestBridgeForwardsFundEvents(t *testing.T) {
	conn := &fakeConn{}
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	bridge := natsbridge.New(conn, "fund.", nil)
	ids := bridge.Attach(bus)
	assert.Len(t, ids, len(event.FundEventTypes))

	bus.Publish(
		event.VoteEventType,
		event.NewEvent(event.VoteEventType, event.VoteEvent{
			ProposalId: 4,
			Voter:      "alice",
			Support:    true,
		}),
	)
	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "fund.fund.vote", conn.msgs[0].subject)
	var msg struct {
		Type string `json:"type"`
		Data struct {
			ProposalId uint64 `json:"proposal_id"`
			Voter      string `json:"voter"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(conn.msgs[0].data, &msg))
	assert.Equal(t, "fund.vote", msg.Type)
	assert.Equal(t, uint64(4), msg.Data.ProposalId)
	assert.Equal(t, "alice", msg.Data.Voter)
}

func TestBridgeDefaultPrefix(t *testing.T) {
	bridge := natsbridge.New(&fakeConn{}, "", nil)
	assert.Equal(t, "treasury.fund.deposit", bridge.Subject(event.DepositEventType))
}

func TestBridgeErrors(t *testing.T) {
	conn := &fakeConn{err: errors.New("connection closed")}
	bridge := natsbridge.New(conn, "", nil)
	err := bridge.Deliver(event.NewEvent(event.DepositEventType, event.DepositEvent{}))
	require.ErrorContains(t, err, "connection closed")

	conn.err = nil
	bridge.Close()
	err = bridge.Deliver(event.NewEvent(event.DepositEventType, event.DepositEvent{}))
	require.ErrorIs(t, err, natsbridge.ErrClosed)
}
