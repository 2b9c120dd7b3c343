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

package event

import (
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// Deposits published while the subscriber is being removed must never hit a
// closed channel
func TestPublishUnsubscribeRace(t *testing.T) {
	for range 500 {
		eb := NewEventBus(nil, nil)
		subId, ch := eb.Subscribe(DepositEventType)
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := range 10 {
				eb.Publish(
					DepositEventType,
					NewEvent(DepositEventType, DepositEvent{
						Account: "alice",
						Amount:  big.NewInt(int64(j + 1)),
						Shares:  big.NewInt(int64(j + 1)),
					}),
				)
			}
		}()
		go func() {
			defer wg.Done()
			eb.Unsubscribe(DepositEventType, subId)
			eb.Stop()
		}()
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		wg.Wait()
	}
}

func TestPublishAsyncStopRace(t *testing.T) {
	for range 200 {
		eb := NewEventBus(nil, nil)
		var delivered atomic.Int32
		eb.SubscribeFunc(VoteEventType, func(Event) {
			delivered.Add(1)
		})
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 20 {
				eb.PublishAsync(
					VoteEventType,
					NewEvent(VoteEventType, VoteEvent{ProposalId: 1, Voter: "bob"}),
				)
			}
		}()
		go func() {
			defer wg.Done()
			eb.Stop()
		}()
		wg.Wait()
		require.False(
			t,
			eb.PublishAsync(VoteEventType, NewEvent(VoteEventType, nil)),
		)
		require.LessOrEqual(t, delivered.Load(), int32(20))
	}
}

// SubscribeFunc racing Stop must neither panic nor leak handler goroutines
func TestSubscribeFuncStopRace(t *testing.T) {
	for range 500 {
		eb := NewEventBus(nil, nil)
		var wg sync.WaitGroup
		var subscribed atomic.Int32
		for _, evtType := range FundEventTypes[:5] {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if eb.SubscribeFunc(evtType, func(Event) {}) != 0 {
					subscribed.Add(1)
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			eb.Stop()
		}()
		wg.Wait()
		// Late subscribers are closed by a second Stop
		eb.Stop()
		require.Equal(t, int32(5), subscribed.Load())
	}
}
