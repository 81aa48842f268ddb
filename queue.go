//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 CarbonBridge Authors
//
// This file is part of CarbonBridge.
//
// CarbonBridge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// CarbonBridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with CarbonBridge. If not, see https://www.gnu.org/licenses/.

package carbonbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/liutaobigdata/carbonbridge/tensor"
)

// RandomShufflingQueueSizeMetric is the well-known name under which a
// shuffling queue exposes its live occupancy. Monitoring code can read the
// gauge from the default prometheus registry without holding a queue handle.
const RandomShufflingQueueSizeMetric = "random_shuffling_queue_size"

// errQueueClosed is returned by Dequeue after Close.
var errQueueClosed = errors.New("shuffling queue closed")

// shuffleQueue is a bounded randomizing queue of flat tensor lists. Exactly
// one feeder goroutine enqueues; Dequeue hands back a uniformly random held
// element once occupancy exceeds minAfterDequeue. Dequeued elements have no
// temporal relationship to enqueue order.
type shuffleQueue struct {
	capacity        int
	minAfterDequeue int
	dtypes          []arrow.DataType

	mu         sync.Mutex
	cond       *sync.Cond
	items      [][]*tensor.Tensor
	rng        *rand.Rand
	started    bool
	feederDone bool
	feedErr    error
	closed     bool

	gauge prometheus.Gauge
}

// newShuffleQueue creates a queue holding up to capacity flat tensor lists,
// each of which must match the given dtype list. The occupancy gauge is
// registered with the default prometheus registry under one fixed name, so
// all live queues in a process share it and the reported size is that of
// whichever queue set it last.
func newShuffleQueue(capacity, minAfterDequeue int, dtypes []arrow.DataType) (*shuffleQueue, error) {
	if capacity <= 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("queue capacity must be positive, got %d", capacity)}
	}
	if minAfterDequeue < 0 || minAfterDequeue >= capacity {
		return nil, &ConfigurationError{Reason: fmt.Sprintf(
			"min_after_dequeue must satisfy 0 <= min_after_dequeue < capacity, got %d with capacity %d",
			minAfterDequeue, capacity)}
	}
	gauge, err := registerQueueSizeGauge()
	if err != nil {
		return nil, err
	}
	q := &shuffleQueue{
		capacity:        capacity,
		minAfterDequeue: minAfterDequeue,
		dtypes:          dtypes,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		gauge:           gauge,
	}
	q.cond = sync.NewCond(&q.mu)
	return q, nil
}

func registerQueueSizeGauge() (prometheus.Gauge, error) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: RandomShufflingQueueSizeMetric,
		Help: "Current number of sample rows held by the random shuffling queue.",
	})
	if err := prometheus.Register(gauge); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register %s gauge: %w", RandomShufflingQueueSizeMetric, err)
	}
	return gauge, nil
}

// Start launches the single feeder goroutine. feed is called repeatedly to
// produce flat tensor lists until it returns an error (io.EOF for normal
// exhaustion) or the queue is closed. Start may be called at most once per
// queue; a second call violates the single-producer invariant the upstream
// reader depends on and is rejected outright.
func (q *shuffleQueue) Start(ctx context.Context, feed func(context.Context) ([]*tensor.Tensor, error)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return &ConfigurationError{Reason: "shuffling queue already has a feeder: only one enqueue task may run per queue"}
	}
	q.started = true

	go func() {
		for {
			item, err := feed(ctx)
			if err != nil {
				q.finishFeeder(err)
				return
			}
			if err := q.enqueue(ctx, item); err != nil {
				q.finishFeeder(err)
				return
			}
		}
	}()
	return nil
}

func (q *shuffleQueue) finishFeeder(err error) {
	if !errors.Is(err, io.EOF) && !errors.Is(err, errQueueClosed) {
		logrus.WithError(err).Debug("shuffling queue feeder stopped")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.feederDone = true
	q.feedErr = err
	q.cond.Broadcast()
}

// enqueue blocks until there is room, the queue is closed, or ctx is done.
func (q *shuffleQueue) enqueue(ctx context.Context, item []*tensor.Tensor) error {
	if len(item) != len(q.dtypes) {
		return fmt.Errorf("enqueue of %d tensors into a queue typed for %d", len(item), len(q.dtypes))
	}
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) >= q.capacity && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	if q.closed {
		return errQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	q.items = append(q.items, item)
	q.gauge.Set(float64(len(q.items)))
	q.cond.Broadcast()
	return nil
}

// Dequeue removes and returns a uniformly random element. It blocks while
// occupancy is at or below minAfterDequeue and the feeder is still running;
// once the feeder has finished the queue drains without the minimum, then
// surfaces the feeder's terminal error (io.EOF on normal exhaustion).
func (q *shuffleQueue) Dequeue(ctx context.Context) ([]*tensor.Tensor, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed {
			return nil, errQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(q.items) > 0 && (len(q.items) > q.minAfterDequeue || q.feederDone) {
			i := q.rng.Intn(len(q.items))
			item := q.items[i]
			q.items[i] = q.items[len(q.items)-1]
			q.items = q.items[:len(q.items)-1]
			q.gauge.Set(float64(len(q.items)))
			q.cond.Broadcast()
			return item, nil
		}
		if q.feederDone && len(q.items) == 0 {
			return nil, q.feedErr
		}
		q.cond.Wait()
	}
}

// Close shuts the queue down. The feeder unblocks and exits; pending and
// future Dequeue calls fail.
func (q *shuffleQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.gauge.Set(0)
	q.cond.Broadcast()
}
