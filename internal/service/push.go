package service

import (
	"context"
	"sync"
	"time"

	"Tripboard/internal/repo"
)

type pushOp struct {
	op     string
	taskID string
	fn     func(ctx context.Context, r repo.Remote) error
}

// pusher runs remote writes one at a time in submission order, so a create is never
// overtaken by a later update or delete of the same task.
type pusher struct {
	remote  repo.Remote
	timeout time.Duration
	onErr   func(*RemoteWriteError)

	mu      sync.Mutex
	ops     []pushOp
	pending sync.WaitGroup
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

func newPusher(remote repo.Remote, timeout time.Duration, onErr func(*RemoteWriteError)) *pusher {
	p := &pusher{
		remote:  remote,
		timeout: timeout,
		onErr:   onErr,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *pusher) enqueue(op pushOp) {
	p.pending.Add(1)
	p.mu.Lock()
	p.ops = append(p.ops, op)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *pusher) next() (pushOp, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ops) == 0 {
		return pushOp{}, false
	}
	op := p.ops[0]
	p.ops = p.ops[1:]
	return op, true
}

func (p *pusher) run() {
	defer close(p.done)
	for {
		op, ok := p.next()
		if !ok {
			select {
			case <-p.wake:
				continue
			case <-p.stop:
				return
			}
		}
		p.exec(op)
	}
}

func (p *pusher) exec(op pushOp) {
	defer p.pending.Done()
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := op.fn(ctx, p.remote); err != nil {
		p.onErr(&RemoteWriteError{Op: op.op, TaskID: op.taskID, Err: err})
	}
}

// wait blocks until every queued write has finished.
func (p *pusher) wait() {
	p.pending.Wait()
}

// close drains the queue and stops the worker. If ctx ends first, writes still queued
// are dropped and their count returned; the write in flight is allowed to finish.
func (p *pusher) close(ctx context.Context) int {
	drained := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(drained)
	}()
	dropped := 0
	select {
	case <-drained:
	case <-ctx.Done():
		p.mu.Lock()
		dropped = len(p.ops)
		p.ops = nil
		p.mu.Unlock()
		for range dropped {
			p.pending.Done()
		}
	}
	close(p.stop)
	<-p.done
	return dropped
}
