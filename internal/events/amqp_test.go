package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"
)

// silentBroker accepts TCP connections and never answers the AMQP handshake.
type silentBroker struct {
	lis net.Listener

	mu    sync.Mutex
	conns []net.Conn
}

func startSilentBroker(t *testing.T) *silentBroker {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen error: %v", err)
	}
	b := &silentBroker{lis: lis}
	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			b.mu.Lock()
			b.conns = append(b.conns, conn)
			b.mu.Unlock()
		}
	}()
	return b
}

func (b *silentBroker) url() string {
	return "amqp://guest:guest@" + b.lis.Addr().String() + "/"
}

func (b *silentBroker) stop() {
	_ = b.lis.Close()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		_ = c.Close()
	}
}

func TestNewAMQPPublisher_SilentBrokerTimesOut(t *testing.T) {
	broker := startSilentBroker(t)
	defer broker.stop()

	p, err := newAMQPPublisher(broker.url(), "", 300*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("newAMQPPublisher error: %v", err)
	}

	start := time.Now()
	if _, _, err := p.dial(); err == nil {
		t.Fatalf("expected dial error against a silent broker")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("dial took %s, want it bounded by the dial timeout", elapsed)
	}
}

func TestPublish_DisconnectedFailsFastAndRedialsInBackground(t *testing.T) {
	broker := startSilentBroker(t)

	var logs bytes.Buffer
	p, err := newAMQPPublisher(broker.url(), "", 30*time.Second, slog.New(slog.NewJSONHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("newAMQPPublisher error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Publish(ctx, ClassDeletedEvent(int64(i+1)))
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if elapsed > 500*time.Millisecond {
		t.Fatalf("publish took %s, want it within the context deadline", elapsed)
	}
	for i, err := range errs {
		if !errors.Is(err, ErrNotConnected) {
			t.Fatalf("publish %d error = %v, want ErrNotConnected", i, err)
		}
	}

	p.mu.Lock()
	dialing := p.dialing
	p.mu.Unlock()
	if !dialing {
		t.Fatalf("expected a background redial to be in flight")
	}

	broker.stop()
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dialing || p.ch != nil {
		t.Fatalf("dialing = %v, channel = %v after Close; want idle and disconnected", p.dialing, p.ch)
	}
}

func TestPublish_CancelledContext(t *testing.T) {
	p, err := newAMQPPublisher("amqp://127.0.0.1:1/", "", time.Second, nil)
	if err != nil {
		t.Fatalf("newAMQPPublisher error: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, ClassDeletedEvent(1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dialing {
		t.Fatalf("a cancelled publish must not start a redial")
	}
}
