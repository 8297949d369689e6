// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"
)

func TestStreamingBufferBatchFlush(t *testing.T) {
	sb := NewStreamingBufferWithConfig(3, 30)

	sb.Write("こん")
	sb.Write("にち")

	// Below the batch size and inside the frame window: no flush yet.
	if content, ok := sb.Flush(); ok {
		t.Errorf("expected no flush, got %q", content)
	}

	sb.Write("は")
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("expected flush after reaching batch size")
	}
	if content != "こんにちは" {
		t.Errorf("content = %q, want こんにちは", content)
	}

	if sb.Pending() != 0 {
		t.Errorf("Pending() = %d after flush, want 0", sb.Pending())
	}
}

func TestStreamingBufferTimeFlush(t *testing.T) {
	// Large batch size so only the frame window can trigger the flush.
	sb := NewStreamingBufferWithConfig(100, 60)
	sb.Write("a")

	time.Sleep(20 * time.Millisecond)

	content, ok := sb.Flush()
	if !ok {
		t.Fatal("expected flush after the frame window elapsed")
	}
	if content != "a" {
		t.Errorf("content = %q, want a", content)
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("部分")

	content, ok := sb.ForceFlush()
	if !ok || content != "部分" {
		t.Errorf("ForceFlush() = %q, %v", content, ok)
	}

	// Empty buffer force-flushes to nothing.
	if _, ok := sb.ForceFlush(); ok {
		t.Error("ForceFlush on empty buffer should report nothing")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("捨てる")
	sb.Reset()

	if sb.Pending() != 0 {
		t.Errorf("Pending() = %d after reset, want 0", sb.Pending())
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("buffer should be empty after Reset")
	}
}

func TestStreamingBufferConcurrentWrites(t *testing.T) {
	sb := NewStreamingBuffer()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			sb.Write("x")
		}
	}()

	for i := 0; i < 50; i++ {
		sb.Flush()
	}
	<-done

	var total strings.Builder
	if content, ok := sb.ForceFlush(); ok {
		total.WriteString(content)
	}
	// All written tokens are either flushed or still in the final drain;
	// the invariant under test is that nothing panics and the final drain
	// leaves the buffer empty.
	if sb.Pending() != 0 {
		t.Errorf("Pending() = %d after final drain, want 0", sb.Pending())
	}
}

func TestWaitForStreamEventClosedChannel(t *testing.T) {
	events := make(chan streamEvent)
	close(events)

	msg := waitForStreamEvent("msg-1", events, 0)()
	if msg != nil {
		t.Errorf("closed channel should yield nil, got %#v", msg)
	}
}

func TestWaitForStreamEventKinds(t *testing.T) {
	tests := []struct {
		name string
		ev   streamEvent
		want string
	}{
		{"first token", streamEvent{kind: eventFirstToken}, "StreamTokenMsg"},
		{"complete", streamEvent{kind: eventComplete}, "StreamCompleteMsg"},
		{"error", streamEvent{kind: eventError}, "StreamErrorMsg"},
		{"loading", streamEvent{kind: eventModelLoading, estimated: 20 * time.Second}, "ModelLoadingMsg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := make(chan streamEvent, 1)
			events <- tt.ev

			msg := waitForStreamEvent("msg-1", events, 2)()
			switch got := msg.(type) {
			case StreamTokenMsg:
				if tt.want != "StreamTokenMsg" {
					t.Errorf("got StreamTokenMsg, want %s", tt.want)
				}
				if !got.IsFirst {
					t.Error("first token message should have IsFirst set")
				}
			case StreamCompleteMsg:
				if tt.want != "StreamCompleteMsg" {
					t.Errorf("got StreamCompleteMsg, want %s", tt.want)
				}
			case StreamErrorMsg:
				if tt.want != "StreamErrorMsg" {
					t.Errorf("got StreamErrorMsg, want %s", tt.want)
				}
			case ModelLoadingMsg:
				if tt.want != "ModelLoadingMsg" {
					t.Errorf("got ModelLoadingMsg, want %s", tt.want)
				}
				if got.EstimatedTime != 20*time.Second {
					t.Errorf("EstimatedTime = %v, want 20s", got.EstimatedTime)
				}
				if got.Attempt != 2 {
					t.Errorf("Attempt = %d, want 2", got.Attempt)
				}
			default:
				t.Errorf("unexpected message type %#v", msg)
			}
		})
	}
}

func TestCancelManager(t *testing.T) {
	cm := newCancelManager()

	// cancel with nothing stored is a no-op.
	cm.cancel()

	called := 0
	cm.set(func() { called++ })
	cm.cancel()
	if called != 1 {
		t.Errorf("cancel called %d times, want 1", called)
	}

	// second cancel does not call again.
	cm.cancel()
	if called != 1 {
		t.Errorf("cancel called %d times after double cancel, want 1", called)
	}

	// setting a new function cancels the previous one.
	prev := 0
	cm.set(func() { prev++ })
	cm.set(func() {})
	if prev != 1 {
		t.Errorf("previous cancel called %d times on replacement, want 1", prev)
	}
}
