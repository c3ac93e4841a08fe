// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package property

import (
	"sync"
	"testing"
	"time"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/wireerr"
	"github.com/stretchr/testify/require"
)

// trackerQueues holds one persistent subscription per port, so frames that
// arrive between two recvTrackerFrame calls are queued: a started Port
// delivers each frame only to the listeners live at that moment.
var trackerQueues sync.Map // *channel.Port -> chan TrackerFrame

func recvTrackerFrame(t *testing.T, port *channel.Port) TrackerFrame {
	t.Helper()
	v, loaded := trackerQueues.LoadOrStore(port, make(chan TrackerFrame, 16))
	ch := v.(chan TrackerFrame)
	if !loaded {
		port.Subscribe(false, func(f channel.Frame) {
			tf, ok := f.Body.(TrackerFrame)
			require.True(t, ok)
			ch <- tf
		})
	}
	select {
	case tf := <-ch:
		return tf
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tracker frame")
		return TrackerFrame{}
	}
}

func TestTrackSendsImmediateSeedValue(t *testing.T) {
	srv := NewServer("count", 5, true, nil)
	local, remote := channel.NewPair()

	srv.Track(remote)

	tf := recvTrackerFrame(t, local)
	require.True(t, tf.HasValue)
	require.Equal(t, 5, tf.Value)
}

func TestSetBroadcastsToAllTrackers(t *testing.T) {
	srv := NewServer("count", 0, true, nil)

	local1, remote1 := channel.NewPair()
	local2, remote2 := channel.NewPair()
	srv.Track(remote1)
	srv.Track(remote2)
	recvTrackerFrame(t, local1) // discard seed
	recvTrackerFrame(t, local2)

	require.NoError(t, srv.Set(42, false))

	require.Equal(t, 42, recvTrackerFrame(t, local1).Value)
	require.Equal(t, 42, recvTrackerFrame(t, local2).Value)
}

func TestSetRejectedWhenNotWritable(t *testing.T) {
	srv := NewServer("count", 1, false, nil)
	err := srv.Set(2, false)
	require.ErrorIs(t, err, wireerr.PropertyNotSet)
	require.Equal(t, 1, srv.Get())
}

func TestSetIgnoreReadOnlyBypassesWritableFlag(t *testing.T) {
	srv := NewServer("count", 1, false, nil)
	require.NoError(t, srv.Set(9, true))
	require.Equal(t, 9, srv.Get())
}

func TestValidatorRejectsProposedValue(t *testing.T) {
	srv := NewServer("count", 1, true, func(v int) error {
		if v < 0 {
			return wireerr.New(wireerr.KindPropertyNotSet, "must be non-negative")
		}
		return nil
	})
	err := srv.Set(-1, false)
	require.Error(t, err)
	require.Equal(t, 1, srv.Get())
}

func TestTrackerWriteUpdatesServerValue(t *testing.T) {
	srv := NewServer("count", 0, true, nil)
	local, remote := channel.NewPair()
	srv.Track(remote)
	recvTrackerFrame(t, local) // discard seed

	require.NoError(t, local.Post(channel.Frame{Body: TrackerFrame{Value: 3, HasValue: true}}))

	// the server echoes the new value back to every tracker, including
	// the one that proposed it
	tf := recvTrackerFrame(t, local)
	require.Equal(t, 3, tf.Value)
	require.Equal(t, 3, srv.Get())
}

func TestTrackerCloseRemovesFromBroadcast(t *testing.T) {
	srv := NewServer("count", 0, true, nil)
	local, remote := channel.NewPair()
	srv.Track(remote)
	recvTrackerFrame(t, local) // discard seed

	channel.SignalClose(local)
	time.Sleep(10 * time.Millisecond)

	// a subsequent broadcast must not block or panic on the departed
	// tracker; nothing further to assert beyond "this returns".
	require.NoError(t, srv.Set(7, false))
}
