package hub

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/model"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/testutil"
)

func startHub(t *testing.T) (*Hub, *store.MemoryStore) {
	t.Helper()

	s := testutil.NewMemoryStore(t)
	h := NewHub(s)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	return h, s
}

func register(t *testing.T, h *Hub, userID uuid.UUID, username string) *Client {
	t.Helper()

	c := NewClient(nil, userID, username)
	reg := Registration{Client: c, Done: make(chan struct{})}

	select {
	case h.Register <- reg:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not accept registration")
	}

	select {
	case <-reg.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("registration did not complete")
	}

	return c
}

func recvFrame(t *testing.T, c *Client) model.Frame {
	t.Helper()

	select {
	case frame := <-c.Send:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return model.Frame{}
	}
}

func sendEvent(t *testing.T, h *Hub, c *Client, frame model.Frame) {
	t.Helper()

	select {
	case h.Events <- Inbound{Client: c, Frame: frame}:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not accept event")
	}
}

func TestRegisterReplaysHistoryFirst(t *testing.T) {
	req := require.New(t)
	h, s := startHub(t)
	alice := uuid.New()

	_, err := s.AppendMessage(context.Background(), alice, "alice", "one", nil)
	req.NoError(err)
	_, err = s.AppendMessage(context.Background(), alice, "alice", "two", nil)
	req.NoError(err)

	c := register(t, h, uuid.New(), "bob")

	frame := recvFrame(t, c)
	req.Equal(model.FrameHistory, frame.Type)
	req.Len(frame.Messages, 2)
	req.Equal(int64(1), frame.Messages[0].ID)
	req.Equal(int64(2), frame.Messages[1].ID)
}

func TestOrderPreservation(t *testing.T) {
	req := require.New(t)
	h, _ := startHub(t)

	alice := register(t, h, uuid.New(), "alice")
	bob := register(t, h, uuid.New(), "bob")
	recvFrame(t, alice) // history
	recvFrame(t, bob)

	senders := []*Client{alice, bob, alice, alice, bob}
	for _, c := range senders {
		sendEvent(t, h, c, model.Frame{Type: model.FrameMessage, Text: "m"})
	}

	// Both connections observe the same order, equal to id order, and the
	// sender receives its own echo.
	for _, c := range []*Client{alice, bob} {
		for i := 1; i <= len(senders); i++ {
			frame := recvFrame(t, c)
			req.Equal(model.FrameMessage, frame.Type)
			req.Equal(int64(i), frame.Message.ID)
		}
	}
}

func TestEmptyMessageRejectedWithoutSideEffect(t *testing.T) {
	req := require.New(t)
	h, s := startHub(t)

	alice := register(t, h, uuid.New(), "alice")
	bob := register(t, h, uuid.New(), "bob")
	recvFrame(t, alice)
	recvFrame(t, bob)

	sendEvent(t, h, alice, model.Frame{Type: model.FrameMessage, Text: "   "})

	// Only the sender hears about it.
	frame := recvFrame(t, alice)
	req.Equal(model.FrameError, frame.Type)

	messages, err := s.ListMessages(context.Background())
	req.NoError(err)
	req.Empty(messages)

	// Bob's next frame is a real message, not the rejection.
	sendEvent(t, h, alice, model.Frame{Type: model.FrameMessage, Text: "real"})
	frame = recvFrame(t, bob)
	req.Equal(model.FrameMessage, frame.Type)
	req.Equal("real", frame.Message.Text)
}

func TestAttachmentOnlyMessageBroadcast(t *testing.T) {
	req := require.New(t)
	h, _ := startHub(t)

	alice := register(t, h, uuid.New(), "alice")
	recvFrame(t, alice)

	att := &model.Attachment{Ref: "/files/r1", Filename: "photo.png"}
	sendEvent(t, h, alice, model.Frame{Type: model.FrameMessage, Attachment: att})

	frame := recvFrame(t, alice)
	req.Equal(model.FrameMessage, frame.Type)
	req.Empty(frame.Message.Text)
	req.Equal(att, frame.Message.Attachment)
	req.False(frame.Message.Seen)
}

func TestSeenUpdateBroadcastsIDSet(t *testing.T) {
	req := require.New(t)
	h, _ := startHub(t)

	aliceID, bobID := uuid.New(), uuid.New()
	alice := register(t, h, aliceID, "alice")
	bob := register(t, h, bobID, "bob")
	recvFrame(t, alice)
	recvFrame(t, bob)

	sendEvent(t, h, alice, model.Frame{Type: model.FrameMessage, Text: "hi"})
	recvFrame(t, alice)
	recvFrame(t, bob)

	sendEvent(t, h, bob, model.Frame{Type: model.FrameSeen})

	// Everyone, including the viewer, receives the explicit seen set.
	for _, c := range []*Client{alice, bob} {
		frame := recvFrame(t, c)
		req.Equal(model.FrameSeen, frame.Type)
		req.Equal([]int64{1}, frame.SeenIDs)
	}

	// Marking twice produces the same set.
	sendEvent(t, h, bob, model.Frame{Type: model.FrameSeen})
	frame := recvFrame(t, alice)
	req.Equal([]int64{1}, frame.SeenIDs)
	recvFrame(t, bob)
}

func TestTypingExcludesOriginatorConnections(t *testing.T) {
	req := require.New(t)
	h, _ := startHub(t)

	aliceID, bobID := uuid.New(), uuid.New()
	aliceTab1 := register(t, h, aliceID, "alice")
	aliceTab2 := register(t, h, aliceID, "alice")
	bob := register(t, h, bobID, "bob")
	recvFrame(t, aliceTab1)
	recvFrame(t, aliceTab2)
	recvFrame(t, bob)

	sendEvent(t, h, aliceTab1, model.Frame{Type: model.FrameTyping, IsTyping: true})
	sendEvent(t, h, aliceTab1, model.Frame{Type: model.FrameMessage, Text: "marker"})

	// Bob sees the typing signal, then the message.
	frame := recvFrame(t, bob)
	req.Equal(model.FrameTyping, frame.Type)
	req.Equal(aliceID, frame.UserID)
	req.True(frame.IsTyping)
	frame = recvFrame(t, bob)
	req.Equal(model.FrameMessage, frame.Type)

	// Neither of Alice's connections receives her own typing signal: the
	// next frame each sees is the marker message.
	for _, c := range []*Client{aliceTab1, aliceTab2} {
		frame = recvFrame(t, c)
		req.Equal(model.FrameMessage, frame.Type)
		req.Equal("marker", frame.Message.Text)
	}
}

func TestMultipleConnectionsPerUserAllReceive(t *testing.T) {
	req := require.New(t)
	h, _ := startHub(t)

	bobID := uuid.New()
	tab1 := register(t, h, bobID, "bob")
	tab2 := register(t, h, bobID, "bob")
	recvFrame(t, tab1)
	recvFrame(t, tab2)

	sendEvent(t, h, tab1, model.Frame{Type: model.FrameMessage, Text: "hi"})

	for _, c := range []*Client{tab1, tab2} {
		frame := recvFrame(t, c)
		req.Equal(model.FrameMessage, frame.Type)
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	req := require.New(t)
	h, _ := startHub(t)

	alice := register(t, h, uuid.New(), "alice")
	bob := register(t, h, uuid.New(), "bob")
	recvFrame(t, alice)
	recvFrame(t, bob)

	h.Unregister <- alice
	h.Unregister <- alice // second removal must be a no-op

	// The loop is still healthy and Bob still receives broadcasts.
	sendEvent(t, h, bob, model.Frame{Type: model.FrameMessage, Text: "still here"})
	frame := recvFrame(t, bob)
	req.Equal(model.FrameMessage, frame.Type)

	// Alice's queue was closed exactly once and drained.
	_, open := <-alice.Send
	req.False(open)
}

func TestSlowConnectionDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	h, _ := startHub(t)

	alice := register(t, h, uuid.New(), "alice")
	slow := register(t, h, uuid.New(), "slow")
	recvFrame(t, alice)
	recvFrame(t, slow)

	// Saturate the slow connection's queue; nobody is draining it.
	for i := 0; i < cap(slow.Send); i++ {
		slow.Send <- model.Frame{Type: model.FrameTyping}
	}

	sendEvent(t, h, alice, model.Frame{Type: model.FrameMessage, Text: "through"})

	frame := recvFrame(t, alice)
	req.Equal(model.FrameMessage, frame.Type)
	req.Equal("through", frame.Message.Text)
}

func TestRateLimitedSenderGetsError(t *testing.T) {
	req := require.New(t)
	h, _ := startHub(t)

	alice := register(t, h, uuid.New(), "alice")
	recvFrame(t, alice)
	alice.SetMessageLimiter(1, time.Minute)

	sendEvent(t, h, alice, model.Frame{Type: model.FrameMessage, Text: "first"})
	frame := recvFrame(t, alice)
	req.Equal(model.FrameMessage, frame.Type)

	sendEvent(t, h, alice, model.Frame{Type: model.FrameMessage, Text: "second"})
	frame = recvFrame(t, alice)
	req.Equal(model.FrameError, frame.Type)
}

func TestLateJoinerReplayMatchesScenario(t *testing.T) {
	req := require.New(t)
	h, _ := startHub(t)

	aliceID, bobID := uuid.New(), uuid.New()
	alice := register(t, h, aliceID, "alice")
	bob := register(t, h, bobID, "bob")
	recvFrame(t, alice)
	recvFrame(t, bob)

	sendEvent(t, h, alice, model.Frame{Type: model.FrameMessage, Text: "hi"})
	recvFrame(t, alice)
	recvFrame(t, bob)

	sendEvent(t, h, bob, model.Frame{Type: model.FrameSeen})
	recvFrame(t, alice)
	recvFrame(t, bob)

	sendEvent(t, h, bob, model.Frame{
		Type:       model.FrameMessage,
		Attachment: &model.Attachment{Ref: "r1", Filename: "photo.png"},
	})
	recvFrame(t, alice)
	recvFrame(t, bob)

	third := register(t, h, uuid.New(), "carol")
	frame := recvFrame(t, third)
	req.Equal(model.FrameHistory, frame.Type)
	req.Len(frame.Messages, 2)
	req.Equal(int64(1), frame.Messages[0].ID)
	req.True(frame.Messages[0].Seen)
	req.Equal(int64(2), frame.Messages[1].ID)
	req.False(frame.Messages[1].Seen)
	req.Equal("photo.png", frame.Messages[1].Attachment.Filename)
}
