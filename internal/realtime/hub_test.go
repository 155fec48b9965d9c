package realtime

import "testing"

func TestDetachIgnoresReplacedSession(t *testing.T) {
	h := NewHub(nil, nil, nil)

	first := &Client{hub: h, playerID: 7}
	h.clients[7] = first

	// A reconnect replaces the registration before the old session's
	// teardown runs.
	second := &Client{hub: h, playerID: 7}
	h.clients[7] = second

	if h.detach(first) {
		t.Error("replaced session must not report itself live")
	}
	if h.clients[7] != second {
		t.Error("live session was removed from the registry")
	}

	if !h.detach(second) {
		t.Error("live session should detach")
	}
	if h.ConnectedCount() != 0 {
		t.Errorf("connected count = %d after detach, want 0", h.ConnectedCount())
	}
}

func TestDetachUnknownClient(t *testing.T) {
	h := NewHub(nil, nil, nil)
	if h.detach(&Client{hub: h, playerID: 1}) {
		t.Error("never-registered client reported live")
	}
}
