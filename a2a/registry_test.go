package a2a

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct{ name string }

func (c *stubClient) SendMessage(context.Context, MessageSendParams) (*SendMessageResult, error) {
	return nil, errors.New("stub client " + c.name)
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	video := &stubClient{name: "video"}
	r.Register(AgentCard{Name: "VideoAgent", Description: "Renders video"}, video)

	client, err := r.Resolve("VideoAgent")
	require.NoError(t, err)
	assert.Same(t, video, client.(*stubClient))

	_, err = r.Resolve("NoSuchAgent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAgent)
	assert.Contains(t, err.Error(), `"NoSuchAgent"`)
}

func TestRegistryResolveNilClient(t *testing.T) {
	r := NewRegistry()
	r.Register(AgentCard{Name: "Broken"}, nil)

	_, err := r.Resolve("Broken")
	assert.ErrorIs(t, err, ErrClientUnavailable)
}

func TestRegistryUpsertKeepsListingOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(AgentCard{Name: "VideoAgent", Description: "Renders video"}, &stubClient{name: "v1"})
	r.Register(AgentCard{Name: "ReportAgent", Description: "Writes reports"}, &stubClient{name: "r1"})

	replacement := &stubClient{name: "v2"}
	r.Register(AgentCard{Name: "VideoAgent", Description: "Renders video, faster"}, replacement)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "VideoAgent", list[0].Name)
	assert.Equal(t, "Renders video, faster", list[0].Description)
	assert.Equal(t, "ReportAgent", list[1].Name)

	client, err := r.Resolve("VideoAgent")
	require.NoError(t, err)
	assert.Same(t, replacement, client.(*stubClient))
}

func TestRegistryListing(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Listing())

	r.Register(AgentCard{Name: "VideoAgent", Description: "Renders video"}, &stubClient{})
	r.Register(AgentCard{Name: "ReportAgent", Description: "Writes reports"}, &stubClient{})

	want := `{"name":"VideoAgent","description":"Renders video"}` + "\n" +
		`{"name":"ReportAgent","description":"Writes reports"}`
	assert.Equal(t, want, r.Listing())
}

func TestRegistryCard(t *testing.T) {
	r := NewRegistry()
	r.Register(AgentCard{Name: "VideoAgent", URL: "http://video.local"}, &stubClient{})

	card, ok := r.Card("VideoAgent")
	require.True(t, ok)
	assert.Equal(t, "http://video.local", card.URL)

	_, ok = r.Card("NoSuchAgent")
	assert.False(t, ok)
}
