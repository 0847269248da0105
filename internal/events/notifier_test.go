package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/storefront/internal/storage"
	"github.com/vango-dev/storefront/pkg/document"
	"github.com/vango-dev/storefront/pkg/node"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type sent struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []sent
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, sent{subject, data})
	return nil
}

func TestSubject(t *testing.T) {
	n := NewNATSNotifier(&fakePublisher{}, "")

	tests := []struct {
		ev   document.Event
		want string
	}{
		{document.Event{Type: document.EventPublished, StoreID: "s1", Kind: document.KindPage}, "storefront.s1.PAGE.published"},
		{document.Event{Type: document.EventUnpublished, StoreID: "s1", Kind: document.KindPrefab}, "storefront.s1.PREFAB.unpublished"},
		{document.Event{Type: document.EventThemePublished, StoreID: "s1"}, "storefront.s1.theme.published"},
		{document.Event{Type: document.EventPublished, StoreID: "acme.com", Kind: document.KindPage}, "storefront.acme_com.PAGE.published"},
		{document.Event{Type: document.EventPublished, StoreID: "a>b*", Kind: document.KindPage}, "storefront.a_b_.PAGE.published"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Subject(tt.ev))
	}
}

func TestNotifierPublishesOnLifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	n := NewNATSNotifier(pub, "shop", WithLogger(quiet))
	store := document.NewStore(storage.NewMemoryBackend(), document.WithLogger(quiet), document.WithHooks(n))

	tree := &node.Node{ID: "r", Type: "Text"}
	_, err := store.SaveDraft(ctx, "s1", document.KindPage, "home", tree, nil)
	require.NoError(t, err)
	assert.Empty(t, pub.msgs)

	_, err = store.Publish(ctx, "s1", document.KindPage, "home")
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "shop.s1.PAGE.published", pub.msgs[0].subject)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &msg))
	assert.Equal(t, document.EventPublished, msg.Type)
	assert.Equal(t, "home", msg.Key)
	assert.Equal(t, int64(1), msg.Version)
	assert.NotContains(t, string(pub.msgs[0].data), `"tree"`)
}

func TestNotifierErrorDoesNotFailPublish(t *testing.T) {
	ctx := context.Background()
	errClosed := errors.New("connection closed")
	n := NewNATSNotifier(&fakePublisher{err: errClosed}, "", WithLogger(quiet))

	err := n.OnEvent(ctx, document.Event{Type: document.EventPublished, StoreID: "s1", Kind: document.KindPage})
	assert.ErrorIs(t, err, errClosed)

	store := document.NewStore(storage.NewMemoryBackend(), document.WithLogger(quiet), document.WithHooks(n))
	_, err = store.SaveDraft(ctx, "s1", document.KindPage, "home", &node.Node{ID: "r", Type: "Text"}, nil)
	require.NoError(t, err)
	_, err = store.Publish(ctx, "s1", document.KindPage, "home")
	assert.NoError(t, err)
}

func TestNotifierAgainstServer(t *testing.T) {
	url := os.Getenv("STOREFRONT_TEST_NATS_URL")
	if url == "" {
		t.Skip("STOREFRONT_TEST_NATS_URL not set")
	}
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync("itest.*.PAGE.published")
	require.NoError(t, err)

	n, err := Connect(url, "itest", WithLogger(quiet))
	require.NoError(t, err)
	defer n.Close()

	require.NoError(t, n.OnEvent(context.Background(), document.Event{
		Type: document.EventPublished, StoreID: "s1", Kind: document.KindPage, Key: "home", Version: 3,
	}))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "itest.s1.PAGE.published", msg.Subject)
}
