/* test_helpers.go
 * Contains test helper functions and mock structures for store package tests
 * Authors: Zachary Bower
 */

package store

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// CreateTestStore creates a Store connected to a test database.
// Returns the store and a cleanup function.
func CreateTestStore(mongoURI string) (*Store, func(), error) {
	store, err := NewStore("test_arena", mongoURI)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if store.Client != nil {
			store.Database.Drop(context.TODO())
			store.Client.Disconnect(context.TODO())
		}
	}

	return store, cleanup, nil
}

// MemoryLinks is an in-memory Interface implementation for tests that do not
// want a MongoDB connection at all.
type MemoryLinks struct {
	Links map[string]AccountLink
}

// NewMemoryLinks creates an empty in-memory link store.
func NewMemoryLinks() *MemoryLinks {
	return &MemoryLinks{Links: make(map[string]AccountLink)}
}

var _ Interface = (*MemoryLinks)(nil)

func (m *MemoryLinks) StoreLink(link AccountLink) error {
	m.Links[link.DiscordID] = link
	return nil
}

func (m *MemoryLinks) GetLink(discordID string) (AccountLink, error) {
	link, ok := m.Links[discordID]
	if !ok {
		return AccountLink{}, mongo.ErrNoDocuments
	}
	return link, nil
}

func (m *MemoryLinks) DeleteLink(discordID string) error {
	delete(m.Links, discordID)
	return nil
}

func (m *MemoryLinks) GetDatabase() interface{ Name() string } {
	return nil
}

func (m *MemoryLinks) GetClient() interface{ Disconnect(context.Context) error } {
	return nil
}
