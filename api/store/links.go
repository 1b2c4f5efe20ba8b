/* links.go
 * Contains the methods for interacting with the account_links collection
 * Authors: Zachary Bower
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AccountLink maps a Discord user to their arena account. RefreshToken is the long
// lived credential; it is replaced every time the backend rotates the pair
type AccountLink struct {
	DiscordID    string    `bson:"discord_id"`
	Username     string    `bson:"username"`
	RefreshToken string    `bson:"refresh_token"`
	LinkedAt     time.Time `bson:"linked_at,omitempty"`
}

// StoreLink stores or replaces the account link for a Discord user
// Preconditions: Receives the AccountLink to persist; DiscordID must be set
// Postconditions: Stores or updates the link in the db, or returns an error if the operation was unsuccessful
func (s *Store) StoreLink(link AccountLink) error {
	if link.DiscordID == "" {
		return fmt.Errorf("discord id cannot be empty")
	}

	// Attempt to find an existing document
	var result AccountLink
	err := s.Collections.AccountLinks.FindOne(context.TODO(), bson.M{"discord_id": link.DiscordID}).Decode(&result)
	notFound := err == mongo.ErrNoDocuments

	if err != nil && !notFound {
		return fmt.Errorf("lookup for existing account link failed: %w", err)
	}

	// The user currently has no link stored so we create a new document
	if notFound {
		if link.LinkedAt.IsZero() {
			link.LinkedAt = time.Now()
		}
		_, err := s.Collections.AccountLinks.InsertOne(context.TODO(), link)
		if err != nil {
			return fmt.Errorf("failed to insert new account link: %w", err)
		}
		return nil
	}

	// Else update the user's existing link
	update := bson.M{"$set": link}
	filter := bson.M{"discord_id": link.DiscordID}
	_, err = s.Collections.AccountLinks.UpdateOne(context.TODO(), filter, update)
	if err != nil {
		return fmt.Errorf("failed to update existing account link: %w", err)
	}
	return nil
}

// GetLink does a DB lookup and gets the account link for a Discord user
// Preconditions: Receives a string containing the Discord user id
// Postconditions: Returns the user's link if it exists, mongo.ErrNoDocuments if not, or an error if it occurs
func (s *Store) GetLink(discordID string) (AccountLink, error) {
	var result AccountLink
	err := s.Collections.AccountLinks.FindOne(context.TODO(), bson.M{"discord_id": discordID}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return AccountLink{}, err
		}
		return AccountLink{}, fmt.Errorf("error fetching account link from db: %w", err)
	}
	return result, nil
}

// DeleteLink removes the account link for a Discord user, used on logout
func (s *Store) DeleteLink(discordID string) error {
	_, err := s.Collections.AccountLinks.DeleteOne(context.TODO(), bson.M{"discord_id": discordID})
	if err != nil {
		return fmt.Errorf("failed to delete account link: %w", err)
	}
	return nil
}
