/* store.go
 * Contains the store struct and NewStore function. The store persists the link between a Discord
 * user and their arena account so sessions survive bot restarts. Only the refresh token is kept;
 * access tokens are short lived and re-minted on the first request after a restart
 * Authors: Zachary Bower
 */

package store

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	Client      *mongo.Client
	Database    *mongo.Database
	Collections struct {
		AccountLinks *mongo.Collection
	}
}

// Function for initialising Store. Initialises the db connection and collection handles
// Preconditions: Receives strings containing the following: dbName and mongoURI
// Postconditions: Returns pointer to the Store object, or error if it occurs
func NewStore(dbName string, mongoURI string) (*Store, error) {
	client, err := mongo.Connect(context.TODO(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, err
	}
	db := client.Database(dbName)

	return &Store{
		Client:   client,
		Database: db,
		Collections: struct {
			AccountLinks *mongo.Collection
		}{
			AccountLinks: db.Collection("account_links"),
		},
	}, nil
}
