/* main.go
 * The "main" method for running the bot. For details about the bot see `readme.md`
 * Usage: go run . -url="<arena base url>" -test="<true|false>"
 * Authors: Zachary Bower
 */

package main

import (
	"context"
	"flag"
	"log"
	"os"

	"arena-bot/api/store"
	"arena-bot/bot"

	"github.com/joho/godotenv"
)

func main() {
	err := godotenv.Load()

	//Flags
	urlPtr := flag.String("url", "", "Arena backend base URL, e.g. http://localhost:3001/api (overrides ARENA_BASE_URL)")
	dbPtr := flag.String("db", "arena_bot", "MongoDB database name for account links")
	testPtr := flag.String("test", "false", "Use main or test bot: takes true or false as argument")

	flag.Parse()

	if err != nil {
		log.Fatal("Error loading .env file")
	}

	useTestBot, err := convertStrToBool(*testPtr)
	if err != nil {
		log.Fatal("Invalid \"test\" flag. Should be true or false")
	}

	var discordToken string
	if useTestBot {
		discordToken = os.Getenv("DISCORD_BETA_TOKEN")
	} else {
		discordToken = os.Getenv("DISCORD_PROD_TOKEN")
	}

	baseURL := *urlPtr
	if baseURL == "" {
		baseURL = os.Getenv("ARENA_BASE_URL")
	}
	if baseURL == "" {
		log.Fatal("No arena base URL configured: pass -url or set ARENA_BASE_URL")
	}

	links, err := store.NewStore(*dbPtr, os.Getenv("MONGO_PROD_URI"))
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer func() {
		if err = links.Client.Disconnect(context.TODO()); err != nil {
			panic(err)
		}
	}()

	b, err := bot.NewBot(discordToken, baseURL, links)
	if err != nil {
		log.Fatalf("failed to initialize bot: %v", err)
	}
	if err := b.Run(); err != nil {
		log.Fatalf("bot stopped: %v", err)
	}
}
