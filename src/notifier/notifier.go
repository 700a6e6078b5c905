// The notifier daemon relays governance events from the redis stream into a
// Discord channel.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/ncatdao/govapi/src/govapi/config"
	"github.com/ncatdao/govapi/src/govapi/data"
	"github.com/ncatdao/govapi/src/govapi/service"
)

type Notifier struct {
	session   *discordgo.Session
	rdb       *redis.Client
	channelID string
}

func NewNotifier(token, channelID string, rdb *redis.Client) (*Notifier, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &Notifier{session: dg, rdb: rdb, channelID: channelID}, nil
}

func (n *Notifier) Start() error { return n.session.Open() }
func (n *Notifier) Stop() error  { return n.session.Close() }

func (n *Notifier) listen(ctx context.Context) {
	lastID := "$" // only new events
	for {
		select {
		case <-ctx.Done():
			return
		default:
			streams, err := n.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{service.TopicProposals, lastID},
				Count:   10,
				Block:   5 * time.Second,
			}).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					log.Printf("Error reading stream: %v", err)
				}
				continue
			}

			for _, stream := range streams {
				for _, msg := range stream.Messages {
					if err := n.post(msg.Values); err != nil {
						log.Printf("Failed to post to Discord: %v", err)
					}
					lastID = msg.ID
				}
			}
		}
	}
}

func (n *Notifier) post(values map[string]interface{}) error {
	event, _ := values["event"].(string)
	title, _ := values["title"].(string)
	state, _ := values["state"].(string)
	id, _ := values["proposal"].(string)

	var line string
	switch event {
	case "created":
		line = fmt.Sprintf("New proposal #%s: **%s** — voting is open", id, title)
	case "vote":
		line = fmt.Sprintf("Vote recorded on proposal #%s: %s", id, title)
	case "fund":
		line = fmt.Sprintf("Proposal #%s received funding: %s", id, title)
	case "decided", "transitioned":
		line = fmt.Sprintf("Proposal #%s (%s) moved to **%s**", id, title, state)
	default:
		line = fmt.Sprintf("Proposal #%s: %s", id, event)
	}

	_, err := n.session.ChannelMessageSend(n.channelID, line)
	return err
}

func main() {
	cfg := config.Load()
	if cfg.DiscordToken == "" || cfg.DiscordChannel == "" {
		log.Fatal("DISCORD_TOKEN and DISCORD_CHANNEL must be set")
	}

	rdb := data.MustRedis(cfg.RedisURL)

	n, err := NewNotifier(cfg.DiscordToken, cfg.DiscordChannel, rdb)
	if err != nil {
		log.Fatalf("discord: %v", err)
	}
	if err := n.Start(); err != nil {
		log.Fatalf("discord open: %v", err)
	}
	defer n.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go n.listen(ctx)
	log.Printf("notifier relaying %s to channel %s", service.TopicProposals, cfg.DiscordChannel)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
}
