package twitch

import "time"

// Images holds the sizes of a Twitch artwork.
type Images struct {
	Large    string `json:"large"`
	Medium   string `json:"medium"`
	Small    string `json:"small"`
	Template string `json:"template"`
}

// Game is a Twitch game (category).
type Game struct {
	ID          int64  `json:"_id"`
	Name        string `json:"name"`
	Box         Images `json:"box"`
	Logo        Images `json:"logo"`
	GiantbombID int64  `json:"giantbomb_id"`
}

// TopGame is an entry of /games/top.
type TopGame struct {
	Game     Game `json:"game"`
	Viewers  int  `json:"viewers"`
	Channels int  `json:"channels"`
}

// TopGamesResponse is the body of /games/top.
type TopGamesResponse struct {
	Total int       `json:"_total"`
	Top   []TopGame `json:"top"`
}

// Channel is the broadcaster of a stream.
type Channel struct {
	ID          int64  `json:"_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	Logo        string `json:"logo"`
	URL         string `json:"url"`
}

// Stream is a live stream.
type Stream struct {
	ID        int64     `json:"_id"`
	Game      string    `json:"game"`
	Viewers   int       `json:"viewers"`
	Preview   Images    `json:"preview"`
	Channel   Channel   `json:"channel"`
	CreatedAt time.Time `json:"created_at"`
}

// StreamsResponse is the body of /streams.
type StreamsResponse struct {
	Total   int      `json:"_total"`
	Streams []Stream `json:"streams"`
}
