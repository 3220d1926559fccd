package twitch

// GameItem is a row of the games list.
type GameItem struct {
	Name     string `json:"name"`
	BoxArt   string `json:"box_art"`
	Viewers  int    `json:"viewers"`
	Channels int    `json:"channels"`
}

// StreamItem is a row of the streams list.
type StreamItem struct {
	Channel string `json:"channel"`
	Title   string `json:"title"`
	Game    string `json:"game"`
	Viewers int    `json:"viewers"`
	Preview string `json:"preview"`
}

// GameToItem projects a top game into a list row. Games without a name are
// dropped.
func GameToItem(g TopGame) (GameItem, bool) {
	if g.Game.Name == "" {
		return GameItem{}, false
	}
	return GameItem{
		Name:     g.Game.Name,
		BoxArt:   g.Game.Box.Large,
		Viewers:  g.Viewers,
		Channels: g.Channels,
	}, true
}

// StreamToItem projects a stream into a list row. Streams without a channel
// name are dropped.
func StreamToItem(s Stream) (StreamItem, bool) {
	if s.Channel.Name == "" {
		return StreamItem{}, false
	}
	channel := s.Channel.DisplayName
	if channel == "" {
		channel = s.Channel.Name
	}
	return StreamItem{
		Channel: channel,
		Title:   s.Channel.Status,
		Game:    s.Game,
		Viewers: s.Viewers,
		Preview: s.Preview.Medium,
	}, true
}
