package models

// Artist identifies a track's performer.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album identifies a track's release and its cover art.
type Album struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Cover string `json:"cover"`
}

// Track is an immutable track value. StreamURL is set only on a resolved copy.
type Track struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    Artist `json:"artist"`
	Album     Album  `json:"album"`
	Duration  int    `json:"duration"` // seconds
	StreamURL string `json:"streamUrl,omitempty"`
}

// WithStreamURL returns a resolved copy of t; t itself is unchanged.
func (t Track) WithStreamURL(url string) Track {
	t.StreamURL = url
	return t
}

// Resolved reports whether the track carries a stream URL.
func (t Track) Resolved() bool {
	return t.StreamURL != ""
}

// Playable reports whether t has every field required to be offered to the queue:
// identifier, title, artist name, album cover and a positive duration.
func (t Track) Playable() bool {
	return t.ID != "" && t.Title != "" && t.Artist.Name != "" && t.Album.Cover != "" && t.Duration > 0
}

// Label renders "Artist - Title".
func (t Track) Label() string {
	return t.Artist.Name + " - " + t.Title
}
