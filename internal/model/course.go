package model

import "time"

// Course is a YouTube playlist imported by a user, plus that user's progress
// through it.
//
// (AuthorID, PlaylistID) is unique: the same user cannot import the same
// playlist twice. Progress has one entry per item in Content, in the same
// order.
type Course struct {
	ID         string          `json:"courseId"       bson:"courseId"`
	AuthorID   string          `json:"authorId"       bson:"authorId"`
	PlaylistID string          `json:"playlistId"     bson:"playlistId"`
	Metadata   *CourseMetadata `json:"courseMetaData" bson:"courseMetaData"`
	Content    []CourseItem    `json:"courseContent"  bson:"courseContent"`
	Progress   []VideoProgress `json:"courseProgress" bson:"courseProgress"`
	CreatedAt  time.Time       `json:"createdAt"      bson:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"      bson:"updatedAt"`
}

// CourseMetadata is the descriptive block of the playlist itself.
type CourseMetadata struct {
	Title        string               `json:"title"        bson:"title"`
	Description  string               `json:"description"  bson:"description"`
	ChannelID    string               `json:"channelId"    bson:"channelId"`
	ChannelTitle string               `json:"channelTitle" bson:"channelTitle"`
	PublishedAt  string               `json:"publishedAt"  bson:"publishedAt"`
	Thumbnails   map[string]Thumbnail `json:"thumbnails"   bson:"thumbnails"`
}

// CourseItem is one video of the playlist.
type CourseItem struct {
	VideoID      string               `json:"videoId"      bson:"videoId"`
	Title        string               `json:"title"        bson:"title"`
	Description  string               `json:"description"  bson:"description"`
	Position     int64                `json:"position"     bson:"position"`
	ChannelTitle string               `json:"channelTitle" bson:"channelTitle"`
	PublishedAt  string               `json:"publishedAt"  bson:"publishedAt"`
	Thumbnails   map[string]Thumbnail `json:"thumbnails"   bson:"thumbnails"`
}

type Thumbnail struct {
	URL    string `json:"url"    bson:"url"`
	Width  int64  `json:"width"  bson:"width"`
	Height int64  `json:"height" bson:"height"`
}

type VideoProgress struct {
	VideoID     string `json:"videoId"     bson:"videoId"`
	IsCompleted bool   `json:"isCompleted" bson:"isCompleted"`
}

// NotStarted reports whether no video of the course has been completed yet.
func (c *Course) NotStarted() bool {
	for _, p := range c.Progress {
		if p.IsCompleted {
			return false
		}
	}
	return true
}

// SetProgress marks one video as completed or not. It returns false when the
// course has no such video.
func (c *Course) SetProgress(videoID string, completed bool) bool {
	for i := range c.Progress {
		if c.Progress[i].VideoID == videoID {
			c.Progress[i].IsCompleted = completed
			return true
		}
	}
	return false
}
