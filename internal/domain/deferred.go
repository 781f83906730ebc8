package domain

// DeferredMessage records one message that was moved into the night
// holding topic during quiet hours. MessageID is the id of the copy
// (the forward), not of the deleted original. OriginTopic is nil when
// the original was posted outside any topic.
type DeferredMessage struct {
	MessageID   int  `json:"message_id"`
	OriginTopic *int `json:"origin_topic"`
}
