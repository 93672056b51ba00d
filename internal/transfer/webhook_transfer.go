package transfer

// WebhookPayload covers both delivery shapes the platform uses. Flat
// deliveries carry publish_id at the top level; nested deliveries carry a
// JSON-encoded string in content with publish_id and reason inside.
type WebhookPayload struct {
	Event     string `json:"event"`
	PublishID string `json:"publish_id"`
	ShareURL  string `json:"share_url"`
	Content   string `json:"content"`
}

type WebhookContent struct {
	PublishID string `json:"publish_id"`
	Reason    string `json:"reason"`
}
