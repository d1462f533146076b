package transfer

// PublishResult is what a platform returns for a published post.
type PublishResult struct {
	PlatformPostID string `json:"platform_post_id"`
	URL            string `json:"url"`
}

type TickResult struct {
	RunID     string `json:"run_id"`
	Due       int    `json:"due"`
	Retried   int    `json:"retried"`
	Expired   int    `json:"expired"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}
