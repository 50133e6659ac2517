package llm

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model specifies the model to use. If empty, the client's default model is used.
	Model string

	// MaxTokens caps the number of generated tokens. If 0, the client's default is used.
	MaxTokens int

	// Temperature controls the randomness of the output. Zero gives greedy decoding.
	Temperature float32
}
