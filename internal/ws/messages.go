package ws

// Envelope is the discriminator every client frame carries next to its
// type-specific fields.
type Envelope struct {
	Type string `json:"type"`
}
