package packets

// MutationResponse is the uniform envelope for create, update and delete.
type MutationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ID      int    `json:"id,omitempty"`
}
