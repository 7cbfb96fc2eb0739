package generation

import (
	"context"
	"errors"
)

// Outfit generation-mode hints accepted by the remote service.
const (
	OutfitModeIdentity = "identity"
	OutfitModeStandard = "standard"
)

// OutfitClient drives identity-preserving outfit variation. It has its own
// in-flight slot, so an outfit call never cancels a running avatar call.
type OutfitClient struct {
	*remote
}

// NewOutfitClientFromEnv constructs the outfit variation client.
func NewOutfitClientFromEnv() (*OutfitClient, error) {
	r, err := newRemoteFromEnv()
	if err != nil {
		return nil, err
	}
	return &OutfitClient{remote: r}, nil
}

// OutfitRequest describes one outfit variation call. ReferenceURL is the
// identity anchor whose face is preserved across variations.
type OutfitRequest struct {
	ReferenceURL    string `json:"reference_image_url"`
	OutfitPrompt    string `json:"outfit_prompt"`
	CharacterPrompt string `json:"character_prompt,omitempty"`
	Count           int    `json:"count"`
	Seed            *int64 `json:"seed,omitempty"`
	Checkpoint      string `json:"checkpoint,omitempty"`
	GenerationMode  string `json:"generation_mode,omitempty"`
}

// OutfitResult is a successful variation batch. Warnings are reported
// verbatim, never swallowed.
type OutfitResult struct {
	Results  []ResultItem `json:"results"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Generate issues the variation call under the same cancel/timeout contract
// as the avatar client. The client assigns neither scenario tags nor parent
// links; that is the committing caller's job, because only the caller knows
// which preset built the prompt.
func (c *OutfitClient) Generate(ctx context.Context, req OutfitRequest) (*OutfitResult, error) {
	if c == nil {
		return nil, errors.New("generation: outfit client is nil")
	}
	if req.ReferenceURL == "" {
		return nil, errors.New("generation: reference image is required")
	}
	if req.OutfitPrompt == "" {
		return nil, errors.New("generation: outfit prompt is required")
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.GenerationMode == "" {
		req.GenerationMode = OutfitModeIdentity
	}

	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	op := c.slot.begin(cancel)

	var decoded OutfitResult
	err := c.postJSON(opCtx, "/outfits", req, &decoded)

	if !c.slot.end(op) {
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, classifyError(opCtx, err)
	}
	return &decoded, nil
}
