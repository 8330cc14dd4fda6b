package api

import (
	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/models"
)

// AppendNodesRequest is the request body for appending markup.
type AppendNodesRequest struct {
	Selector string `json:"selector" example:"#feed" validate:"required"`
	HTML     string `json:"html" example:"<p>My favourite colour</p>" validate:"required"`
}

// NodesResponse reports how many elements an edit touched.
type NodesResponse struct {
	Matched int `json:"matched" example:"1" validate:"required"`
}

// ScrollOffset is the page scroll position.
type ScrollOffset struct {
	X float64 `json:"x" example:"0"`
	Y float64 `json:"y" example:"240"`
}

// PointerRequest is the request body for a pointer event.
type PointerRequest struct {
	Selector string        `json:"selector" example:"p:nth-child(2)" validate:"required"`
	Event    string        `json:"event" example:"enter" enums:"enter,leave" validate:"required"`
	Rect     *dom.Rect     `json:"rect,omitempty"`
	Scroll   *ScrollOffset `json:"scroll,omitempty"`
}

// PointerResponse reports how many listeners handled the event.
type PointerResponse struct {
	Listeners int `json:"listeners" example:"1" validate:"required"`
}

// SubstituteRequest is the request body for a dry-run substitution.
type SubstituteRequest struct {
	Text string `json:"text" example:"My favourite colour" validate:"required"`
}

// SubstituteResponse is the rewritten text with each replacement made.
type SubstituteResponse struct {
	Text         string               `json:"text" validate:"required"`
	Replacements []models.Replacement `json:"replacements" validate:"required"`
}

// ActivationRequest toggles substitution for the next session.
type ActivationRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// TooltipListResponse wraps attached tooltips.
type TooltipListResponse struct {
	Tooltips []models.Tooltip `json:"tooltips" validate:"required"`
}

// ReplacementListResponse wraps the substitution history.
type ReplacementListResponse struct {
	Replacements []models.Replacement `json:"replacements" validate:"required"`
}

// DictionaryResponse wraps the dictionary in source order.
type DictionaryResponse struct {
	Entries []models.DictionaryEntry `json:"entries" validate:"required"`
}
