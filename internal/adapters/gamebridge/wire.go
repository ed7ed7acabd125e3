package gamebridge

import "encoding/json"

// Message types on the game websocket. Requests carry a seq the game
// echoes on the matching response; pushes carry no seq.
const (
	MsgGetActive         = "get_active"
	MsgGetInventory      = "get_inventory"
	MsgGetHutch          = "get_hutch"
	MsgGetHutchSpace     = "get_hutch_space"
	MsgGetFavorites      = "get_favorites"
	MsgSwapPet           = "swap_pet"
	MsgPlacePet          = "place_pet"
	MsgStorePet          = "store_pet"
	MsgPutInHutch        = "put_in_hutch"
	MsgRetrieveFromHutch = "retrieve_from_hutch"

	MsgActiveChanged     = "active_changed"
	MsgInventoryChanged  = "inventory_changed"
	MsgHutchChanged      = "hutch_changed"
	MsgHutchSpaceChanged = "hutch_space_changed"
	MsgAbilityEvent      = "ability_event"
)

// Frame is the envelope every message travels in.
type Frame struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SwapRequest is the payload of a swap_pet request.
type SwapRequest struct {
	ActiveID string `json:"activeId"`
	NewID    string `json:"newId"`
}

// PetRequest is the payload of single-pet mutation requests.
type PetRequest struct {
	ID string `json:"id"`
}

// SpacePayload carries the hutch free-slot count.
type SpacePayload struct {
	Free int `json:"free"`
}

// FavoritesPayload carries the favorited pet ids.
type FavoritesPayload struct {
	IDs []string `json:"ids"`
}

// WireEvent is an ability trigger as the game sends it.
type WireEvent struct {
	PetID       string         `json:"petId"`
	AbilityID   string         `json:"abilityId"`
	PerformedAt int64          `json:"performedAt"`
	Magnitude   *float64       `json:"magnitude,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}
