package dto

// CreateLocationRequest payload for any tier. ParentID is ignored for
// provinces and required everywhere else.
type CreateLocationRequest struct {
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id"`
}

// LocationResponse represents one node of the hierarchy.
type LocationResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id,omitempty"`
}

// LocationListResponse wraps child listings.
type LocationListResponse struct {
	Locations []LocationResponse `json:"locations"`
}
