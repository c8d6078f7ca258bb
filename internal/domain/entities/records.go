package entities

import "time"

// Canvas is a named membership set over entity UIDs.
type Canvas struct {
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// QueryRecord is one entry of the query history.
type QueryRecord struct {
	UID          string    `json:"uid"`
	Query        string    `json:"query"`
	ResultUIDs   []string  `json:"result_uids"`
	ResultFields []string  `json:"result_fields"`
	CreatedAt    time.Time `json:"created_at"`
}

// EntityVector is an entity's embedding for the similarity index.
type EntityVector struct {
	UID       string
	Type      string
	Primary   string
	Embedding []float32
}

// SimilarEntity is a similarity search hit.
type SimilarEntity struct {
	UID     string  `json:"uid"`
	Type    string  `json:"type"`
	Primary string  `json:"primary"`
	Score   float32 `json:"score"`
}
