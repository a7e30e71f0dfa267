package index

// Posting records the occurrences of one term in one document.
type Posting struct {
	DocID     string
	Frequency int
	Positions []int
}

type PostingList []Posting

// Stats summarises the size of an index for reporting.
type Stats struct {
	Terms     int `json:"terms"`
	Postings  int `json:"postings"`
	Documents int `json:"documents"`
}

// Document is the minimal input the index needs: an identifier and text.
type Document struct {
	ID   string
	Text string
}
