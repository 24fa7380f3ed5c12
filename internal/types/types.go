package types

import "encoding/json"

// Label is the verdict a model gives for an article
type Label string

const (
	LabelReal Label = "REAL"
	LabelFake Label = "FAKE"
)

// LabelForClass maps a binary class index to a Label. Class 1 is FAKE.
func LabelForClass(class int) Label {
	if class == 1 {
		return LabelFake
	}
	return LabelReal
}

// ModelKind distinguishes the closed set of adapter variants
type ModelKind int

const (
	KindClassical ModelKind = iota
	KindTransformer
)

func (k ModelKind) String() string {
	switch k {
	case KindTransformer:
		return "transformer"
	default:
		return "classical"
	}
}

// VoteWeight is the number of votes (and confidence entries) a model of this kind contributes
func (k ModelKind) VoteWeight() int {
	if k == KindTransformer {
		return 2
	}
	return 1
}

// Prediction is the raw output of one adapter call
type Prediction struct {
	Label      Label
	Confidence float64
}

// ModelResult is one successful model prediction within an analysis
type ModelResult struct {
	Model      string    `json:"-"`
	Kind       ModelKind `json:"-"`
	Label      Label     `json:"label"`
	Confidence float64   `json:"confidence"`
}

// ResultSet holds the successful predictions of one analysis, in invocation order
type ResultSet struct {
	entries []ModelResult
	index   map[string]int
}

// NewResultSet creates an empty result set
func NewResultSet() ResultSet {
	return ResultSet{index: make(map[string]int)}
}

// Add appends a result. It returns false if the model name is already present.
func (rs *ResultSet) Add(r ModelResult) bool {
	if rs.index == nil {
		rs.index = make(map[string]int)
	}
	if _, exists := rs.index[r.Model]; exists {
		return false
	}
	rs.index[r.Model] = len(rs.entries)
	rs.entries = append(rs.entries, r)
	return true
}

// Get returns the result for a model
func (rs ResultSet) Get(model string) (ModelResult, bool) {
	i, ok := rs.index[model]
	if !ok {
		return ModelResult{}, false
	}
	return rs.entries[i], true
}

// Len returns the number of successful models
func (rs ResultSet) Len() int {
	return len(rs.entries)
}

// Entries returns a copy of the results in invocation order
func (rs ResultSet) Entries() []ModelResult {
	out := make([]ModelResult, len(rs.entries))
	copy(out, rs.entries)
	return out
}

// MarshalJSON renders the set as {"<model>": {"label": ..., "confidence": ...}}
func (rs ResultSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]ModelResult, len(rs.entries))
	for _, e := range rs.entries {
		m[e.Model] = e
	}
	return json.Marshal(m)
}

// ConsensusOutcome is the fused verdict of a result set
type ConsensusOutcome struct {
	Label      Label `json:"consensus"`
	TrustScore int   `json:"trustScore"`
}

// AnalysisResult is the terminal output for one article
type AnalysisResult struct {
	TrustScore           int       `json:"trustScore"`
	Consensus            Label     `json:"consensus"`
	Results              ResultSet `json:"results"`
	AutoPublish          bool      `json:"autoPublish"`
	TotalModels          int       `json:"totalModels"`
	TransformerAvailable bool      `json:"bertAvailable"`
}

// AnalyzeRequest represents the request structure for the analyze endpoint.
// Content stays raw so an absent field can be told apart from a null one.
type AnalyzeRequest struct {
	Content json.RawMessage `json:"content" swaggertype:"string"`
}

// HasContent reports whether the body carried a content field at all
func (r AnalyzeRequest) HasContent() bool {
	return len(r.Content) > 0
}

// Text returns the article text. A null content reads as empty.
func (r AnalyzeRequest) Text() (string, error) {
	if !r.HasContent() || string(r.Content) == "null" {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(r.Content, &text); err != nil {
		return "", err
	}
	return text, nil
}

// Decode failures reported for a single article
const (
	ErrMsgInvalidArticle    = "Article must be a JSON object"
	ErrMsgContentNotAString = "Article content must be a string"
)

// BatchItem is one article in a batch request. A malformed item still
// decodes; the problem is kept in Invalid so the rest of the batch runs.
type BatchItem struct {
	ID      interface{} `json:"id"`
	Content string      `json:"content"`
	Invalid string      `json:"-"`
}

// UnmarshalJSON decodes one batch item without ever failing the batch
func (b *BatchItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      interface{}     `json:"id"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*b = BatchItem{Invalid: ErrMsgInvalidArticle}
		return nil
	}

	*b = BatchItem{ID: raw.ID}
	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw.Content, &b.Content); err != nil {
		b.Invalid = ErrMsgContentNotAString
	}
	return nil
}

// BatchRequest represents the request structure for the batch endpoint
type BatchRequest struct {
	Articles *[]BatchItem `json:"articles"`
}

// BatchEntry is the per-item batch outcome: either a verdict or an error
type BatchEntry struct {
	ID          interface{} `json:"id"`
	TrustScore  *int        `json:"trustScore,omitempty"`
	Consensus   Label       `json:"consensus,omitempty"`
	AutoPublish *bool       `json:"autoPublish,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// IsError reports whether the entry is an error entry
func (e BatchEntry) IsError() bool {
	return e.Error != ""
}

// BatchResult is the outcome of a whole batch
type BatchResult struct {
	Results   []BatchEntry `json:"results"`
	Total     int          `json:"total"`
	Processed int          `json:"processed"`
}
