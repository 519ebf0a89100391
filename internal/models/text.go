package models

// SnippetTimeLayout is the second-precision timestamp format stored in the
// text store file.
const SnippetTimeLayout = "2006-01-02 15:04:05"

// TextSnippet is one shared clipboard entry. The JSON keys are the persisted
// on-disk shape of the text store file and must not change.
type TextSnippet struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Time    string `json:"time"`
}

// AddTextRequest is the body of POST /text.
type AddTextRequest struct {
	Content string `json:"content"`
}
