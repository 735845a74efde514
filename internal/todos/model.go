package todos

import "fmt"

// MaxTitleLen matches the VARCHAR(100) title column.
const MaxTitleLen = 100

type Todo struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Complete bool   `json:"complete"`
}

func (t Todo) String() string {
	return fmt.Sprintf("<Todo %d: %s>", t.ID, t.Title)
}
