package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// QuestionOption is the single normalized option shape carried through
// scoring and rendering.
type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// OptionList is an ordered list of options. Historical data stores options
// in two shapes: a keyed map {"A": "...", "B": "..."} and an array of
// {text, isCorrect} objects. Decoding normalizes both into the list form so
// business logic only ever sees one representation.
type OptionList []QuestionOption

// optionIDs are assigned positionally when the source shape carries none.
var optionIDs = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// UnmarshalJSON accepts both legacy shapes.
func (l *OptionList) UnmarshalJSON(data []byte) error {
	var arr []QuestionOption
	if err := json.Unmarshal(data, &arr); err == nil {
		for i := range arr {
			if arr[i].ID == "" && i < len(optionIDs) {
				arr[i].ID = optionIDs[i]
			}
		}
		*l = arr
		return nil
	}

	var keyed map[string]string
	if err := json.Unmarshal(data, &keyed); err != nil {
		return fmt.Errorf("options are neither a list nor a keyed map")
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(OptionList, 0, len(keys))
	for _, k := range keys {
		out = append(out, QuestionOption{ID: k, Text: keyed[k]})
	}
	*l = out
	return nil
}

// Value stores the normalized array form as JSON.
func (l OptionList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]QuestionOption(l))
}

// Scan reads either stored shape back into the normalized form.
func (l *OptionList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return l.UnmarshalJSON(v)
	case string:
		return l.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported option list source %T", src)
	}
}

// CorrectOption returns the first option flagged correct, if any.
func (l OptionList) CorrectOption() (QuestionOption, bool) {
	for _, opt := range l {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return QuestionOption{}, false
}

// MarkCorrect flags the option with the given id as the correct one.
func (l OptionList) MarkCorrect(id string) bool {
	for i := range l {
		l[i].IsCorrect = l[i].ID == id
	}
	_, ok := l.CorrectOption()
	return ok
}

// Question belongs to an exam.
type Question struct {
	ID        string     `db:"id" json:"id"`
	ExamID    string     `db:"exam_id" json:"exam_id"`
	Text      string     `db:"text" json:"text"`
	Options   OptionList `db:"options" json:"options"`
	Marks     int        `db:"marks" json:"marks"`
	Position  int        `db:"position" json:"position"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Sanitized returns a copy safe to serve to a student mid-attempt: the
// correct-option flags are stripped.
func (q Question) Sanitized() Question {
	clean := q
	clean.Options = make(OptionList, len(q.Options))
	for i, opt := range q.Options {
		opt.IsCorrect = false
		clean.Options[i] = opt
	}
	return clean
}
