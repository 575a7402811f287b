package domain

// Subcategory is the second level of the category taxonomy.
type Subcategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Category groups MCQs. Subcategory ids are unique within a category.
type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Icon          string        `json:"icon,omitempty"`
	ImageURL      string        `json:"imageUrl,omitempty"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`
}

// Subcategory returns the subcategory with the given id.
func (c Category) Subcategory(id string) (Subcategory, bool) {
	for _, sub := range c.Subcategories {
		if sub.ID == id {
			return sub, true
		}
	}
	return Subcategory{}, false
}

// MCQ is a multiple-choice question with exactly one correct option.
type MCQ struct {
	ID                   string   `json:"id"`
	Question             string   `json:"question"`
	Options              []string `json:"options"`
	AnswerIndex          int      `json:"answerIndex"`
	Explanation          string   `json:"explanation,omitempty"`
	CategoryID           string   `json:"categoryId"`
	SubcategoryID        string   `json:"subcategoryId,omitempty"`
	Approved             bool     `json:"approved"`
	CreatedByUID         string   `json:"createdByUid,omitempty"`
	CreatedByDisplayName string   `json:"createdByDisplayName,omitempty"`
}

// UserProfile is the persisted per-user record keyed by the identity-provider subject.
type UserProfile struct {
	UID             string          `json:"uid"`
	DisplayName     *string         `json:"displayName"`
	Email           *string         `json:"email"`
	PhotoURL        *string         `json:"photoURL"`
	ScoreByCategory map[string]int  `json:"scoreByCategory,omitempty"`
	AnsweredMCQs    map[string]bool `json:"answeredMCQs,omitempty"` // correctly answered, never re-credited
	IsAdmin         bool            `json:"isAdmin,omitempty"`
}

// Comment is a user remark on an MCQ, visible once approved.
type Comment struct {
	ID          string  `json:"id"`
	MCQID       string  `json:"mcqId"`
	UID         string  `json:"uid"`
	Text        string  `json:"text"`
	CreatedAt   int64   `json:"createdAt"` // unix millis
	DisplayName *string `json:"displayName"`
	Approved    bool    `json:"approved"`
}

// Favorite bookmarks an MCQ for a user. Removal only flips Removed.
type Favorite struct {
	MCQID   string `json:"mcqId"`
	AddedAt int64  `json:"addedAt"` // unix millis
	Removed bool   `json:"removed"`
}

// AnswerSubmission is a quiz-taker's choice for one MCQ.
type AnswerSubmission struct {
	MCQID    string `json:"mcqId"`
	Selected int    `json:"selected"`
}

// AnswerResult summarizes the outcome of a submission for a single user.
type AnswerResult struct {
	MCQID           string `json:"mcqId"`
	Correct         bool   `json:"correct"`
	AnswerIndex     int    `json:"answerIndex"`
	Explanation     string `json:"explanation,omitempty"`
	Awarded         int    `json:"awarded"`
	AlreadyAnswered bool   `json:"alreadyAnswered"`
}

// ImportReport describes the outcome of a bulk MCQ import.
type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	IDs      []string `json:"ids"`
}
