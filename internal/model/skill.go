package model

import "time"

// SkillCategory groups skills for the onboarding screen (e.g. "frontend").
type SkillCategory struct {
	ID        string    `json:"skillCategoryId" bson:"skillCategoryId"`
	Name      string    `json:"name"            bson:"name"`
	CreatedAt time.Time `json:"createdAt"       bson:"createdAt"`
}

// Skill is one entry of the skill taxonomy. Users reference skills by ID in
// User.Skills. Name is stored normalized (lower-case, single-spaced) and is
// unique.
type Skill struct {
	ID         string    `json:"skillId"         bson:"skillId"`
	Name       string    `json:"name"            bson:"name"`
	CategoryID string    `json:"skillCategoryId" bson:"skillCategoryId"`
	ImageURL   string    `json:"imageUrl"        bson:"imageUrl"`
	CreatedAt  time.Time `json:"createdAt"       bson:"createdAt"`
}
